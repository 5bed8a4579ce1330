// Package claims holds the record types exchanged with claim and evidence
// stores. The stores own these records; the oracle only reads and writes the
// posterior fields through the store interfaces.
package claims

import "time"

// #region claim
// Claim is one subject's ledger record: bookkeeping plus the most recently
// committed posterior in fixed-point form.
type Claim struct {
	ID           int64
	ExternalKey  string
	OpenedAt     time.Time
	UpdatedAt    time.Time
	PosteriorPPH int64 // P(PPH=1|evidence) x fixedpoint.Scale
	PosteriorPPR int64 // P(PPR=1|evidence) x fixedpoint.Scale
	Closed       bool
}

// #endregion claim

// #region evidence-piece
// EvidencePiece is one appended evidence observation for a claim.
type EvidencePiece struct {
	ID        int64
	ClaimID   int64
	Index     int // evidence variable index, 0..3
	Value     int // 0 or 1
	Reporter  string
	CreatedAt time.Time
}

// #endregion evidence-piece

// #region receipt
// TxReceipt confirms an accepted posterior submission.
type TxReceipt struct {
	TxID        string
	ClaimID     int64
	SubmittedAt time.Time
}

// #endregion receipt
