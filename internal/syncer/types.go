package syncer

import (
	"context"

	"github.com/medclaims/bn-oracle/go-oracle/internal/claims"
	"github.com/medclaims/bn-oracle/go-oracle/internal/infer"
)

// #region interfaces

// ClaimStore is the slice of the external claim ledger the protocol needs:
// submit a posterior pair and read the row back.
type ClaimStore interface {
	GetClaim(ctx context.Context, claimID int64) (claims.Claim, error)
	SubmitPosterior(ctx context.Context, claimID, scaledPPH, scaledPPR int64) (claims.TxReceipt, error)
}

// EvidenceStore lists the accumulated evidence pieces for a claim, in
// arrival order.
type EvidenceStore interface {
	ListEvidenceForClaim(ctx context.Context, claimID int64) ([]claims.EvidencePiece, error)
}

// #endregion interfaces

// #region result

// Result captures one completed sync: what was computed, what was
// submitted, and what the read-back confirmed.
type Result struct {
	ClaimID   int64
	Snapshot  map[string]int
	Posterior infer.Posterior
	ScaledPPH int64
	ScaledPPR int64
	Receipt   claims.TxReceipt
	StoredPPH int64
	StoredPPR int64
}

// #endregion result
