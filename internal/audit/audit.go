// Package audit recomputes posteriors from the evidence log and checks them
// against the fixed-point values committed on each claim.
package audit

import (
	"context"
	"fmt"

	"github.com/medclaims/bn-oracle/go-oracle/internal/claims"
	"github.com/medclaims/bn-oracle/go-oracle/internal/fixedpoint"
	"github.com/medclaims/bn-oracle/go-oracle/internal/infer"
	"github.com/medclaims/bn-oracle/go-oracle/internal/model"
	"github.com/medclaims/bn-oracle/go-oracle/internal/syncer"
)

// #region types
// LedgerView is the read-only slice of the ledger the audit needs.
type LedgerView interface {
	ListClaims(ctx context.Context) ([]claims.Claim, error)
	ListEvidenceForClaim(ctx context.Context, claimID int64) ([]claims.EvidencePiece, error)
}

// Result is the audit outcome for one claim.
type Result struct {
	ClaimID     int64          `json:"claim_id"`
	Snapshot    map[string]int `json:"snapshot"`
	ExpectedPPH int64          `json:"expected_pph"`
	ExpectedPPR int64          `json:"expected_ppr"`
	StoredPPH   int64          `json:"stored_pph"`
	StoredPPR   int64          `json:"stored_ppr"`
	Consistent  bool           `json:"consistent"`
	Skipped     bool           `json:"skipped"`
	Reason      string         `json:"reason,omitempty"`
}

// Summary aggregates one audit pass.
type Summary struct {
	Total      int `json:"total"`
	Consistent int `json:"consistent"`
	Mismatched int `json:"mismatched"`
	Skipped    int `json:"skipped"`
}

// #endregion types

// #region run
// Run audits every claim: fold its evidence log, recompute the posterior,
// and compare with the committed values. Closed claims and claims with no
// activity yet are skipped.
func Run(ctx context.Context, m model.ParameterModel, view LedgerView) ([]Result, Summary, error) {
	rows, err := view.ListClaims(ctx)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("audit: %w", err)
	}

	results := make([]Result, 0, len(rows))
	var summary Summary
	for _, c := range rows {
		summary.Total++
		res := auditClaim(ctx, m, view, c)
		switch {
		case res.Skipped:
			summary.Skipped++
		case res.Consistent:
			summary.Consistent++
		default:
			summary.Mismatched++
		}
		results = append(results, res)
	}
	return results, summary, nil
}

func auditClaim(ctx context.Context, m model.ParameterModel, view LedgerView, c claims.Claim) Result {
	res := Result{ClaimID: c.ID, StoredPPH: c.PosteriorPPH, StoredPPR: c.PosteriorPPR}

	if c.Closed {
		res.Skipped = true
		res.Reason = "claim closed"
		return res
	}

	pieces, err := view.ListEvidenceForClaim(ctx, c.ID)
	if err != nil {
		res.Reason = fmt.Sprintf("list evidence: %v", err)
		return res
	}
	res.Snapshot = syncer.FoldSnapshot(pieces)

	if len(pieces) == 0 && c.PosteriorPPH == 0 && c.PosteriorPPR == 0 {
		res.Skipped = true
		res.Reason = "no activity yet"
		return res
	}

	post, err := infer.Infer(m, res.Snapshot)
	if err != nil {
		res.Reason = fmt.Sprintf("recompute: %v", err)
		return res
	}
	res.ExpectedPPH = fixedpoint.FromProb(post.PPH)
	res.ExpectedPPR = fixedpoint.FromProb(post.PPR)
	res.Consistent = res.ExpectedPPH == c.PosteriorPPH && res.ExpectedPPR == c.PosteriorPPR
	if !res.Consistent {
		res.Reason = "stored posterior differs from recomputed"
	}
	return res
}

// #endregion run
