// Package syncer keeps a claim's stored posterior consistent with the
// latest evidence snapshot: recompute in full, scale to fixed point, submit,
// read back, verify. No caching and no incremental updating: correctness
// comes from recomputing the full posterior over the full evidence every
// time.
package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/medclaims/bn-oracle/go-oracle/internal/claims"
	"github.com/medclaims/bn-oracle/go-oracle/internal/fixedpoint"
	"github.com/medclaims/bn-oracle/go-oracle/internal/infer"
	"github.com/medclaims/bn-oracle/go-oracle/internal/model"
)

// #region errors

// CommitVerificationError reports that the read-back after a submission
// disagrees with the submitted values: the write did not apply or was
// overwritten concurrently. The caller decides whether to retry.
type CommitVerificationError struct {
	ClaimID      int64
	SubmittedPPH int64
	SubmittedPPR int64
	StoredPPH    int64
	StoredPPR    int64
}

func (e *CommitVerificationError) Error() string {
	return fmt.Sprintf(
		"claim %d: read-back (%d, %d) disagrees with submitted (%d, %d)",
		e.ClaimID, e.StoredPPH, e.StoredPPR, e.SubmittedPPH, e.SubmittedPPR,
	)
}

// ExternalStoreError wraps a transport or availability failure from a
// collaborator store, so callers can tell infrastructure failures apart
// from bad data.
type ExternalStoreError struct {
	Op  string
	Err error
}

func (e *ExternalStoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalStoreError) Unwrap() error {
	return e.Err
}

// #endregion errors

// #region syncer

// Syncer drives posterior synchronization for claims against a claim store
// and, optionally, an evidence store. Syncs against the same claim ID are
// serialized by a per-claim lock; without it two concurrent syncs could
// interleave submit and read-back and fail verification on a value that was
// never wrong.
type Syncer struct {
	model    model.ParameterModel
	claims   ClaimStore
	evidence EvidenceStore

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates a Syncer. The evidence store may be nil when snapshots are
// supplied directly by the caller.
func New(m model.ParameterModel, cs ClaimStore, es EvidenceStore) *Syncer {
	return &Syncer{
		model:    m,
		claims:   cs,
		evidence: es,
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (s *Syncer) claimLock(claimID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[claimID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[claimID] = l
	}
	return l
}

// #endregion syncer

// #region sync-claim

// SyncClaim recomputes the posterior for the supplied snapshot, commits it
// in fixed-point form, and verifies the read-back. The snapshot is trusted
// as-is: each stage's snapshot should be a superset of the previous one,
// but that is the caller's contract; partial retraction is computed like
// any other snapshot, not rejected.
func (s *Syncer) SyncClaim(ctx context.Context, claimID int64, snapshot map[string]int) (Result, error) {
	post, err := infer.Infer(s.model, snapshot)
	if err != nil {
		return Result{}, err
	}

	l := s.claimLock(claimID)
	l.Lock()
	defer l.Unlock()

	scaledPPH := fixedpoint.FromProb(post.PPH)
	scaledPPR := fixedpoint.FromProb(post.PPR)

	receipt, err := s.claims.SubmitPosterior(ctx, claimID, scaledPPH, scaledPPR)
	if err != nil {
		return Result{}, &ExternalStoreError{Op: fmt.Sprintf("submit posterior for claim %d", claimID), Err: err}
	}

	stored, err := s.claims.GetClaim(ctx, claimID)
	if err != nil {
		return Result{}, &ExternalStoreError{Op: fmt.Sprintf("read back claim %d", claimID), Err: err}
	}
	if stored.PosteriorPPH != scaledPPH || stored.PosteriorPPR != scaledPPR {
		return Result{}, &CommitVerificationError{
			ClaimID:      claimID,
			SubmittedPPH: scaledPPH,
			SubmittedPPR: scaledPPR,
			StoredPPH:    stored.PosteriorPPH,
			StoredPPR:    stored.PosteriorPPR,
		}
	}

	return Result{
		ClaimID:   claimID,
		Snapshot:  snapshot,
		Posterior: post,
		ScaledPPH: scaledPPH,
		ScaledPPR: scaledPPR,
		Receipt:   receipt,
		StoredPPH: stored.PosteriorPPH,
		StoredPPR: stored.PosteriorPPR,
	}, nil
}

// SyncFromLedger folds the claim's evidence log into a snapshot and syncs
// with it.
func (s *Syncer) SyncFromLedger(ctx context.Context, claimID int64) (Result, error) {
	pieces, err := s.evidence.ListEvidenceForClaim(ctx, claimID)
	if err != nil {
		return Result{}, &ExternalStoreError{Op: fmt.Sprintf("list evidence for claim %d", claimID), Err: err}
	}
	return s.SyncClaim(ctx, claimID, FoldSnapshot(pieces))
}

// #endregion sync-claim

// #region fold

// FoldSnapshot collapses an ordered evidence sequence into a snapshot keyed
// by variable name, last write wins per variable. Pieces with an index
// outside the fixed topology are skipped rather than failing the fold.
func FoldSnapshot(pieces []claims.EvidencePiece) map[string]int {
	snapshot := make(map[string]int, model.VariableCount)
	for _, p := range pieces {
		name, err := model.VariableName(p.Index)
		if err != nil {
			continue
		}
		snapshot[name] = p.Value
	}
	return snapshot
}

// #endregion fold
