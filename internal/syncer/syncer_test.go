package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/medclaims/bn-oracle/go-oracle/internal/claims"
	"github.com/medclaims/bn-oracle/go-oracle/internal/infer"
	"github.com/medclaims/bn-oracle/go-oracle/internal/model"
)

// fakeClaimStore keeps claims in memory and can be told to misbehave.
type fakeClaimStore struct {
	mu        sync.Mutex
	rows      map[int64]claims.Claim
	submitErr error
	getErr    error
	// corruptBy is added to the stored PPH on submit, simulating a write
	// that lands wrong or is overwritten concurrently.
	corruptBy int64
	submits   int
}

func newFakeClaimStore(ids ...int64) *fakeClaimStore {
	rows := make(map[int64]claims.Claim, len(ids))
	for _, id := range ids {
		rows[id] = claims.Claim{ID: id, ExternalKey: "fake"}
	}
	return &fakeClaimStore{rows: rows}
}

func (f *fakeClaimStore) GetClaim(_ context.Context, claimID int64) (claims.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return claims.Claim{}, f.getErr
	}
	c, ok := f.rows[claimID]
	if !ok {
		return claims.Claim{}, errors.New("no such claim")
	}
	return c, nil
}

func (f *fakeClaimStore) SubmitPosterior(_ context.Context, claimID, scaledPPH, scaledPPR int64) (claims.TxReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.submitErr != nil {
		return claims.TxReceipt{}, f.submitErr
	}
	c, ok := f.rows[claimID]
	if !ok {
		return claims.TxReceipt{}, errors.New("no such claim")
	}
	c.PosteriorPPH = scaledPPH + f.corruptBy
	c.PosteriorPPR = scaledPPR
	f.rows[claimID] = c
	return claims.TxReceipt{TxID: "tx-fake", ClaimID: claimID}, nil
}

type fakeEvidenceStore struct {
	pieces  []claims.EvidencePiece
	listErr error
}

func (f *fakeEvidenceStore) ListEvidenceForClaim(_ context.Context, claimID int64) ([]claims.EvidencePiece, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []claims.EvidencePiece
	for _, p := range f.pieces {
		if p.ClaimID == claimID {
			out = append(out, p)
		}
	}
	return out, nil
}

func testModel(t *testing.T) model.ParameterModel {
	t.Helper()
	cpts := make(map[string][2][2]float64, model.VariableCount)
	for _, name := range model.VariableNames() {
		cpts[name] = [2][2]float64{{0.5, 0.5}, {0.5, 0.5}}
	}
	// GPS informative about PPH only.
	cpts[model.VarGPS] = [2][2]float64{{0.1, 0.1}, {0.9, 0.9}}
	m, err := model.New(0.5, 0.5, cpts)
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	return m
}

func TestSyncClaimCommitsAndVerifies(t *testing.T) {
	cs := newFakeClaimStore(1)
	s := New(testModel(t), cs, nil)

	res, err := s.SyncClaim(context.Background(), 1, map[string]int{"GPS": 1})
	if err != nil {
		t.Fatalf("SyncClaim: %v", err)
	}
	if res.ScaledPPH != 900_000 {
		t.Fatalf("scaled PPH = %d, want 900000", res.ScaledPPH)
	}
	if res.ScaledPPR != 500_000 {
		t.Fatalf("scaled PPR = %d, want 500000", res.ScaledPPR)
	}
	if res.StoredPPH != res.ScaledPPH || res.StoredPPR != res.ScaledPPR {
		t.Fatalf("read-back (%d, %d) differs from submitted", res.StoredPPH, res.StoredPPR)
	}
	if res.Receipt.TxID == "" {
		t.Fatal("expected receipt")
	}
}

func TestSyncClaimEmptySnapshotCommitsPriors(t *testing.T) {
	cs := newFakeClaimStore(1)
	s := New(testModel(t), cs, nil)

	res, err := s.SyncClaim(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("SyncClaim: %v", err)
	}
	if res.ScaledPPH != 500_000 || res.ScaledPPR != 500_000 {
		t.Fatalf("scaled = (%d, %d), want priors (500000, 500000)", res.ScaledPPH, res.ScaledPPR)
	}
}

func TestSyncClaimIdempotent(t *testing.T) {
	cs := newFakeClaimStore(1)
	s := New(testModel(t), cs, nil)
	snapshot := map[string]int{"GPS": 1, "PC": 0}

	first, err := s.SyncClaim(context.Background(), 1, snapshot)
	if err != nil {
		t.Fatalf("first SyncClaim: %v", err)
	}
	second, err := s.SyncClaim(context.Background(), 1, snapshot)
	if err != nil {
		t.Fatalf("second SyncClaim: %v", err)
	}
	if first.ScaledPPH != second.ScaledPPH || first.ScaledPPR != second.ScaledPPR {
		t.Fatalf("resubmission changed values: (%d,%d) then (%d,%d)",
			first.ScaledPPH, first.ScaledPPR, second.ScaledPPH, second.ScaledPPR)
	}
	if second.StoredPPH != second.ScaledPPH {
		t.Fatal("second read-back does not match")
	}
}

func TestSyncClaimVerificationMismatch(t *testing.T) {
	cs := newFakeClaimStore(1)
	cs.corruptBy = 7
	s := New(testModel(t), cs, nil)

	_, err := s.SyncClaim(context.Background(), 1, map[string]int{"GPS": 1})
	var ve *CommitVerificationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected CommitVerificationError, got %v", err)
	}
	if ve.ClaimID != 1 || ve.StoredPPH != ve.SubmittedPPH+7 {
		t.Fatalf("unexpected error detail: %+v", ve)
	}
}

func TestSyncClaimWrapsStoreFailures(t *testing.T) {
	sentinel := errors.New("ledger down")

	cs := newFakeClaimStore(1)
	cs.submitErr = sentinel
	s := New(testModel(t), cs, nil)

	_, err := s.SyncClaim(context.Background(), 1, nil)
	var se *ExternalStoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected ExternalStoreError, got %v", err)
	}
	if !errors.Is(err, sentinel) {
		t.Fatal("cause not preserved through wrap")
	}

	cs = newFakeClaimStore(1)
	cs.getErr = sentinel
	s = New(testModel(t), cs, nil)
	_, err = s.SyncClaim(context.Background(), 1, nil)
	if !errors.As(err, &se) {
		t.Fatalf("expected ExternalStoreError on read-back, got %v", err)
	}
}

func TestSyncClaimSurfacesDataErrorsUnchanged(t *testing.T) {
	cs := newFakeClaimStore(1)
	s := New(testModel(t), cs, nil)

	_, err := s.SyncClaim(context.Background(), 1, map[string]int{"BOGUS": 1})
	var ue *infer.UnknownVariableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnknownVariableError, got %v", err)
	}
	if cs.submits != 0 {
		t.Fatal("bad data must not reach the store")
	}
}

func TestFoldSnapshotLastWriteWins(t *testing.T) {
	pieces := []claims.EvidencePiece{
		{ClaimID: 1, Index: 0, Value: 1},
		{ClaimID: 1, Index: 1, Value: 0},
		{ClaimID: 1, Index: 0, Value: 0}, // later GPS report overrides
		{ClaimID: 1, Index: 9, Value: 1}, // out of topology, skipped
	}
	snapshot := FoldSnapshot(pieces)

	if len(snapshot) != 2 {
		t.Fatalf("snapshot = %v, want 2 entries", snapshot)
	}
	if snapshot["GPS"] != 0 {
		t.Fatalf("GPS = %d, want last-write 0", snapshot["GPS"])
	}
	if snapshot["PC"] != 0 {
		t.Fatalf("PC = %d, want 0", snapshot["PC"])
	}
}

func TestSyncFromLedgerFoldsAndCommits(t *testing.T) {
	cs := newFakeClaimStore(1)
	es := &fakeEvidenceStore{pieces: []claims.EvidencePiece{
		{ClaimID: 1, Index: 0, Value: 1},
		{ClaimID: 2, Index: 1, Value: 1}, // different claim, ignored
	}}
	s := New(testModel(t), cs, es)

	res, err := s.SyncFromLedger(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncFromLedger: %v", err)
	}
	if res.ScaledPPH != 900_000 {
		t.Fatalf("scaled PPH = %d, want 900000", res.ScaledPPH)
	}
	if _, ok := res.Snapshot["PC"]; ok {
		t.Fatal("evidence from another claim leaked into snapshot")
	}
}

func TestSyncFromLedgerWrapsListFailure(t *testing.T) {
	cs := newFakeClaimStore(1)
	es := &fakeEvidenceStore{listErr: errors.New("registry down")}
	s := New(testModel(t), cs, es)

	_, err := s.SyncFromLedger(context.Background(), 1)
	var se *ExternalStoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected ExternalStoreError, got %v", err)
	}
}

func TestSyncClaimSerializesPerClaim(t *testing.T) {
	store := newFakeClaimStore(1)
	s := New(testModel(t), store, nil)

	// Alternating snapshots race on one claim. Each sync must see its own
	// read-back, so none may fail verification.
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(bit int) {
			defer wg.Done()
			_, err := s.SyncClaim(context.Background(), 1, map[string]int{model.VarGPS: bit})
			errs <- err
		}(i % 2)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent SyncClaim: %v", err)
		}
	}
}
