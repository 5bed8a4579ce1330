package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/medclaims/bn-oracle/go-oracle/internal/fixedpoint"
	"github.com/medclaims/bn-oracle/go-oracle/internal/model"
)

// countingStore serves priors/cells from maps and counts every read.
type countingStore struct {
	priors map[string]int64
	cells  map[[3]int]int64
	reads  int
	fail   error
}

func (s *countingStore) GetPrior(_ context.Context, name string) (int64, error) {
	s.reads++
	if s.fail != nil {
		return 0, s.fail
	}
	v, ok := s.priors[name]
	if !ok {
		return 0, fmt.Errorf("no prior %s", name)
	}
	return v, nil
}

func (s *countingStore) GetCPTCell(_ context.Context, idx, pph, ppr int) (int64, error) {
	s.reads++
	if s.fail != nil {
		return 0, s.fail
	}
	v, ok := s.cells[[3]int{idx, pph, ppr}]
	if !ok {
		return 0, fmt.Errorf("no cell (%d,%d,%d)", idx, pph, ppr)
	}
	return v, nil
}

func neutralStore() *countingStore {
	s := &countingStore{
		priors: map[string]int64{"PPH": 300_000, "PPR": 400_000},
		cells:  make(map[[3]int]int64),
	}
	for idx := 0; idx < model.VariableCount; idx++ {
		for pph := 0; pph < 2; pph++ {
			for ppr := 0; ppr < 2; ppr++ {
				s.cells[[3]int{idx, pph, ppr}] = fixedpoint.Scale / 2
			}
		}
	}
	return s
}

func TestLoadRebuildsModel(t *testing.T) {
	store := neutralStore()
	store.cells[[3]int{0, 1, 0}] = 900_000 // GPS at (pph=1, ppr=0)

	m, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := m.PriorPPH(); math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("PriorPPH = %g, want 0.3", got)
	}
	if got := m.PriorPPR(); math.Abs(got-0.4) > 1e-9 {
		t.Fatalf("PriorPPR = %g, want 0.4", got)
	}
	if got := m.CPTs[model.VarGPS][1][0]; math.Abs(got-0.9) > 1e-9 {
		t.Fatalf("GPS[1][0] = %g, want 0.9", got)
	}
	if got := m.CPTs[model.VarPR][0][1]; math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("PR[0][1] = %g, want 0.5", got)
	}
}

func TestLoadPerformsExactReadCount(t *testing.T) {
	store := neutralStore()

	if _, err := Load(context.Background(), store); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if store.reads != ScalarReads {
		t.Fatalf("performed %d reads, want %d", store.reads, ScalarReads)
	}
	if ScalarReads != 18 {
		t.Fatalf("ScalarReads = %d, want 18 for the fixed topology", ScalarReads)
	}
}

func TestLoadRejectsCorruptScaledValue(t *testing.T) {
	store := neutralStore()
	store.cells[[3]int{2, 0, 1}] = fixedpoint.Scale + 5 // descales above 1

	_, err := Load(context.Background(), store)
	var re *model.RangeError
	if !errors.As(err, &re) {
		t.Fatalf("expected model.RangeError, got %v", err)
	}
}

func TestLoadPropagatesStoreFailure(t *testing.T) {
	sentinel := errors.New("store unreachable")
	store := neutralStore()
	store.fail = sentinel

	_, err := Load(context.Background(), store)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
