package model

import (
	"errors"
	"math"
	"testing"
)

func uniformCPTs(p float64) map[string][2][2]float64 {
	cpts := make(map[string][2][2]float64, VariableCount)
	for _, name := range VariableNames() {
		cpts[name] = [2][2]float64{{p, p}, {p, p}}
	}
	return cpts
}

func TestNewBuildsIndependentJoint(t *testing.T) {
	m, err := New(0.3, 0.4, uniformCPTs(0.5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// joint = product of marginals
	if got := m.PriorJoint[1][1]; math.Abs(got-0.3*0.4) > 1e-12 {
		t.Fatalf("joint[1][1] = %g, want %g", got, 0.3*0.4)
	}
	if got := m.PriorJoint[0][0]; math.Abs(got-0.7*0.6) > 1e-12 {
		t.Fatalf("joint[0][0] = %g, want %g", got, 0.7*0.6)
	}

	if got := m.PriorPPH(); math.Abs(got-0.3) > 1e-12 {
		t.Fatalf("PriorPPH = %g, want 0.3", got)
	}
	if got := m.PriorPPR(); math.Abs(got-0.4) > 1e-12 {
		t.Fatalf("PriorPPR = %g, want 0.4", got)
	}
}

func TestNewRejectsOutOfRangePrior(t *testing.T) {
	_, err := New(1.2, 0.4, uniformCPTs(0.5))
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RangeError, got %v", err)
	}
}

func TestValidateRejectsOutOfRangeCPTCell(t *testing.T) {
	cpts := uniformCPTs(0.5)
	cpts[VarPC] = [2][2]float64{{0.5, 0.5}, {0.5, 1.5}}

	_, err := New(0.3, 0.4, cpts)
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RangeError, got %v", err)
	}
}

func TestValidateRejectsMissingTable(t *testing.T) {
	cpts := uniformCPTs(0.5)
	delete(cpts, VarPMD)

	_, err := New(0.3, 0.4, cpts)
	var te *TopologyError
	if !errors.As(err, &te) {
		t.Fatalf("expected TopologyError, got %v", err)
	}
}

func TestVariableNameBijection(t *testing.T) {
	want := []string{"GPS", "PC", "PMD", "PR"}
	for idx, expected := range want {
		name, err := VariableName(idx)
		if err != nil {
			t.Fatalf("VariableName(%d): %v", idx, err)
		}
		if name != expected {
			t.Fatalf("VariableName(%d) = %s, want %s", idx, name, expected)
		}
	}

	for _, idx := range []int{-1, 4, 100} {
		_, err := VariableName(idx)
		var te *TopologyError
		if !errors.As(err, &te) {
			t.Fatalf("VariableName(%d): expected TopologyError, got %v", idx, err)
		}
	}
}

func TestExtremePriorsStillSumToOne(t *testing.T) {
	m, err := New(0, 1, uniformCPTs(0.5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var sum float64
	for pph := 0; pph < 2; pph++ {
		for ppr := 0; ppr < 2; ppr++ {
			sum += m.PriorJoint[pph][ppr]
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("joint sum = %g, want 1", sum)
	}
}
