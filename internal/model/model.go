package model

import (
	"fmt"
	"math"
)

// priorSumTolerance bounds the floating drift allowed when checking that the
// four joint prior weights sum to 1.
const priorSumTolerance = 1e-9

// #region errors
// RangeError reports a probability outside [0,1] after descaling. It points
// at corrupted store data and is fatal to the current run.
type RangeError struct {
	Field string
	Value float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("parameter %s: value %g outside [0,1]", e.Field, e.Value)
}

// TopologyError reports a mismatch against the fixed 4-evidence/2-hidden
// topology, e.g. an evidence index outside [0,4) or a wrong table count.
type TopologyError struct {
	Detail string
	Index  int
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("topology mismatch: %s (index %d)", e.Detail, e.Index)
}

// #endregion errors

// #region constructor
// New builds a ParameterModel from the two marginal priors and the per
// variable CPTs. The marginals are treated as independent: the joint prior
// weight at (pph, ppr) is the product of the two marginals evaluated there.
func New(priorPPH, priorPPR float64, cpts map[string][2][2]float64) (ParameterModel, error) {
	if priorPPH < 0 || priorPPH > 1 {
		return ParameterModel{}, &RangeError{Field: "prior PPH", Value: priorPPH}
	}
	if priorPPR < 0 || priorPPR > 1 {
		return ParameterModel{}, &RangeError{Field: "prior PPR", Value: priorPPR}
	}

	var joint [2][2]float64
	for pph := 0; pph < 2; pph++ {
		for ppr := 0; ppr < 2; ppr++ {
			ph := priorPPH
			if pph == 0 {
				ph = 1 - priorPPH
			}
			pr := priorPPR
			if ppr == 0 {
				pr = 1 - priorPPR
			}
			joint[pph][ppr] = ph * pr
		}
	}

	m := ParameterModel{PriorJoint: joint, CPTs: cpts}
	if err := m.Validate(); err != nil {
		return ParameterModel{}, err
	}
	return m, nil
}

// #endregion constructor

// #region validate
// Validate checks the structural invariants: joint prior sums to 1 within
// tolerance, exactly one CPT per evidence variable, every cell in [0,1].
func (m ParameterModel) Validate() error {
	var sum float64
	for pph := 0; pph < 2; pph++ {
		for ppr := 0; ppr < 2; ppr++ {
			w := m.PriorJoint[pph][ppr]
			if w < 0 {
				return &RangeError{Field: fmt.Sprintf("priorJoint[%d][%d]", pph, ppr), Value: w}
			}
			sum += w
		}
	}
	if math.Abs(sum-1) > priorSumTolerance {
		return &RangeError{Field: "priorJoint sum", Value: sum}
	}

	if len(m.CPTs) != VariableCount {
		return &TopologyError{
			Detail: fmt.Sprintf("expected %d CPTs, got %d", VariableCount, len(m.CPTs)),
			Index:  len(m.CPTs),
		}
	}
	for idx, name := range variableNames {
		table, ok := m.CPTs[name]
		if !ok {
			return &TopologyError{Detail: "missing CPT for " + name, Index: idx}
		}
		for pph := 0; pph < 2; pph++ {
			for ppr := 0; ppr < 2; ppr++ {
				p := table[pph][ppr]
				if p < 0 || p > 1 {
					return &RangeError{
						Field: fmt.Sprintf("cpt %s[%d][%d]", name, pph, ppr),
						Value: p,
					}
				}
			}
		}
	}
	return nil
}

// #endregion validate
