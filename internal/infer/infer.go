// Package infer computes exact posteriors over the two hidden outcomes by
// enumerating the four joint hidden states. The network is small and fixed,
// so enumeration is the only inference mode.
package infer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/medclaims/bn-oracle/go-oracle/internal/model"
)

// #region types
// Posterior holds the marginal posteriors P(PPH=1|evidence) and
// P(PPR=1|evidence).
type Posterior struct {
	PPH float64
	PPR float64
}

// #endregion types

// #region errors
// UnknownVariableError reports an evidence name outside the fixed
// vocabulary. Caller bug, rejected before any computation.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown evidence variable %q", e.Name)
}

// DegenerateEvidenceError reports that every joint weight was exactly zero,
// so the posterior is undefined. Happens only when hard 0/1 CPT cells meet
// contradicting evidence. Surfaced instead of dividing by zero.
type DegenerateEvidenceError struct {
	Evidence map[string]int
}

func (e *DegenerateEvidenceError) Error() string {
	return fmt.Sprintf("all joint weights zero under evidence %s", formatEvidence(e.Evidence))
}

func formatEvidence(ev map[string]int) string {
	if len(ev) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(ev))
	for name, v := range ev {
		parts = append(parts, fmt.Sprintf("%s=%d", name, v))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ", ") + "}"
}

// #endregion errors

// #region infer
// Infer conditions the model on a partial evidence assignment and returns
// the marginal posteriors. Pure function: no state, no side effects, same
// inputs always produce bit-identical outputs. Variables absent from
// evidence contribute no likelihood factor; they are marginalized out by
// conditional independence given (PPH, PPR).
func Infer(m model.ParameterModel, evidence map[string]int) (Posterior, error) {
	joint, err := jointPosterior(m, evidence)
	if err != nil {
		return Posterior{}, err
	}
	return Posterior{
		PPH: joint[1][0] + joint[1][1],
		PPR: joint[0][1] + joint[1][1],
	}, nil
}

// jointPosterior computes the normalized joint posterior over the four
// hidden states.
func jointPosterior(m model.ParameterModel, evidence map[string]int) ([2][2]float64, error) {
	for name, v := range evidence {
		if !model.IsVariable(name) {
			return [2][2]float64{}, &UnknownVariableError{Name: name}
		}
		if v != 0 && v != 1 {
			return [2][2]float64{}, fmt.Errorf("evidence %s: value %d is not binary", name, v)
		}
	}

	// Factors multiply in fixed index order so repeated calls round
	// identically; ranging over the map would not be bit-reproducible.
	names := model.VariableNames()

	var weights [2][2]float64
	var total float64
	for pph := 0; pph < 2; pph++ {
		for ppr := 0; ppr < 2; ppr++ {
			w := m.PriorJoint[pph][ppr]
			for _, name := range names {
				observed, ok := evidence[name]
				if !ok {
					continue
				}
				pTrue := m.CPTs[name][pph][ppr]
				if observed == 1 {
					w *= pTrue
				} else {
					w *= 1 - pTrue
				}
			}
			weights[pph][ppr] = w
			total += w
		}
	}

	if total == 0 {
		return [2][2]float64{}, &DegenerateEvidenceError{Evidence: evidence}
	}

	for pph := 0; pph < 2; pph++ {
		for ppr := 0; ppr < 2; ppr++ {
			weights[pph][ppr] /= total
		}
	}
	return weights, nil
}

// #endregion infer
