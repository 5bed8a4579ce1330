// Package bootstrap reconstructs the parameter model from scaled integers
// held by an external parameter store.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/medclaims/bn-oracle/go-oracle/internal/fixedpoint"
	"github.com/medclaims/bn-oracle/go-oracle/internal/model"
)

// #region interface
// ParameterStore is the read-only view of wherever priors and CPTs are
// authoritatively held. Values are fixed-point integers in [0, Scale].
type ParameterStore interface {
	GetPrior(ctx context.Context, name string) (int64, error)
	GetCPTCell(ctx context.Context, idx, pph, ppr int) (int64, error)
}

// #endregion interface

// ScalarReads is the exact number of store reads one Load performs: two
// priors plus 2x2 cells for each of the four evidence variables. The fixed
// topology makes this a constant; a store schema change must not silently
// alter it.
const ScalarReads = 2 + model.VariableCount*2*2

// #region load
// Load performs the ScalarReads reads, descales each value by the shared
// fixed-point factor, and builds a validated ParameterModel. Out-of-range
// descaled values surface as model.RangeError; store failures propagate
// wrapped.
func Load(ctx context.Context, store ParameterStore) (model.ParameterModel, error) {
	rawPPH, err := store.GetPrior(ctx, model.HiddenPPH)
	if err != nil {
		return model.ParameterModel{}, fmt.Errorf("read prior PPH: %w", err)
	}
	rawPPR, err := store.GetPrior(ctx, model.HiddenPPR)
	if err != nil {
		return model.ParameterModel{}, fmt.Errorf("read prior PPR: %w", err)
	}

	cpts := make(map[string][2][2]float64, model.VariableCount)
	for idx := 0; idx < model.VariableCount; idx++ {
		name, err := model.VariableName(idx)
		if err != nil {
			return model.ParameterModel{}, err
		}
		var table [2][2]float64
		for pph := 0; pph < 2; pph++ {
			for ppr := 0; ppr < 2; ppr++ {
				raw, err := store.GetCPTCell(ctx, idx, pph, ppr)
				if err != nil {
					return model.ParameterModel{}, fmt.Errorf("read cpt %s[%d][%d]: %w", name, pph, ppr, err)
				}
				table[pph][ppr] = fixedpoint.ToProb(raw)
			}
		}
		cpts[name] = table
	}

	return model.New(fixedpoint.ToProb(rawPPH), fixedpoint.ToProb(rawPPR), cpts)
}

// #endregion load
