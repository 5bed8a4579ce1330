package model

// #region variables
// Evidence variable names in the fixed four-variable topology.
const (
	VarGPS = "GPS"
	VarPC  = "PC"
	VarPMD = "PMD"
	VarPR  = "PR"
)

// Hidden outcome names, used as prior keys in parameter stores.
const (
	HiddenPPH = "PPH"
	HiddenPPR = "PPR"
)

// VariableCount is the number of observed evidence variables.
const VariableCount = 4

// variableNames maps evidence index to variable name. The order is a shared
// contract with every parameter and evidence store and must not change.
var variableNames = [VariableCount]string{VarGPS, VarPC, VarPMD, VarPR}

// VariableNames returns the evidence variable names in index order.
func VariableNames() []string {
	names := make([]string, VariableCount)
	copy(names, variableNames[:])
	return names
}

// VariableName resolves an evidence index to its variable name.
// Indices outside [0, VariableCount) indicate store schema drift.
func VariableName(idx int) (string, error) {
	if idx < 0 || idx >= VariableCount {
		return "", &TopologyError{Detail: "evidence index out of range", Index: idx}
	}
	return variableNames[idx], nil
}

// IsVariable reports whether name is part of the fixed vocabulary.
func IsVariable(name string) bool {
	for _, n := range variableNames {
		if n == name {
			return true
		}
	}
	return false
}

// #endregion variables

// #region parameter-model
// ParameterModel holds the joint prior over the two hidden outcomes (PPH,
// PPR) and one CPT per evidence variable. Built once per run by the
// bootstrap loader and treated as immutable afterwards.
type ParameterModel struct {
	// PriorJoint[pph][ppr] is the prior weight of the joint hidden state.
	// The four weights sum to 1.
	PriorJoint [2][2]float64

	// CPTs maps each evidence variable name to P(evidence=1 | pph, ppr).
	CPTs map[string][2][2]float64
}

// PriorPPH returns the marginal prior P(PPH=1).
func (m ParameterModel) PriorPPH() float64 {
	return m.PriorJoint[1][0] + m.PriorJoint[1][1]
}

// PriorPPR returns the marginal prior P(PPR=1).
func (m ParameterModel) PriorPPR() float64 {
	return m.PriorJoint[0][1] + m.PriorJoint[1][1]
}

// #endregion parameter-model
