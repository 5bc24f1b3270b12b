package domain

// MinCoreFieldsForScoring is how many of the six core fields must be known
// before the scoring engine may run. Missing data is penalised by the
// engine's no_data tiers rather than blocking scoring.
const MinCoreFieldsForScoring = 4

// GateResult is the outcome of the completeness gate.
type GateResult struct {
	Ready   bool     `json:"ready"`
	Present []string `json:"present"`
	Missing []string `json:"missing"`
}

// EvaluateGate decides whether enough structured information exists to score.
func EvaluateGate(fields QualificationFields) GateResult {
	result := GateResult{
		Present: make([]string, 0, len(CoreFields)),
		Missing: make([]string, 0, len(CoreFields)),
	}
	for _, name := range CoreFields {
		if fields.HasCoreField(name) {
			result.Present = append(result.Present, name)
		} else {
			result.Missing = append(result.Missing, name)
		}
	}
	result.Ready = len(result.Present) >= MinCoreFieldsForScoring
	return result
}
