package schema

import "fmt"

// ConditionScore is one ranked condition in a TriageResult.
type ConditionScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// TriageResult is the snapshot produced by either evaluation modality.
type TriageResult struct {
	Mode            AssessmentMode   `json:"mode,omitempty"`
	Conditions      []ConditionScore `json:"conditions"`
	RiskLevel       RiskTier         `json:"riskLevel"`
	Recommendations string           `json:"recommendations"`
	Explanation     []string         `json:"explanation"`
}

// ProtocolAssessmentResult converts a finished traversal into the result
// snapshot stored on a protocol-mode assessment.
func ProtocolAssessmentResult(term *TerminalView, log []AnswerLogEntry) *TriageResult {
	name := term.ProtocolName
	if name == "" {
		name = "Protocol Result"
	}
	explanation := make([]string, 0, len(log))
	for _, e := range log {
		explanation = append(explanation, fmt.Sprintf("%s: %s", e.Question, e.Answer))
	}
	return &TriageResult{
		Mode:            ModeProtocol,
		Conditions:      []ConditionScore{{Name: name, Score: 100}},
		RiskLevel:       term.Risk,
		Recommendations: term.Action,
		Explanation:     explanation,
	}
}
