package schema

import "strings"

// Answer is the operator's reply to a QuestionNode.
type Answer string

const (
	AnswerYes Answer = "yes"
	AnswerNo  Answer = "no"
)

// ParseAnswer normalises a yes/no answer. Case and surrounding space are
// ignored; anything else is a validation error.
func ParseAnswer(s string) (Answer, error) {
	switch Answer(strings.ToLower(strings.TrimSpace(s))) {
	case AnswerYes:
		return AnswerYes, nil
	case AnswerNo:
		return AnswerNo, nil
	default:
		return "", Invalidf("answer must be yes or no, got %q", s)
	}
}

// QuestionView is what the operator sees while a traversal is in progress.
type QuestionView struct {
	NodeID       NodeID  `json:"nodeId"`
	Question     string  `json:"question"`
	Weight       float64 `json:"weight"`
	ProtocolName string  `json:"protocolName"`
}

// TerminalView is the outcome of a traversal. Degraded marks results
// synthesised for authoring gaps rather than read from a ResultNode.
type TerminalView struct {
	Risk         RiskTier `json:"risk"`
	Action       string   `json:"action"`
	ProtocolName string   `json:"protocolName"`
	Degraded     bool     `json:"degraded,omitempty"`
}

// StepView is either a question (Done=false) or a terminal result.
type StepView struct {
	Done bool `json:"done"`
	*QuestionView
	Result *TerminalView `json:"result,omitempty"`
}

// QuestionStep wraps a QuestionView.
func QuestionStep(v QuestionView) *StepView {
	return &StepView{QuestionView: &v}
}

// TerminalStep wraps a TerminalView.
func TerminalStep(v TerminalView) *StepView {
	return &StepView{Done: true, Result: &v}
}

// AnswerLogEntry records one answered question of a protocol session.
type AnswerLogEntry struct {
	Question string `json:"question"`
	Answer   Answer `json:"answer"`
}
