package models

// DetectRequest is the JSON body posted to the detect endpoint
type DetectRequest struct {
	Prompt string `json:"prompt"`
}

// ResultKind tags which variant of DetectResult the backend returned
type ResultKind int

const (
	// ResultGenerated carries the generated continuation
	ResultGenerated ResultKind = iota
	// ResultWarning carries a warning that replaces the continuation
	ResultWarning
)

// String returns the lowercase name of the kind
func (k ResultKind) String() string {
	switch k {
	case ResultGenerated:
		return "generated"
	case ResultWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// SensitiveEntity is one entity the backend flagged in the prompt or in the generated text
type SensitiveEntity struct {
	Entity string `json:"entity"`
	Value  string `json:"value"`
}

// DetectResult is the decoded detect response.
// Exactly one of Generated or Warning is meaningful, selected by Kind.
type DetectResult struct {
	Kind      ResultKind
	Generated string
	Warning   string

	// Anomaly is the entity label of the first flagged entity, if any
	Anomaly   string
	Sensitive []SensitiveEntity
}

// NewGenerated builds a generated-text result
func NewGenerated(text string) *DetectResult {
	return &DetectResult{Kind: ResultGenerated, Generated: text}
}

// NewWarning builds a warning result
func NewWarning(warning string) *DetectResult {
	return &DetectResult{Kind: ResultWarning, Warning: warning}
}

// ReplyText returns the text the chat widget shows for this result
func (r *DetectResult) ReplyText() string {
	if r.Kind == ResultWarning {
		return WarningPrefix + r.Warning
	}
	return r.Generated
}

// HasSensitiveData reports whether the backend flagged any entity
func (r *DetectResult) HasSensitiveData() bool {
	return len(r.Sensitive) > 0
}
