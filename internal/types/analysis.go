package types

// Discrepancy is a single category-level mismatch between job and candidate.
type Discrepancy struct {
	Category string   `json:"category"`
	Issue    string   `json:"issue"`
	Severity Severity `json:"severity"`
}

// Question is a clarification question posed to the candidate.
type Question struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Reason   string `json:"reason"`
}

// AnalysisResult is the initial fit assessment of a candidate against a job.
type AnalysisResult struct {
	InitialScore   int            `json:"initial_score"`
	Discrepancies  []Discrepancy  `json:"discrepancies"`
	Questions      []Question     `json:"questions"`
	Strengths      []string       `json:"strengths"`
	Concerns       []string       `json:"concerns"`
	Recommendation Recommendation `json:"recommendation"`
}

// FinalAssessment is the outcome of finalizing a dialogue.
// Recommendation is empty when the producer did not supply a valid one.
type FinalAssessment struct {
	FinalScore        int            `json:"final_score"`
	Summary           string         `json:"summary"`
	Recommendation    Recommendation `json:"recommendation,omitempty"`
	KeyInsights       []string       `json:"key_insights,omitempty"`
	ResolvedConcerns  []string       `json:"resolved_concerns,omitempty"`
	RemainingConcerns []string       `json:"remaining_concerns,omitempty"`
}

// MessageMetadata is attached to question messages. Remaining is the queue of
// questions still to be asked after this one.
type MessageMetadata struct {
	Category  *string    `json:"question_category,omitempty"`
	Reason    *string    `json:"question_reason,omitempty"`
	Remaining []Question `json:"remaining_questions"`
}

// NewQuestionMetadata builds the metadata for asking q with the given queue left.
func NewQuestionMetadata(q Question, remaining []Question) *MessageMetadata {
	category, reason := q.Category, q.Reason
	queue := make([]Question, len(remaining))
	copy(queue, remaining)
	return &MessageMetadata{Category: &category, Reason: &reason, Remaining: queue}
}

// CategoryName returns the category or "" when unknown.
func (m *MessageMetadata) CategoryName() string {
	if m == nil || m.Category == nil {
		return ""
	}
	return *m.Category
}

// ReasonText returns the rationale or "" when unknown.
func (m *MessageMetadata) ReasonText() string {
	if m == nil || m.Reason == nil {
		return ""
	}
	return *m.Reason
}

// Pop splits the remaining queue into the next question and the rest.
// ok is false when the queue is empty.
func (m *MessageMetadata) Pop() (next Question, rest []Question, ok bool) {
	if m == nil || len(m.Remaining) == 0 {
		return Question{}, nil, false
	}
	rest = make([]Question, len(m.Remaining)-1)
	copy(rest, m.Remaining[1:])
	return m.Remaining[0], rest, true
}

// Clarification is a candidate answer recorded against a category.
type Clarification struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
	Answer   string `json:"answer"`
}
