package types

import (
	"time"

	"github.com/google/uuid"
)

// Session is a clarification dialogue tied to one job application.
type Session struct {
	ID                string        `json:"session_id"`
	ApplicationID     uuid.UUID     `json:"application_id"`
	JobID             uuid.UUID     `json:"job_id"`
	Status            SessionStatus `json:"status"`
	PendingQuestionID *int64        `json:"pending_question_id,omitempty"`
	Version           int           `json:"version"`
	StartedAt         time.Time     `json:"started_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
}

// Message is an append-only transcript entry.
type Message struct {
	ID        int64            `json:"id"`
	SessionID string           `json:"session_id"`
	Type      MessageType      `json:"type"`
	Content   string           `json:"content"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// CandidateAnalysis is the accumulating scoring record of a session.
type CandidateAnalysis struct {
	ID                  uuid.UUID       `json:"id"`
	SessionID           string          `json:"session_id"`
	ApplicationID       uuid.UUID       `json:"application_id"`
	RelevanceScore      int             `json:"relevance_score"`
	InitialScore        int             `json:"initial_score"`
	FinalScore          *int            `json:"final_score,omitempty"`
	Status              AnalysisStatus  `json:"status"`
	Strengths           []string        `json:"strengths"`
	Weaknesses          []string        `json:"weaknesses"`
	MissingRequirements []string        `json:"missing_requirements"`
	Clarifications      []Clarification `json:"clarifications"`
	KeyInsights         []string        `json:"key_insights"`
	RemainingConcerns   []string        `json:"remaining_concerns"`
	Summary             string          `json:"summary"`
	Recommendation      Recommendation  `json:"recommendation"`
	QuestionsAsked      int             `json:"questions_asked"`
	QuestionsAnswered   int             `json:"questions_answered"`
	AnalysisCompleted   bool            `json:"analysis_completed"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// CurrentScore is the final score when set, otherwise the initial score.
func (a *CandidateAnalysis) CurrentScore() int {
	if a == nil {
		return 0
	}
	if a.FinalScore != nil {
		return *a.FinalScore
	}
	return a.InitialScore
}

// AnalysisCategory is a per-discrepancy finding.
type AnalysisCategory struct {
	ID         uuid.UUID      `json:"id"`
	AnalysisID uuid.UUID      `json:"analysis_id"`
	Category   string         `json:"name"`
	Status     CategoryStatus `json:"status"`
	Severity   Severity       `json:"severity"`
	Score      int            `json:"score"`
	Details    string         `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}
