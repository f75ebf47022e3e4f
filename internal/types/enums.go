// Package types provides the domain records shared by the SmartBot analysis engine,
// its persistence layers and the HTTP API.
package types

import "strings"

// SessionStatus is the lifecycle state of an analysis session.
type SessionStatus string

const (
	// SessionActive means the session is awaiting (or processing) a candidate reply.
	SessionActive SessionStatus = "active"
	// SessionCompleted means the session was finalized.
	SessionCompleted SessionStatus = "completed"
	// SessionAbandoned means the session was closed without finalization.
	SessionAbandoned SessionStatus = "abandoned"
	// SessionError means session setup failed; the row is kept as evidence.
	SessionError SessionStatus = "error"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionCompleted, SessionAbandoned, SessionError:
		return true
	}
	return false
}

// Terminal reports whether no more replies can be accepted.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// MessageType classifies a transcript entry.
type MessageType string

const (
	MessageBot        MessageType = "bot"
	MessageUser       MessageType = "user"
	MessageSystem     MessageType = "system"
	MessageQuestion   MessageType = "question"
	MessageInfo       MessageType = "info"
	MessageAnswer     MessageType = "answer"
	MessageCompletion MessageType = "completion"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageBot, MessageUser, MessageSystem, MessageQuestion, MessageInfo, MessageAnswer, MessageCompletion:
		return true
	}
	return false
}

// FromCandidate reports whether the message was authored by the candidate.
func (t MessageType) FromCandidate() bool {
	return t == MessageAnswer || t == MessageUser
}

// AnalysisStatus is the state of a CandidateAnalysis record.
type AnalysisStatus string

const (
	AnalysisPending    AnalysisStatus = "pending"
	AnalysisInProgress AnalysisStatus = "in_progress"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
)

// Valid reports whether s is a known analysis status.
func (s AnalysisStatus) Valid() bool {
	switch s {
	case AnalysisPending, AnalysisInProgress, AnalysisCompleted, AnalysisFailed:
		return true
	}
	return false
}

// Recommendation is the hiring recommendation bucket.
type Recommendation string

const (
	RecommendationRecommend Recommendation = "recommend"
	RecommendationConsider  Recommendation = "consider"
	RecommendationReject    Recommendation = "reject"
)

// Valid reports whether r is one of the three labels.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationRecommend, RecommendationConsider, RecommendationReject:
		return true
	}
	return false
}

// ParseRecommendation normalizes free text from a generation backend.
// The second return value is false when the label is unknown.
func ParseRecommendation(s string) (Recommendation, bool) {
	r := Recommendation(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// CategoryStatus is the state of a per-category finding.
type CategoryStatus string

const (
	CategoryMismatch  CategoryStatus = "mismatch"
	CategoryClarified CategoryStatus = "clarified"
	CategoryMatch     CategoryStatus = "match"
	CategoryUnknown   CategoryStatus = "unknown"
)

// Severity grades a discrepancy.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity normalizes a severity label; unknown labels become medium.
func ParseSeverity(s string) Severity {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return sev
	}
	return SeverityMedium
}

// UserRole distinguishes candidates from employers.
type UserRole string

const (
	RoleCandidate UserRole = "candidate"
	RoleEmployer  UserRole = "employer"
)
