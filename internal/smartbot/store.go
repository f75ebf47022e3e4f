package smartbot

import (
	"context"

	"github.com/Rauan228/HackNU2/internal/analysis"
	"github.com/Rauan228/HackNU2/internal/realtime"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
)

// Store is the persistence the orchestrator needs. Lookups return (nil, nil)
// when the record does not exist.
type Store interface {
	GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error)
	GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error)
	GetResume(ctx context.Context, id uuid.UUID) (*types.Resume, error)
	GetUser(ctx context.Context, id uuid.UUID) (*types.User, error)

	// CreateSession returns ErrSessionExists when the application already has one.
	CreateSession(ctx context.Context, s *types.Session) error
	GetSession(ctx context.Context, id string) (*types.Session, error)
	GetSessionByApplication(ctx context.Context, applicationID uuid.UUID) (*types.Session, error)
	// UpdateSession writes s if the stored version equals s.Version and bumps
	// s.Version on success. A mismatch returns ErrVersionConflict.
	UpdateSession(ctx context.Context, s *types.Session) error
	// ResetSession removes the analysis, categories and messages of s and puts
	// it back to active, atomically.
	ResetSession(ctx context.Context, s *types.Session) error

	// AppendMessage assigns m.ID.
	AppendMessage(ctx context.Context, m *types.Message) error
	GetMessage(ctx context.Context, id int64) (*types.Message, error)
	ListMessages(ctx context.Context, sessionID string) ([]types.Message, error)

	CreateAnalysis(ctx context.Context, a *types.CandidateAnalysis) error
	GetAnalysisBySession(ctx context.Context, sessionID string) (*types.CandidateAnalysis, error)
	UpdateAnalysis(ctx context.Context, a *types.CandidateAnalysis) error

	CreateCategories(ctx context.Context, cats []types.AnalysisCategory) error
	ListCategories(ctx context.Context, analysisID uuid.UUID) ([]types.AnalysisCategory, error)

	// SaveTurn applies every write of one reply atomically. Nothing is
	// written when it returns an error.
	SaveTurn(ctx context.Context, t *Turn) error
}

// Turn is what one candidate reply writes.
//
// Answer and Next are appended in that order and get their IDs assigned.
// Clarified, when set, replaces the stored category. Analysis is written
// with the same rules as UpdateAnalysis. Session is written last, with the
// version check of UpdateSession; its pending question becomes Next when
// Next is a question and is cleared otherwise.
type Turn struct {
	Session   *types.Session
	Answer    *types.Message
	Next      *types.Message
	Clarified *types.AnalysisCategory
	Analysis  *types.CandidateAnalysis
}

// PendingQuestion returns the question Next leaves open, or nil.
func (t *Turn) PendingQuestion() *int64 {
	if t.Next == nil || t.Next.Type != types.MessageQuestion {
		return nil
	}
	id := t.Next.ID
	return &id
}

// Analyzer produces the initial fit assessment.
type Analyzer interface {
	Analyze(ctx context.Context, job types.Job, candidate types.Candidate) analysis.Result
}

// Finalizer produces the final assessment of a finished dialogue.
type Finalizer interface {
	Finalize(ctx context.Context, history []types.Message, initialScore int) analysis.FinalResult
}

// Publisher fans out realtime events. Delivery is best-effort.
type Publisher interface {
	Publish(key string, ev realtime.Event)
}

// Notifier is told when a session completes.
type Notifier interface {
	NotifyCompletion(ctx context.Context, sessionID string) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, realtime.Event) {}

type nopNotifier struct{}

func (nopNotifier) NotifyCompletion(context.Context, string) error { return nil }
