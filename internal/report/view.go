// Package report builds the employer-facing read views of analysis sessions:
// per-application reports, ranked job listings, summary statistics and the
// spreadsheet export.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Rauan228/HackNU2/internal/scoring"
	"github.com/Rauan228/HackNU2/internal/smartbot"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of views built at once by JobViews.
const DefaultConcurrency = 8

// Store is the read side the views are built from.
type Store interface {
	GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error)
	GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error)
	GetResume(ctx context.Context, id uuid.UUID) (*types.Resume, error)
	GetUser(ctx context.Context, id uuid.UUID) (*types.User, error)
	ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]types.Application, error)
	GetSession(ctx context.Context, id string) (*types.Session, error)
	GetSessionByApplication(ctx context.Context, applicationID uuid.UUID) (*types.Session, error)
	GetAnalysisBySession(ctx context.Context, sessionID string) (*types.CandidateAnalysis, error)
	ListMessages(ctx context.Context, sessionID string) ([]types.Message, error)
	ListCategories(ctx context.Context, analysisID uuid.UUID) ([]types.AnalysisCategory, error)
}

// CandidateInfo identifies the applicant.
type CandidateInfo struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone,omitempty"`
	Location string    `json:"location,omitempty"`
}

// ApplicationView is what an employer sees about one application.
type ApplicationView struct {
	ApplicationID       uuid.UUID                `json:"application_id"`
	JobID               uuid.UUID                `json:"job_id"`
	SessionID           string                   `json:"session_id"`
	SessionStatus       types.SessionStatus      `json:"session_status"`
	Candidate           CandidateInfo            `json:"candidate"`
	Score               int                      `json:"score"`
	InitialScore        int                      `json:"initial_score"`
	FinalScore          *int                     `json:"final_score,omitempty"`
	Recommendation      types.Recommendation     `json:"recommendation"`
	Summary             string                   `json:"summary"`
	Strengths           []string                 `json:"strengths"`
	Concerns            []string                 `json:"concerns"`
	MissingRequirements []string                 `json:"missing_requirements"`
	KeyInsights         []string                 `json:"key_insights"`
	RemainingConcerns   []string                 `json:"remaining_concerns"`
	Clarifications      []types.Clarification    `json:"clarifications"`
	QuestionsAsked      int                      `json:"questions_asked"`
	QuestionsAnswered   int                      `json:"questions_answered"`
	Completed           bool                     `json:"analysis_completed"`
	Categories          []types.AnalysisCategory `json:"categories"`
	Transcript          []types.Message          `json:"transcript"`
	AppliedAt           time.Time                `json:"applied_at"`
	AnalyzedAt          *time.Time               `json:"analyzed_at,omitempty"`
}

// Builder assembles views from a Store.
type Builder struct {
	store       Store
	concurrency int
}

// NewBuilder creates a Builder. concurrency <= 0 uses DefaultConcurrency.
func NewBuilder(store Store, concurrency int) *Builder {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Builder{store: store, concurrency: concurrency}
}

// ApplicationView returns the report of one application. An application
// without a session is reported as not found.
func (b *Builder) ApplicationView(ctx context.Context, applicationID uuid.UUID) (*ApplicationView, error) {
	app, err := b.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if app == nil {
		return nil, &smartbot.NotFoundError{Resource: "application", ID: applicationID.String()}
	}
	view, err := b.build(ctx, app)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, &smartbot.NotFoundError{Resource: "analysis of application", ID: applicationID.String()}
	}
	return view, nil
}

// SessionView returns the report of the application a session belongs to.
func (b *Builder) SessionView(ctx context.Context, sessionID string) (*ApplicationView, error) {
	sess, err := b.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, &smartbot.SessionNotFoundError{SessionID: sessionID}
	}
	return b.ApplicationView(ctx, sess.ApplicationID)
}

// JobViews returns the views of every analyzed application of a job, best score first.
func (b *Builder) JobViews(ctx context.Context, jobID uuid.UUID) ([]ApplicationView, error) {
	apps, err := b.store.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	views := make([]*ApplicationView, len(apps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range apps {
		app := apps[i]
		g.Go(func() error {
			v, err := b.build(gctx, &app)
			if err != nil {
				return fmt.Errorf("application %s: %w", app.ID, err)
			}
			views[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]ApplicationView, 0, len(views))
	for _, v := range views {
		if v != nil {
			out = append(out, *v)
		}
	}
	Rank(out)
	return out, nil
}

// Rank sorts views by descending score, earlier applications first on ties.
func Rank(views []ApplicationView) {
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Score != views[j].Score {
			return views[i].Score > views[j].Score
		}
		return views[i].AppliedAt.Before(views[j].AppliedAt)
	})
}

// build returns nil when the application has no session yet.
func (b *Builder) build(ctx context.Context, app *types.Application) (*ApplicationView, error) {
	sess, err := b.store.GetSessionByApplication(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	view := &ApplicationView{
		ApplicationID:       app.ID,
		JobID:               app.JobID,
		SessionID:           sess.ID,
		SessionStatus:       sess.Status,
		AppliedAt:           app.CreatedAt,
		AnalyzedAt:          sess.CompletedAt,
		Strengths:           []string{},
		Concerns:            []string{},
		MissingRequirements: []string{},
		KeyInsights:         []string{},
		RemainingConcerns:   []string{},
		Clarifications:      []types.Clarification{},
		Categories:          []types.AnalysisCategory{},
	}

	user, err := b.store.GetUser(ctx, app.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}
	resume, err := b.store.GetResume(ctx, app.ResumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resume: %w", err)
	}
	c := types.NewCandidate(user, resume)
	view.Candidate = CandidateInfo{UserID: app.UserID, Name: c.Name, Email: c.Email, Phone: c.Phone, Location: c.Location}

	view.Transcript, err = b.store.ListMessages(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	a, err := b.store.GetAnalysisBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	if a == nil {
		view.Recommendation = scoring.RecommendationFromScore(0)
		return view, nil
	}

	view.Score = a.CurrentScore()
	view.InitialScore = a.InitialScore
	view.FinalScore = a.FinalScore
	// Always derived from the score shown, never the stored label.
	view.Recommendation = scoring.RecommendationFromScore(view.Score)
	view.Summary = a.Summary
	view.QuestionsAsked = a.QuestionsAsked
	view.QuestionsAnswered = a.QuestionsAnswered
	view.Completed = a.AnalysisCompleted
	view.Strengths = orEmpty(a.Strengths)
	view.Concerns = orEmpty(a.Weaknesses)
	view.MissingRequirements = orEmpty(a.MissingRequirements)
	view.KeyInsights = orEmpty(a.KeyInsights)
	view.RemainingConcerns = orEmpty(a.RemainingConcerns)
	if a.Clarifications != nil {
		view.Clarifications = a.Clarifications
	}

	cats, err := b.store.ListCategories(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	if cats != nil {
		view.Categories = cats
	}
	return view, nil
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
