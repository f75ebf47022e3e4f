// Package smartbot implements the Session Orchestrator: it opens an analysis
// session for a job application, drives the clarification dialogue one reply
// at a time and finalizes the candidate analysis.
package smartbot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rauan228/HackNU2/internal/logger"
	"github.com/Rauan228/HackNU2/internal/realtime"
	"github.com/Rauan228/HackNU2/internal/scoring"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	notifyTimeout  = 15 * time.Second
	// turnTimeout bounds the work that runs once a session is created or a
	// pending question is claimed, generation calls included.
	turnTimeout    = 5 * time.Minute
	cleanupTimeout = 15 * time.Second
)

// detach returns a context that keeps the values of ctx but not its
// cancellation.
func detach(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// Deps are the collaborators of an Orchestrator. Store, Analyzer and Finalizer
// are required; the rest default to no-ops, time.Now and uuid.NewString.
type Deps struct {
	Store     Store
	Analyzer  Analyzer
	Finalizer Finalizer
	Publisher Publisher
	Notifier  Notifier
	Logger    *zap.Logger
	Now       func() time.Time
	NewID     func() string
}

// Orchestrator runs analysis sessions.
type Orchestrator struct {
	store     Store
	analyzer  Analyzer
	finalizer Finalizer
	publisher Publisher
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time
	newID     func() string
	locks     *keyedMutex
}

// StartResult is returned by StartSession.
type StartResult struct {
	Session  *types.Session
	Message  *types.Message
	Analysis *types.CandidateAnalysis
	// Existing is true when the application already had a session.
	Existing bool
}

// ReplyResult is returned by ProcessReply.
type ReplyResult struct {
	Message       *types.Message      `json:"message"`
	SessionStatus types.SessionStatus `json:"session_status"`
	IsCompleted   bool                `json:"is_completed"`
}

// New creates an Orchestrator.
func New(d Deps) (*Orchestrator, error) {
	if d.Store == nil || d.Analyzer == nil || d.Finalizer == nil {
		return nil, errors.New("smartbot: store, analyzer and finalizer are required")
	}
	o := &Orchestrator{
		store:     d.Store,
		analyzer:  d.Analyzer,
		finalizer: d.Finalizer,
		publisher: d.Publisher,
		notifier:  d.Notifier,
		log:       logger.OrNop(d.Logger),
		now:       d.Now,
		newID:     d.NewID,
		locks:     newKeyedMutex(),
	}
	if o.publisher == nil {
		o.publisher = nopPublisher{}
	}
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o, nil
}

// StartSession opens the analysis session of an application, or returns the
// existing one. A session left in the error state is reset and run again.
func (o *Orchestrator) StartSession(ctx context.Context, applicationID uuid.UUID) (*StartResult, error) {
	app, err := o.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if app == nil {
		return nil, &NotFoundError{Resource: "application", ID: applicationID.String()}
	}

	existing, err := o.store.GetSessionByApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if existing != nil {
		return o.resume(ctx, existing, app)
	}

	now := o.now()
	sess := &types.Session{
		ID:            o.newID(),
		ApplicationID: app.ID,
		JobID:         app.JobID,
		Status:        types.SessionActive,
		StartedAt:     now,
		UpdatedAt:     now,
	}
	if err := o.store.CreateSession(ctx, sess); err != nil {
		if errors.Is(err, ErrSessionExists) {
			existing, err := o.store.GetSessionByApplication(ctx, applicationID)
			if err != nil || existing == nil {
				return nil, fmt.Errorf("failed to load concurrently created session: %w", err)
			}
			return o.resume(ctx, existing, app)
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return o.run(ctx, sess, app)
}

// resume handles StartSession for an application that already has a session.
func (o *Orchestrator) resume(ctx context.Context, sess *types.Session, app *types.Application) (*StartResult, error) {
	if sess.Status != types.SessionError {
		return o.existingResult(ctx, sess)
	}

	unlock := o.locks.Lock(sess.ID)
	defer unlock()

	fresh, err := o.store.GetSession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload session: %w", err)
	}
	if fresh == nil {
		return nil, &SessionNotFoundError{SessionID: sess.ID}
	}
	if fresh.Status != types.SessionError {
		return o.existingResult(ctx, fresh)
	}

	o.log.Info("retrying failed session", logger.SessionFields(fresh.ID, app.ID.String())...)
	fresh.StartedAt = o.now()
	fresh.UpdatedAt = fresh.StartedAt
	if err := o.store.ResetSession(ctx, fresh); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, ErrConcurrentReply
		}
		return nil, fmt.Errorf("failed to reset session: %w", err)
	}
	return o.run(ctx, fresh, app)
}

func (o *Orchestrator) existingResult(ctx context.Context, sess *types.Session) (*StartResult, error) {
	msgs, err := o.store.ListMessages(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	a, err := o.store.GetAnalysisBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	res := &StartResult{Session: sess, Analysis: a, Existing: true}
	if len(msgs) > 0 {
		res.Message = &msgs[0]
	}
	return res, nil
}

// run performs the analysis of a freshly created (or reset) active session.
// The session row already exists, so run does not stop when the caller goes
// away: it either leaves a pending question, completes or fails the session.
func (o *Orchestrator) run(ctx context.Context, sess *types.Session, app *types.Application) (*StartResult, error) {
	ctx, cancel := detach(ctx, turnTimeout)
	defer cancel()
	log := logger.WithFields(o.log, logger.SessionFields(sess.ID, app.ID.String())...)

	job, err := o.store.GetJob(ctx, app.JobID)
	if err != nil {
		return nil, o.fail(ctx, sess, fmt.Errorf("failed to load job: %w", err))
	}
	resume, err := o.store.GetResume(ctx, app.ResumeID)
	if err != nil {
		return nil, o.fail(ctx, sess, fmt.Errorf("failed to load resume: %w", err))
	}
	user, err := o.store.GetUser(ctx, app.UserID)
	if err != nil {
		return nil, o.fail(ctx, sess, fmt.Errorf("failed to load user: %w", err))
	}
	var missing []string
	if job == nil {
		missing = append(missing, "job")
	}
	if resume == nil {
		missing = append(missing, "resume")
	}
	if user == nil {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return nil, o.fail(ctx, sess, &MissingDataError{ApplicationID: app.ID, Missing: missing})
	}

	o.publisher.Publish(realtime.JobKey(app.JobID), realtime.NewEvent(realtime.EventAnalysisStarted, realtime.AnalysisStarted{
		SessionID:     sess.ID,
		ApplicationID: app.ID,
		JobID:         app.JobID,
	}))

	res := o.analyzer.Analyze(ctx, *job, types.NewCandidate(user, resume))
	log.Info("fit analysis done",
		zap.String("analysis_source", string(res.Source)),
		zap.Int("initial_score", res.Analysis.InitialScore),
		zap.Int("questions", len(res.Analysis.Questions)),
	)
	ar := res.Analysis

	now := o.now()
	a := &types.CandidateAnalysis{
		ID:                  uuid.New(),
		SessionID:           sess.ID,
		ApplicationID:       app.ID,
		RelevanceScore:      ar.InitialScore,
		InitialScore:        ar.InitialScore,
		Status:              types.AnalysisInProgress,
		Strengths:           ar.Strengths,
		Weaknesses:          ar.Concerns,
		MissingRequirements: missingRequirements(ar.Discrepancies),
		Clarifications:      []types.Clarification{},
		Recommendation:      ar.Recommendation,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := o.store.CreateAnalysis(ctx, a); err != nil {
		return nil, o.fail(ctx, sess, fmt.Errorf("failed to save analysis: %w", err))
	}

	cats := make([]types.AnalysisCategory, 0, len(ar.Discrepancies))
	for _, d := range ar.Discrepancies {
		cats = append(cats, types.AnalysisCategory{
			ID:         uuid.New(),
			AnalysisID: a.ID,
			Category:   d.Category,
			Status:     types.CategoryMismatch,
			Severity:   d.Severity,
			Score:      scoring.CategoryScore(d.Severity),
			Details:    d.Issue,
			CreatedAt:  now,
		})
	}
	if len(cats) > 0 {
		if err := o.store.CreateCategories(ctx, cats); err != nil {
			return nil, o.fail(ctx, sess, fmt.Errorf("failed to save categories: %w", err))
		}
	}

	queue := SeedQuestions(ar)
	var msg *types.Message
	if len(queue) == 0 {
		msg, err = o.completeWithoutQuestions(ctx, sess, a)
	} else {
		msg, err = o.askFirst(ctx, sess, a, queue)
	}
	if err != nil {
		return nil, o.fail(ctx, sess, err)
	}

	o.publisher.Publish(realtime.SessionKey(sess.ID), realtime.NewEvent(realtime.EventMessage, msg))
	if sess.Status == types.SessionCompleted {
		o.completed(ctx, sess, a)
	}
	return &StartResult{Session: sess, Message: msg, Analysis: a}, nil
}

func (o *Orchestrator) askFirst(ctx context.Context, sess *types.Session, a *types.CandidateAnalysis, queue []types.Question) (*types.Message, error) {
	msg := &types.Message{
		SessionID: sess.ID,
		Type:      types.MessageQuestion,
		Content:   Greeting + questionText(queue[0]),
		Metadata:  types.NewQuestionMetadata(queue[0], queue[1:]),
		CreatedAt: o.now(),
	}
	if err := o.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save welcome message: %w", err)
	}

	a.QuestionsAsked = 1
	a.UpdatedAt = msg.CreatedAt
	if err := o.store.UpdateAnalysis(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update analysis: %w", err)
	}

	sess.PendingQuestionID = &msg.ID
	sess.UpdatedAt = msg.CreatedAt
	if err := o.store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return msg, nil
}

func (o *Orchestrator) completeWithoutQuestions(ctx context.Context, sess *types.Session, a *types.CandidateAnalysis) (*types.Message, error) {
	now := o.now()
	msg := &types.Message{SessionID: sess.ID, Type: types.MessageInfo, Content: InfoText, CreatedAt: now}
	if err := o.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save info message: %w", err)
	}

	final := a.InitialScore
	a.FinalScore = &final
	a.Status = types.AnalysisCompleted
	a.AnalysisCompleted = true
	a.UpdatedAt = now
	if err := o.store.UpdateAnalysis(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update analysis: %w", err)
	}

	sess.Status = types.SessionCompleted
	sess.CompletedAt = &now
	sess.UpdatedAt = now
	if err := o.store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}
	return msg, nil
}

// fail moves sess to the error state and returns cause.
func (o *Orchestrator) fail(ctx context.Context, sess *types.Session, cause error) error {
	log := logger.WithFields(o.log, logger.SessionFields(sess.ID, sess.ApplicationID.String())...)
	log.Error("session setup failed", zap.Error(cause))

	ctx, cancel := detach(ctx, cleanupTimeout)
	defer cancel()
	fresh, err := o.store.GetSession(ctx, sess.ID)
	if err != nil || fresh == nil {
		log.Error("failed to reload session for error state", zap.Error(err))
		return cause
	}
	fresh.Status = types.SessionError
	fresh.PendingQuestionID = nil
	fresh.UpdatedAt = o.now()
	if err := o.store.UpdateSession(ctx, fresh); err != nil {
		log.Error("failed to mark session as error", zap.Error(err))
		return cause
	}
	*sess = *fresh
	return cause
}

// completed publishes completion events and runs the notifier. Neither can
// fail the session.
func (o *Orchestrator) completed(ctx context.Context, sess *types.Session, a *types.CandidateAnalysis) {
	ev := realtime.NewEvent(realtime.EventSessionCompleted, realtime.SessionCompleted{
		SessionID:      sess.ID,
		ApplicationID:  sess.ApplicationID,
		JobID:          sess.JobID,
		FinalScore:     a.CurrentScore(),
		Recommendation: string(a.Recommendation),
	})
	o.publisher.Publish(realtime.SessionKey(sess.ID), ev)
	o.publisher.Publish(realtime.JobKey(sess.JobID), ev)
	o.notify(ctx, sess)
}

func (o *Orchestrator) notify(ctx context.Context, sess *types.Session) {
	log := logger.WithFields(o.log, logger.SessionFields(sess.ID, sess.ApplicationID.String())...)
	defer func() {
		if r := recover(); r != nil {
			log.Error("completion notifier panicked", zap.Any("panic", r))
		}
	}()

	ctx, cancel := detach(ctx, notifyTimeout)
	defer cancel()
	if err := o.notifier.NotifyCompletion(ctx, sess.ID); err != nil {
		log.Warn("completion notification failed", zap.Error(err))
	}
}
