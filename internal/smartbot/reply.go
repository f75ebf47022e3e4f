package smartbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rauan228/HackNU2/internal/logger"
	"github.com/Rauan228/HackNU2/internal/realtime"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProcessReply records the candidate's answer to the pending question and
// either asks the next question or finalizes the session.
func (o *Orchestrator) ProcessReply(ctx context.Context, sessionID, text string) (*ReplyResult, error) {
	unlock := o.locks.Lock(sessionID)
	defer unlock()

	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, &SessionNotFoundError{SessionID: sessionID}
	}
	if sess.Status != types.SessionActive {
		return nil, &SessionClosedError{SessionID: sessionID, Status: sess.Status}
	}
	if sess.PendingQuestionID == nil {
		return nil, ErrConcurrentReply
	}

	// Claim the pending question. Another process holding an older copy of
	// the session now fails its own claim.
	pendingID := *sess.PendingQuestionID
	sess.PendingQuestionID = nil
	sess.UpdatedAt = o.now()
	if err := o.store.UpdateSession(ctx, sess); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, ErrConcurrentReply
		}
		return nil, fmt.Errorf("failed to claim pending question: %w", err)
	}

	// From here on the claimed question is carried through even when the
	// caller goes away.
	ctx, cancel := detach(ctx, turnTimeout)
	defer cancel()

	res, err := o.advance(ctx, sess, pendingID, text)
	if err != nil {
		o.restorePending(ctx, sessionID, pendingID)
		return nil, err
	}
	return res, nil
}

func (o *Orchestrator) advance(ctx context.Context, sess *types.Session, pendingID int64, text string) (*ReplyResult, error) {
	log := logger.WithFields(o.log, logger.SessionFields(sess.ID, sess.ApplicationID.String())...)

	var meta *types.MessageMetadata
	pending, err := o.store.GetMessage(ctx, pendingID)
	switch {
	case err != nil:
		log.Warn("pending question unreadable, continuing without context", zap.Int64("message_id", pendingID), zap.Error(err))
	case pending == nil || pending.Metadata == nil:
		log.Warn("pending question has no metadata, continuing without context", zap.Int64("message_id", pendingID))
	default:
		meta = pending.Metadata
	}
	category := meta.CategoryName()

	a, err := o.store.GetAnalysisBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("analysis of session %s not found", sess.ID)
	}

	turn := &Turn{
		Session:  sess,
		Answer:   &types.Message{SessionID: sess.ID, Type: types.MessageAnswer, Content: text, CreatedAt: o.now()},
		Analysis: a,
	}
	a.Clarifications = append(a.Clarifications, types.Clarification{
		Category: category,
		Reason:   meta.ReasonText(),
		Answer:   text,
	})
	a.QuestionsAnswered++
	a.UpdatedAt = turn.Answer.CreatedAt

	if category != "" {
		if turn.Clarified, err = o.clarified(ctx, a.ID, category, text); err != nil {
			return nil, err
		}
	}

	next, rest, ok := meta.Pop()
	if !ok {
		return o.finalize(ctx, turn)
	}

	turn.Next = &types.Message{
		SessionID: sess.ID,
		Type:      types.MessageQuestion,
		Content:   questionText(next),
		Metadata:  types.NewQuestionMetadata(next, rest),
		CreatedAt: o.now(),
	}
	a.QuestionsAsked++
	sess.UpdatedAt = turn.Next.CreatedAt
	if err := o.saveTurn(ctx, turn); err != nil {
		return nil, err
	}
	return &ReplyResult{Message: turn.Next, SessionStatus: sess.Status}, nil
}

// clarified returns the first still-mismatched category of that name marked
// as clarified by answer, or nil when there is none.
func (o *Orchestrator) clarified(ctx context.Context, analysisID uuid.UUID, category, answer string) (*types.AnalysisCategory, error) {
	cats, err := o.store.ListCategories(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	for i := range cats {
		c := cats[i]
		if c.Category != category || c.Status != types.CategoryMismatch {
			continue
		}
		c.Status = types.CategoryClarified
		c.Details += candidateAnswerAt + answer
		return &c, nil
	}
	return nil, nil
}

func (o *Orchestrator) finalize(ctx context.Context, t *Turn) (*ReplyResult, error) {
	sess, a := t.Session, t.Analysis
	history, err := o.store.ListMessages(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	history = append(history, *t.Answer)

	fr := o.finalizer.Finalize(ctx, history, a.InitialScore)
	logger.WithFields(o.log, logger.SessionFields(sess.ID, sess.ApplicationID.String())...).Info("session finalized",
		zap.String("analysis_source", string(fr.Source)),
		zap.Int("final_score", fr.FinalScore),
	)

	now := o.now()
	t.Next = &types.Message{SessionID: sess.ID, Type: types.MessageCompletion, Content: CompletionText, CreatedAt: now}

	final := fr.FinalScore
	a.FinalScore = &final
	a.RelevanceScore = final
	a.Summary = fr.Summary
	if fr.Recommendation.Valid() {
		a.Recommendation = fr.Recommendation
	}
	if fr.KeyInsights != nil {
		a.KeyInsights = fr.KeyInsights
	}
	if fr.RemainingConcerns != nil {
		a.RemainingConcerns = fr.RemainingConcerns
	}
	a.Status = types.AnalysisCompleted
	a.AnalysisCompleted = true
	a.UpdatedAt = now

	sess.Status = types.SessionCompleted
	sess.CompletedAt = &now
	sess.UpdatedAt = now
	if err := o.saveTurn(ctx, t); err != nil {
		return nil, err
	}

	o.completed(ctx, sess, a)
	return &ReplyResult{Message: t.Next, SessionStatus: sess.Status, IsCompleted: true}, nil
}

// saveTurn commits a reply and publishes its messages.
func (o *Orchestrator) saveTurn(ctx context.Context, t *Turn) error {
	if err := o.store.SaveTurn(ctx, t); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return ErrConcurrentReply
		}
		return fmt.Errorf("failed to save reply: %w", err)
	}
	key := realtime.SessionKey(t.Session.ID)
	o.publisher.Publish(key, realtime.NewEvent(realtime.EventMessage, t.Answer))
	o.publisher.Publish(key, realtime.NewEvent(realtime.EventMessage, t.Next))
	return nil
}

// restorePending gives the question back after a failed reply so the
// candidate can retry.
func (o *Orchestrator) restorePending(ctx context.Context, sessionID string, pendingID int64) {
	ctx, cancel := detach(ctx, cleanupTimeout)
	defer cancel()

	log := o.log.With(zap.String(logger.FieldSessionID, sessionID))
	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil || sess == nil {
		log.Error("failed to reload session to restore pending question", zap.Error(err))
		return
	}
	if sess.Status != types.SessionActive || sess.PendingQuestionID != nil {
		return
	}
	sess.PendingQuestionID = &pendingID
	sess.UpdatedAt = o.now()
	if err := o.store.UpdateSession(ctx, sess); err != nil {
		log.Error("failed to restore pending question", zap.Error(err))
	}
}

// SessionView is a session with its transcript and analysis.
type SessionView struct {
	Session    *types.Session           `json:"session"`
	Messages   []types.Message          `json:"messages"`
	Analysis   *types.CandidateAnalysis `json:"analysis,omitempty"`
	Categories []types.AnalysisCategory `json:"categories"`
}

// GetSession returns the session, its ordered transcript and the analysis snapshot.
func (o *Orchestrator) GetSession(ctx context.Context, sessionID string) (*SessionView, error) {
	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, &SessionNotFoundError{SessionID: sessionID}
	}
	msgs, err := o.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	a, err := o.store.GetAnalysisBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	view := &SessionView{Session: sess, Messages: msgs, Analysis: a, Categories: []types.AnalysisCategory{}}
	if a != nil {
		cats, err := o.store.ListCategories(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load categories: %w", err)
		}
		view.Categories = cats
	}
	return view, nil
}

// Abandon closes an active session without finalizing it.
func (o *Orchestrator) Abandon(ctx context.Context, sessionID string) (*types.Session, error) {
	unlock := o.locks.Lock(sessionID)
	defer unlock()

	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, &SessionNotFoundError{SessionID: sessionID}
	}
	if sess.Status != types.SessionActive {
		return nil, &SessionClosedError{SessionID: sessionID, Status: sess.Status}
	}

	sess.Status = types.SessionAbandoned
	sess.PendingQuestionID = nil
	sess.UpdatedAt = o.now()
	if err := o.store.UpdateSession(ctx, sess); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, ErrConcurrentReply
		}
		return nil, fmt.Errorf("failed to abandon session: %w", err)
	}
	o.log.Info("session abandoned", logger.SessionFields(sess.ID, sess.ApplicationID.String())...)
	return sess, nil
}
