// Package notify tells employers that a SmartBot session has completed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/Rauan228/HackNU2/internal/report"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier is told about a completed session.
type Notifier interface {
	NotifyCompletion(ctx context.Context, sessionID string) error
}

// ViewSource resolves the employer view of a session.
type ViewSource interface {
	SessionView(ctx context.Context, sessionID string) (*report.ApplicationView, error)
}

// JobSource resolves job postings.
type JobSource interface {
	GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error)
}

// LogNotifier writes completions to the log. It is used when no messaging
// transport is configured.
type LogNotifier struct {
	views ViewSource
	log   *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(views ViewSource, log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{views: views, log: log}
}

func (n *LogNotifier) NotifyCompletion(ctx context.Context, sessionID string) error {
	view, err := n.views.SessionView(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session view: %w", err)
	}
	n.log.Info("session completed",
		zap.String("session_id", sessionID),
		zap.String("application_id", view.ApplicationID.String()),
		zap.String("candidate", view.Candidate.Name),
		zap.Int("score", view.Score),
		zap.String("recommendation", string(view.Recommendation)),
	)
	return nil
}

// Multi notifies every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyCompletion(ctx context.Context, sessionID string) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyCompletion(ctx, sessionID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatCompletion renders the HTML message sent for a completed session.
func FormatCompletion(job *types.Job, view *report.ApplicationView) string {
	var sb strings.Builder
	sb.WriteString("✅ <b>SmartBot analysis completed</b>\n")
	if job != nil {
		fmt.Fprintf(&sb, "💼 %s", html.EscapeString(job.Title))
		if job.CompanyName != "" {
			fmt.Fprintf(&sb, " at %s", html.EscapeString(job.CompanyName))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "👤 %s\n", html.EscapeString(orDash(view.Candidate.Name)))
	fmt.Fprintf(&sb, "📊 Score: <b>%d</b>/100\n", view.Score)
	fmt.Fprintf(&sb, "🧭 Recommendation: <b>%s</b>\n", html.EscapeString(string(view.Recommendation)))
	fmt.Fprintf(&sb, "💬 Answered %d of %d questions\n", view.QuestionsAnswered, view.QuestionsAsked)
	if view.Summary != "" {
		fmt.Fprintf(&sb, "\n%s", html.EscapeString(view.Summary))
	}
	return sb.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
