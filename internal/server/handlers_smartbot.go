package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Rauan228/HackNU2/internal/realtime"
	"github.com/Rauan228/HackNU2/internal/server/middleware"
	"github.com/Rauan228/HackNU2/internal/smartbot"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
)

// maxReplyLength bounds a candidate reply in characters.
const maxReplyLength = 4000

// StartSessionRequest opens the analysis session of an application.
type StartSessionRequest struct {
	ApplicationID uuid.UUID `json:"application_id"`
}

// ReplyRequest carries one candidate answer.
type ReplyRequest struct {
	Message string `json:"message"`
}

// StartSessionResponse is returned to the candidate when a session opens.
type StartSessionResponse struct {
	SessionID      string              `json:"session_id"`
	Status         types.SessionStatus `json:"status"`
	InitialMessage string              `json:"initial_message"`
	Message        *types.Message      `json:"message,omitempty"`
	IsCompleted    bool                `json:"is_completed"`
	Existing       bool                `json:"existing"`
}

// AnalysisSnapshot is the part of the analysis a candidate may see.
type AnalysisSnapshot struct {
	InitialScore int                  `json:"initial_score"`
	FinalScore   *int                 `json:"final_score,omitempty"`
	Summary      string               `json:"summary,omitempty"`
	Status       types.AnalysisStatus `json:"status"`
}

// CandidateSessionResponse is the candidate's view of a session.
type CandidateSessionResponse struct {
	SessionID     string              `json:"session_id"`
	ApplicationID uuid.UUID           `json:"application_id"`
	Status        types.SessionStatus `json:"status"`
	Messages      []types.Message     `json:"messages"`
	Analysis      *AnalysisSnapshot   `json:"analysis"`
	StartedAt     time.Time           `json:"started_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func newStartSessionResponse(res *smartbot.StartResult) StartSessionResponse {
	out := StartSessionResponse{
		SessionID:   res.Session.ID,
		Status:      res.Session.Status,
		Message:     res.Message,
		IsCompleted: res.Session.Status == types.SessionCompleted,
		Existing:    res.Existing,
	}
	if res.Message != nil {
		out.InitialMessage = res.Message.Content
	}
	return out
}

func (s *Server) principal(r *http.Request) middleware.Principal {
	p, _ := middleware.GetPrincipal(r)
	return p
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: name, Message: "must be a UUID"}
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON"}
	}
	return nil
}

// authorizeApplication checks that the candidate owns the application.
func (s *Server) authorizeApplication(ctx context.Context, p middleware.Principal, id uuid.UUID) (*types.Application, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if app == nil {
		return nil, &smartbot.NotFoundError{Resource: "application", ID: id.String()}
	}
	if app.UserID != p.UserID {
		return nil, &ErrForbidden{Resource: "application"}
	}
	return app, nil
}

// authorizeJob checks that the employer owns the job.
func (s *Server) authorizeJob(ctx context.Context, p middleware.Principal, id uuid.UUID) (*types.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return nil, &smartbot.NotFoundError{Resource: "job", ID: id.String()}
	}
	if job.EmployerID != p.UserID {
		return nil, &ErrForbidden{Resource: "job"}
	}
	return job, nil
}

// authorizeSession checks that the caller owns the session: candidates through
// the application, employers through the job.
func (s *Server) authorizeSession(ctx context.Context, p middleware.Principal, id string) (*types.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, &smartbot.SessionNotFoundError{SessionID: id}
	}

	switch p.Role {
	case types.RoleCandidate:
		app, err := s.store.GetApplication(ctx, sess.ApplicationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load application: %w", err)
		}
		if app == nil || app.UserID != p.UserID {
			return nil, &ErrForbidden{Resource: "session"}
		}
	case types.RoleEmployer:
		if _, err := s.authorizeJob(ctx, p, sess.JobID); err != nil {
			return nil, &ErrForbidden{Resource: "session"}
		}
	default:
		return nil, &ErrForbidden{Resource: "session"}
	}
	return sess, nil
}

// handleStartSession opens (or returns) the session of the caller's application.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, s.log, err)
		return
	}
	if req.ApplicationID == uuid.Nil {
		writeErr(w, s.log, &ErrValidation{Field: "application_id", Message: "required"})
		return
	}
	if _, err := s.authorizeApplication(r.Context(), s.principal(r), req.ApplicationID); err != nil {
		writeErr(w, s.log, err)
		return
	}

	res, err := s.sessions.StartSession(r.Context(), req.ApplicationID)
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	status := http.StatusCreated
	if res.Existing {
		status = http.StatusOK
	}
	writeJSON(w, s.log, status, newStartSessionResponse(res))
}

// handleReply processes one candidate answer.
func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req ReplyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, s.log, err)
		return
	}
	text := strings.TrimSpace(req.Message)
	switch {
	case text == "":
		writeErr(w, s.log, &ErrValidation{Field: "message", Message: "required"})
		return
	case len([]rune(text)) > maxReplyLength:
		writeErr(w, s.log, &ErrValidation{Field: "message", Message: fmt.Sprintf("must be at most %d characters", maxReplyLength)})
		return
	}
	if _, err := s.authorizeSession(r.Context(), s.principal(r), id); err != nil {
		writeErr(w, s.log, err)
		return
	}

	res, err := s.sessions.ProcessReply(r.Context(), id, text)
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, res)
}

// handleGetSession returns the transcript and an analysis snapshot.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.authorizeSession(r.Context(), s.principal(r), id); err != nil {
		writeErr(w, s.log, err)
		return
	}

	view, err := s.sessions.GetSession(r.Context(), id)
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	out := CandidateSessionResponse{
		SessionID:     view.Session.ID,
		ApplicationID: view.Session.ApplicationID,
		Status:        view.Session.Status,
		Messages:      view.Messages,
		StartedAt:     view.Session.StartedAt,
		UpdatedAt:     view.Session.UpdatedAt,
	}
	if a := view.Analysis; a != nil {
		out.Analysis = &AnalysisSnapshot{
			InitialScore: a.InitialScore,
			FinalScore:   a.FinalScore,
			Summary:      a.Summary,
			Status:       a.Status,
		}
	}
	writeJSON(w, s.log, http.StatusOK, out)
}

// handleAbandon closes an active session without finalizing it.
func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.authorizeSession(r.Context(), s.principal(r), id); err != nil {
		writeErr(w, s.log, err)
		return
	}
	sess, err := s.sessions.Abandon(r.Context(), id)
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, sess)
}

// handleSessionEvents streams the events of one session.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.authorizeSession(r.Context(), s.principal(r), id); err != nil {
		writeErr(w, s.log, err)
		return
	}
	s.stream(w, r, realtime.SessionKey(id))
}
