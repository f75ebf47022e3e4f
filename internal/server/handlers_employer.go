package server

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/Rauan228/HackNU2/internal/realtime"
	"github.com/Rauan228/HackNU2/internal/report"
	"github.com/Rauan228/HackNU2/internal/smartbot"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// JobSummaryResponse aggregates the analyses of one job.
type JobSummaryResponse struct {
	JobID string `json:"job_id"`
	Title string `json:"title"`
	report.Summary
}

// handleEmployerStart starts the analysis of an application to one of the employer's jobs.
func (s *Server) handleEmployerStart(w http.ResponseWriter, r *http.Request) {
	appID, err := pathUUID(r, "id")
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	app, err := s.store.GetApplication(r.Context(), appID)
	if err != nil {
		writeErr(w, s.log, fmt.Errorf("failed to load application: %w", err))
		return
	}
	if app == nil {
		writeErr(w, s.log, &smartbot.NotFoundError{Resource: "application", ID: appID.String()})
		return
	}
	if _, err := s.authorizeJob(r.Context(), s.principal(r), app.JobID); err != nil {
		writeErr(w, s.log, err)
		return
	}

	res, err := s.sessions.StartSession(r.Context(), appID)
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

// handleJobApplications lists the analyzed applications of a job, best first.
func (s *Server) handleJobApplications(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	if _, err := s.authorizeJob(r.Context(), s.principal(r), jobID); err != nil {
		writeErr(w, s.log, err)
		return
	}
	views, err := s.views.JobViews(r.Context(), jobID)
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, views)
}

// handleJobSummary returns score statistics of a job.
func (s *Server) handleJobSummary(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	job, err := s.authorizeJob(r.Context(), s.principal(r), jobID)
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	views, err := s.views.JobViews(r.Context(), jobID)
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, JobSummaryResponse{JobID: job.ID.String(), Title: job.Title, Summary: report.Summarize(views)})
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// handleJobExport downloads the ranked candidates of a job as a spreadsheet.
func (s *Server) handleJobExport(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	job, err := s.authorizeJob(r.Context(), s.principal(r), jobID)
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	views, err := s.views.JobViews(r.Context(), jobID)
	if err != nil {
		writeErr(w, s.log, err)
		return
	}

	// Render fully before writing headers so a failure still yields a JSON error.
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, job, views); err != nil {
		writeErr(w, s.log, fmt.Errorf("failed to render export: %w", err))
		return
	}

	name := strings.Trim(unsafeFilename.ReplaceAllString(job.Title, "_"), "_")
	if name == "" {
		name = "job"
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-candidates.xlsx"`, name))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Warn("failed to write export", zap.Error(err))
	}
}

// handleEmployerSession returns the full report of one session.
func (s *Server) handleEmployerSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.authorizeSession(r.Context(), s.principal(r), id); err != nil {
		writeErr(w, s.log, err)
		return
	}
	view, err := s.views.SessionView(r.Context(), id)
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, view)
}

// handleJobEvents streams analysis events of a job to its employer.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		writeErr(w, s.log, err)
		return
	}
	if _, err := s.authorizeJob(r.Context(), s.principal(r), jobID); err != nil {
		writeErr(w, s.log, err)
		return
	}
	s.stream(w, r, realtime.JobKey(jobID))
}
