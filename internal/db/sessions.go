package db

import (
	"context"
	"fmt"

	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
)

const sessionColumns = `id, application_id, job_id, status, pending_question_id, version, started_at, updated_at, completed_at`

func scanSession(row interface{ Scan(...any) error }) (*types.Session, error) {
	var s types.Session
	err := row.Scan(&s.ID, &s.ApplicationID, &s.JobID, &s.Status, &s.PendingQuestionID, &s.Version,
		&s.StartedAt, &s.UpdatedAt, &s.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSession inserts a session at version 1. It returns ErrSessionExists
// when the application already has one.
func (db *DB) CreateSession(ctx context.Context, s *types.Session) error {
	tag, err := db.pool.Exec(ctx,
		`INSERT INTO analysis_sessions (id, application_id, job_id, status, pending_question_id, version, started_at, updated_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8)
		 ON CONFLICT (application_id) DO NOTHING`,
		s.ID, s.ApplicationID, s.JobID, s.Status, s.PendingQuestionID, s.StartedAt, s.UpdatedAt, s.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSessionExists
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionExists
	}
	s.Version = 1
	return nil
}

// GetSession returns a session, or nil when it does not exist.
func (db *DB) GetSession(ctx context.Context, id string) (*types.Session, error) {
	s, err := scanSession(db.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM analysis_sessions WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// GetSessionByApplication returns the session of an application, or nil.
func (db *DB) GetSessionByApplication(ctx context.Context, applicationID uuid.UUID) (*types.Session, error) {
	s, err := scanSession(db.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM analysis_sessions WHERE application_id = $1`, applicationID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session by application: %w", err)
	}
	return s, nil
}

// UpdateSession writes s when the stored version still equals s.Version.
func (db *DB) UpdateSession(ctx context.Context, s *types.Session) error {
	return updateSession(ctx, db.pool, s)
}

func updateSession(ctx context.Context, q querier, s *types.Session) error {
	tag, err := q.Exec(ctx,
		`UPDATE analysis_sessions
		 SET status = $2, pending_question_id = $3, updated_at = $4, completed_at = $5, version = version + 1
		 WHERE id = $1 AND version = $6`,
		s.ID, s.Status, s.PendingQuestionID, s.UpdatedAt, s.CompletedAt, s.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	s.Version++
	return nil
}

// ResetSession deletes the analysis, categories and messages of s and puts it
// back to active in one transaction.
func (db *DB) ResetSession(ctx context.Context, s *types.Session) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE analysis_sessions
		 SET status = 'active', pending_question_id = NULL, completed_at = NULL,
		     started_at = $2, updated_at = $3, version = version + 1
		 WHERE id = $1 AND version = $4`,
		s.ID, s.StartedAt, s.UpdatedAt, s.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	// categories go with the analysis via ON DELETE CASCADE
	if _, err := tx.Exec(ctx, `DELETE FROM candidate_analyses WHERE session_id = $1`, s.ID); err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM session_messages WHERE session_id = $1`, s.ID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	s.Status = types.SessionActive
	s.PendingQuestionID = nil
	s.CompletedAt = nil
	s.Version++
	return nil
}
