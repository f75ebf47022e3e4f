package smartbot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
)

// ErrConcurrentReply is returned when the pending question of a session was
// already claimed by another reply.
var ErrConcurrentReply = errors.New("smartbot: another reply is being processed for this session")

// Store contract errors.
var (
	// ErrVersionConflict is returned by Store.UpdateSession when the stored
	// version no longer matches the caller's copy.
	ErrVersionConflict = errors.New("smartbot: session version conflict")
	// ErrSessionExists is returned by Store.CreateSession when the application already has a session.
	ErrSessionExists = errors.New("smartbot: session already exists for application")
)

// NotFoundError reports an unknown input record.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// MissingDataError reports an application whose job, resume or user cannot be resolved.
type MissingDataError struct {
	ApplicationID uuid.UUID
	Missing       []string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("application %s is missing %s", e.ApplicationID, strings.Join(e.Missing, ", "))
}

// SessionNotFoundError reports an unknown session token.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.SessionID)
}

// SessionClosedError reports a reply or abandon on a session that no longer accepts them.
type SessionClosedError struct {
	SessionID string
	Status    types.SessionStatus
}

func (e *SessionClosedError) Error() string {
	return fmt.Sprintf("session %s is %s", e.SessionID, e.Status)
}
