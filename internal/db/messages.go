package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Rauan228/HackNU2/internal/types"
)

const messageColumns = `id, session_id, type, content, metadata, created_at`

func scanMessage(row interface{ Scan(...any) error }) (*types.Message, error) {
	var (
		m    types.Message
		meta []byte
	)
	if err := row.Scan(&m.ID, &m.SessionID, &m.Type, &m.Content, &meta, &m.CreatedAt); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		var md types.MessageMetadata
		// Unreadable metadata is treated as absent; the orchestrator degrades
		// to an unknown question context.
		if json.Unmarshal(meta, &md) == nil {
			m.Metadata = &md
		}
	}
	return &m, nil
}

// AppendMessage inserts m and sets its ID.
func (db *DB) AppendMessage(ctx context.Context, m *types.Message) error {
	return appendMessage(ctx, db.pool, m)
}

func appendMessage(ctx context.Context, q querier, m *types.Message) error {
	var meta []byte
	if m.Metadata != nil {
		var err error
		if meta, err = json.Marshal(m.Metadata); err != nil {
			return fmt.Errorf("failed to marshal message metadata: %w", err)
		}
	}
	err := q.QueryRow(ctx,
		`INSERT INTO session_messages (session_id, type, content, metadata, created_at)
		 VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		 RETURNING id, created_at`,
		m.SessionID, m.Type, m.Content, meta, nullTime(m.CreatedAt),
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// GetMessage returns a message, or nil when it does not exist.
func (db *DB) GetMessage(ctx context.Context, id int64) (*types.Message, error) {
	m, err := scanMessage(db.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM session_messages WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

// ListMessages returns the transcript of a session ordered by (created_at, id).
func (db *DB) ListMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM session_messages WHERE session_id = $1 ORDER BY created_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	msgs := []types.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}
