package db

import (
	"context"
	"fmt"

	"github.com/Rauan228/HackNU2/internal/smartbot"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the part of pgxpool.Pool and pgx.Tx the write helpers use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SaveTurn writes one reply in a single transaction. The session row is
// updated last so a version conflict rolls back the messages too.
func (db *DB) SaveTurn(ctx context.Context, t *smartbot.Turn) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	answer, next := *t.Answer, t.Next
	if err := appendMessage(ctx, tx, &answer); err != nil {
		return err
	}
	var nextCopy types.Message
	if next != nil {
		nextCopy = *next
		if err := appendMessage(ctx, tx, &nextCopy); err != nil {
			return err
		}
	}
	if t.Clarified != nil {
		if err := updateCategory(ctx, tx, t.Clarified); err != nil {
			return err
		}
	}
	if err := updateAnalysis(ctx, tx, t.Analysis); err != nil {
		return err
	}

	sess := *t.Session
	if next != nil && next.Type == types.MessageQuestion {
		id := nextCopy.ID
		sess.PendingQuestionID = &id
	} else {
		sess.PendingQuestionID = nil
	}
	if err := updateSession(ctx, tx, &sess); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reply: %w", err)
	}

	*t.Answer = answer
	if next != nil {
		*t.Next = nextCopy
	}
	*t.Session = sess
	return nil
}
