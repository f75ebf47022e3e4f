package db

import (
	"context"
	"fmt"
	"time"

	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
)

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// analysisLists holds the JSONB columns of candidate_analyses.
type analysisLists struct {
	strengths, weaknesses, missing, clarifications, insights, remaining []byte
}

func encodeLists(a *types.CandidateAnalysis) (analysisLists, error) {
	var (
		l   analysisLists
		err error
	)
	if l.strengths, err = jsonList(a.Strengths); err != nil {
		return l, err
	}
	if l.weaknesses, err = jsonList(a.Weaknesses); err != nil {
		return l, err
	}
	if l.missing, err = jsonList(a.MissingRequirements); err != nil {
		return l, err
	}
	if l.clarifications, err = jsonList(a.Clarifications); err != nil {
		return l, err
	}
	if l.insights, err = jsonList(a.KeyInsights); err != nil {
		return l, err
	}
	l.remaining, err = jsonList(a.RemainingConcerns)
	return l, err
}

func (l analysisLists) decode(a *types.CandidateAnalysis) error {
	var err error
	if a.Strengths, err = decodeList[string](l.strengths); err != nil {
		return err
	}
	if a.Weaknesses, err = decodeList[string](l.weaknesses); err != nil {
		return err
	}
	if a.MissingRequirements, err = decodeList[string](l.missing); err != nil {
		return err
	}
	if a.Clarifications, err = decodeList[types.Clarification](l.clarifications); err != nil {
		return err
	}
	if a.KeyInsights, err = decodeList[string](l.insights); err != nil {
		return err
	}
	a.RemainingConcerns, err = decodeList[string](l.remaining)
	return err
}

// CreateAnalysis inserts the analysis record of a session.
func (db *DB) CreateAnalysis(ctx context.Context, a *types.CandidateAnalysis) error {
	l, err := encodeLists(a)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO candidate_analyses (
			id, session_id, application_id, relevance_score, initial_score, final_score, status,
			strengths, weaknesses, missing_requirements, clarifications, key_insights, remaining_concerns,
			summary, recommendation, questions_asked, questions_answered, analysis_completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		a.ID, a.SessionID, a.ApplicationID, a.RelevanceScore, a.InitialScore, a.FinalScore, a.Status,
		l.strengths, l.weaknesses, l.missing, l.clarifications, l.insights, l.remaining,
		a.Summary, a.Recommendation, a.QuestionsAsked, a.QuestionsAnswered, a.AnalysisCompleted, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// GetAnalysisBySession returns the analysis of a session, or nil.
func (db *DB) GetAnalysisBySession(ctx context.Context, sessionID string) (*types.CandidateAnalysis, error) {
	var (
		a types.CandidateAnalysis
		l analysisLists
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, session_id, application_id, relevance_score, initial_score, final_score, status,
		        strengths, weaknesses, missing_requirements, clarifications, key_insights, remaining_concerns,
		        summary, recommendation, questions_asked, questions_answered, analysis_completed, created_at, updated_at
		 FROM candidate_analyses WHERE session_id = $1`,
		sessionID,
	).Scan(&a.ID, &a.SessionID, &a.ApplicationID, &a.RelevanceScore, &a.InitialScore, &a.FinalScore, &a.Status,
		&l.strengths, &l.weaknesses, &l.missing, &l.clarifications, &l.insights, &l.remaining,
		&a.Summary, &a.Recommendation, &a.QuestionsAsked, &a.QuestionsAnswered, &a.AnalysisCompleted, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	if err := l.decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	return &a, nil
}

// UpdateAnalysis writes every mutable column. final_score is only written
// while it is still NULL, and analysis_completed never goes back to false.
func (db *DB) UpdateAnalysis(ctx context.Context, a *types.CandidateAnalysis) error {
	return updateAnalysis(ctx, db.pool, a)
}

func updateAnalysis(ctx context.Context, q querier, a *types.CandidateAnalysis) error {
	l, err := encodeLists(a)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	tag, err := q.Exec(ctx,
		`UPDATE candidate_analyses SET
			relevance_score = $2, final_score = COALESCE(final_score, $3), status = $4,
			strengths = $5, weaknesses = $6, missing_requirements = $7, clarifications = $8,
			key_insights = $9, remaining_concerns = $10, summary = $11, recommendation = $12,
			questions_asked = $13, questions_answered = $14,
			analysis_completed = analysis_completed OR $15, updated_at = $16
		 WHERE id = $1`,
		a.ID, a.RelevanceScore, a.FinalScore, a.Status,
		l.strengths, l.weaknesses, l.missing, l.clarifications, l.insights, l.remaining,
		a.Summary, a.Recommendation, a.QuestionsAsked, a.QuestionsAnswered, a.AnalysisCompleted, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis %s not found", a.ID)
	}
	return nil
}

// CreateCategories inserts the per-discrepancy findings of an analysis.
func (db *DB) CreateCategories(ctx context.Context, cats []types.AnalysisCategory) error {
	if len(cats) == 0 {
		return nil
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range cats {
		if _, err := tx.Exec(ctx,
			`INSERT INTO analysis_categories (id, analysis_id, category_name, status, severity, score, details, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.AnalysisID, c.Category, c.Status, c.Severity, c.Score, c.Details, c.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to create category %s: %w", c.Category, err)
		}
	}
	return tx.Commit(ctx)
}

// ListCategories returns the findings of an analysis in creation order.
func (db *DB) ListCategories(ctx context.Context, analysisID uuid.UUID) ([]types.AnalysisCategory, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, analysis_id, category_name, status, severity, score, details, created_at
		 FROM analysis_categories WHERE analysis_id = $1
		 ORDER BY created_at, id`,
		analysisID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	cats := []types.AnalysisCategory{}
	for rows.Next() {
		var c types.AnalysisCategory
		if err := rows.Scan(&c.ID, &c.AnalysisID, &c.Category, &c.Status, &c.Severity, &c.Score, &c.Details, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func updateCategory(ctx context.Context, q querier, c *types.AnalysisCategory) error {
	tag, err := q.Exec(ctx,
		`UPDATE analysis_categories SET status = $2, details = $3 WHERE id = $1`,
		c.ID, c.Status, c.Details,
	)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %s not found", c.ID)
	}
	return nil
}
