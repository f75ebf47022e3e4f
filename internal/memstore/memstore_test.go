package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/Rauan228/HackNU2/internal/smartbot"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SessionVersioning(t *testing.T) {
	ctx := context.Background()
	s := New()
	appID := uuid.New()

	sess := &types.Session{ID: "s1", ApplicationID: appID, Status: types.SessionActive}
	require.NoError(t, s.CreateSession(ctx, sess))
	assert.Equal(t, 1, sess.Version)

	err := s.CreateSession(ctx, &types.Session{ID: "s2", ApplicationID: appID})
	assert.ErrorIs(t, err, smartbot.ErrSessionExists)

	stale, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)

	pending := int64(7)
	sess.PendingQuestionID = &pending
	require.NoError(t, s.UpdateSession(ctx, sess))
	assert.Equal(t, 2, sess.Version)

	assert.ErrorIs(t, s.UpdateSession(ctx, stale), smartbot.ErrVersionConflict)

	pending = 9
	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got.PendingQuestionID)
	assert.Equal(t, int64(7), *got.PendingQuestionID, "stored copy must not alias the caller's pointer")
}

func TestStore_Messages(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateSession(ctx, &types.Session{ID: "s1", ApplicationID: uuid.New()}))

	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	m1 := &types.Message{SessionID: "s1", Type: types.MessageQuestion, Content: "q", CreatedAt: t0,
		Metadata: types.NewQuestionMetadata(types.Question{Category: "location"}, nil)}
	m2 := &types.Message{SessionID: "s1", Type: types.MessageAnswer, Content: "a", CreatedAt: t0}
	require.NoError(t, s.AppendMessage(ctx, m1))
	require.NoError(t, s.AppendMessage(ctx, m2))
	assert.Less(t, m1.ID, m2.ID)

	msgs, err := s.ListMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, m1.ID, msgs[0].ID)

	got, err := s.GetMessage(ctx, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, "location", got.Metadata.CategoryName())

	missing, err := s.GetMessage(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, s.AppendMessage(ctx, &types.Message{SessionID: "nope"}))
}

func TestStore_ResetSession(t *testing.T) {
	ctx := context.Background()
	s := New()
	sess := &types.Session{ID: "s1", ApplicationID: uuid.New(), Status: types.SessionError}
	require.NoError(t, s.CreateSession(ctx, sess))
	a := &types.CandidateAnalysis{ID: uuid.New(), SessionID: "s1"}
	require.NoError(t, s.CreateAnalysis(ctx, a))
	require.NoError(t, s.CreateCategories(ctx, []types.AnalysisCategory{{ID: uuid.New(), AnalysisID: a.ID}}))
	require.NoError(t, s.AppendMessage(ctx, &types.Message{SessionID: "s1", Type: types.MessageInfo}))

	require.NoError(t, s.ResetSession(ctx, sess))

	assert.Equal(t, types.SessionActive, sess.Status)
	got, _ := s.GetAnalysisBySession(ctx, "s1")
	assert.Nil(t, got)
	cats, _ := s.ListCategories(ctx, a.ID)
	assert.Empty(t, cats)
	msgs, _ := s.ListMessages(ctx, "s1")
	assert.Empty(t, msgs)
}

func TestStore_Users(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := &types.User{Email: "A@example.com", Role: types.RoleCandidate}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.ErrorIs(t, s.CreateUser(ctx, &types.User{Email: "a@example.com"}), ErrEmailTaken)

	got, err := s.GetUserByEmail(ctx, "a@EXAMPLE.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
}

func TestFixture(t *testing.T) {
	f := NewFixture(types.Job{Title: "Go Developer"}, types.Candidate{Name: "Aigerim Sadykova", Location: "Astana"})
	assert.NotEqual(t, uuid.Nil, f.Job.ID)
	assert.Equal(t, f.Employer.ID, f.Job.EmployerID)
	assert.Equal(t, "Aigerim", f.Candidate.FirstName)
	assert.Equal(t, "Sadykova", f.Candidate.LastName)
	assert.Equal(t, f.Resume.ID, f.Application.ResumeID)

	s := New()
	s.Seed(f)
	apps, err := s.ListApplicationsByJob(context.Background(), f.Job.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, f.Application.ID, apps[0].ID)
}

func TestStore_UpdateAnalysisWritesFinalScoreOnce(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := &types.CandidateAnalysis{ID: uuid.New(), SessionID: "s1", InitialScore: 70}
	require.NoError(t, s.CreateAnalysis(ctx, a))

	final := 82
	a.FinalScore = &final
	a.AnalysisCompleted = true
	require.NoError(t, s.UpdateAnalysis(ctx, a))

	other := 10
	a.FinalScore = &other
	a.AnalysisCompleted = false
	a.Summary = "later"
	require.NoError(t, s.UpdateAnalysis(ctx, a))

	got, err := s.GetAnalysisBySession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got.FinalScore)
	assert.Equal(t, 82, *got.FinalScore)
	assert.True(t, got.AnalysisCompleted)
	assert.Equal(t, "later", got.Summary)
}

func TestStore_SaveTurn(t *testing.T) {
	ctx := context.Background()
	s := New()
	sess := &types.Session{ID: "s1", ApplicationID: uuid.New(), Status: types.SessionActive}
	require.NoError(t, s.CreateSession(ctx, sess))
	a := &types.CandidateAnalysis{ID: uuid.New(), SessionID: "s1"}
	require.NoError(t, s.CreateAnalysis(ctx, a))
	cat := types.AnalysisCategory{ID: uuid.New(), AnalysisID: a.ID, Category: "location", Status: types.CategoryMismatch}
	require.NoError(t, s.CreateCategories(ctx, []types.AnalysisCategory{cat}))

	turn := func(sess types.Session) *smartbot.Turn {
		clarified := cat
		clarified.Status = types.CategoryClarified
		analysis := *a
		analysis.QuestionsAnswered = 1
		return &smartbot.Turn{
			Session:   &sess,
			Answer:    &types.Message{SessionID: "s1", Type: types.MessageAnswer, Content: "yes"},
			Next:      &types.Message{SessionID: "s1", Type: types.MessageQuestion, Content: "Degree?"},
			Clarified: &clarified,
			Analysis:  &analysis,
		}
	}

	stale := *sess
	stale.Version++
	assert.ErrorIs(t, s.SaveTurn(ctx, turn(stale)), smartbot.ErrVersionConflict)
	msgs, _ := s.ListMessages(ctx, "s1")
	assert.Empty(t, msgs)
	cats, _ := s.ListCategories(ctx, a.ID)
	assert.Equal(t, types.CategoryMismatch, cats[0].Status)

	ok := turn(*sess)
	require.NoError(t, s.SaveTurn(ctx, ok))
	require.NotNil(t, ok.Session.PendingQuestionID)
	assert.Equal(t, ok.Next.ID, *ok.Session.PendingQuestionID)
	assert.Equal(t, 2, ok.Session.Version)

	msgs, _ = s.ListMessages(ctx, "s1")
	require.Len(t, msgs, 2)
	assert.Equal(t, ok.Answer.ID, msgs[0].ID)
	cats, _ = s.ListCategories(ctx, a.ID)
	assert.Equal(t, types.CategoryClarified, cats[0].Status)
	got, _ := s.GetAnalysisBySession(ctx, "s1")
	assert.Equal(t, 1, got.QuestionsAnswered)

	done := turn(*ok.Session)
	done.Next.Type = types.MessageCompletion
	done.Clarified = nil
	require.NoError(t, s.SaveTurn(ctx, done))
	assert.Nil(t, done.Session.PendingQuestionID)
}

func TestStore_HonorsCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, context.Canceled)
	err = s.CreateSession(ctx, &types.Session{ID: "s1", ApplicationID: uuid.New()})
	assert.ErrorIs(t, err, context.Canceled)

	got, err := s.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
