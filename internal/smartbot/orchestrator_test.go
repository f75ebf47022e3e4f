package smartbot_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Rauan228/HackNU2/internal/analysis"
	"github.com/Rauan228/HackNU2/internal/memstore"
	"github.com/Rauan228/HackNU2/internal/realtime"
	"github.com/Rauan228/HackNU2/internal/smartbot"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, job types.Job, c types.Candidate) analysis.Result
}

func (m *mockAnalyzer) Analyze(ctx context.Context, job types.Job, c types.Candidate) analysis.Result {
	return m.AnalyzeFunc(ctx, job, c)
}

func returning(res types.AnalysisResult) *mockAnalyzer {
	return &mockAnalyzer{AnalyzeFunc: func(context.Context, types.Job, types.Candidate) analysis.Result {
		return analysis.Result{Analysis: res, Source: analysis.SourceGenerated}
	}}
}

type mockFinalizer struct {
	FinalizeFunc func(ctx context.Context, history []types.Message, initial int) analysis.FinalResult
	calls        int
}

func (m *mockFinalizer) Finalize(ctx context.Context, history []types.Message, initial int) analysis.FinalResult {
	m.calls++
	return m.FinalizeFunc(ctx, history, initial)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]realtime.Event
}

func (p *recordingPublisher) Publish(key string, ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][]realtime.Event)
	}
	p.events[key] = append(p.events[key], ev)
}

func (p *recordingPublisher) types(key string) []realtime.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []realtime.EventType
	for _, ev := range p.events[key] {
		out = append(out, ev.Type)
	}
	return out
}

type mockNotifier struct {
	mu       sync.Mutex
	sessions []string
	err      error
	panics   bool
}

func (n *mockNotifier) NotifyCompletion(_ context.Context, sessionID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sessions = append(n.sessions, sessionID)
	if n.panics {
		panic("telegram exploded")
	}
	return n.err
}

type harness struct {
	orch      *smartbot.Orchestrator
	store     *memstore.Store
	fixture   memstore.Fixture
	publisher *recordingPublisher
	notifier  *mockNotifier
}

var (
	almatyJob = types.Job{Title: "Go Developer", CompanyName: "Acme", Location: "Almaty", Description: "On-site backend work"}
	astanaDev = types.Candidate{Name: "Aigerim Sadykova", Location: "Astana", Skills: "Go", Education: "KBTU, Computer Science"}
)

type option func(*smartbot.Deps)

func withLogger(l *zap.Logger) option { return func(d *smartbot.Deps) { d.Logger = l } }

// withHooks routes the orchestrator through hs, which wraps the harness store.
func withHooks(hs *hookStore) option {
	return func(d *smartbot.Deps) {
		hs.Store = d.Store.(*memstore.Store)
		d.Store = hs
	}
}

func newHarness(t *testing.T, a smartbot.Analyzer, f smartbot.Finalizer, opts ...option) *harness {
	t.Helper()
	store := memstore.New()
	fixture := memstore.NewFixture(almatyJob, astanaDev)
	store.Seed(fixture)

	h := &harness{store: store, fixture: fixture, publisher: &recordingPublisher{}, notifier: &mockNotifier{}}
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	deps := smartbot.Deps{
		Store:     store,
		Analyzer:  a,
		Finalizer: f,
		Publisher: h.publisher,
		Notifier:  h.notifier,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	orch, err := smartbot.New(deps)
	require.NoError(t, err)
	h.orch = orch
	return h
}

// fallbackHarness uses the real analyzer and finalizer with no generation backend.
func fallbackHarness(t *testing.T, opts ...option) *harness {
	return newHarness(t, analysis.NewAnalyzer(nil, nil), analysis.NewFinalizer(nil, nil), opts...)
}

func (h *harness) analysis(t *testing.T, sessionID string) *types.CandidateAnalysis {
	t.Helper()
	a, err := h.store.GetAnalysisBySession(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

func (h *harness) session(t *testing.T, sessionID string) *types.Session {
	t.Helper()
	s, err := h.store.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func threeQuestions() types.AnalysisResult {
	return types.AnalysisResult{
		InitialScore: 70,
		Discrepancies: []types.Discrepancy{
			{Category: "location", Issue: "Lives elsewhere", Severity: types.SeverityMedium},
			{Category: "salary", Issue: "Expects more than the band", Severity: types.SeverityHigh},
			{Category: "experience", Issue: "Two years short", Severity: types.SeverityLow},
		},
		Questions: []types.Question{
			{Category: "location", Question: "Can you relocate?", Reason: "On-site role"},
			{Category: "salary", Question: "What salary do you expect?", Reason: "Budget"},
			{Category: "experience", Question: "Tell us about your last project.", Reason: "Depth"},
		},
		Strengths:      []string{"Go"},
		Concerns:       []string{"Salary"},
		Recommendation: types.RecommendationConsider,
	}
}

func fixedFinal(score int, rec types.Recommendation) *mockFinalizer {
	return &mockFinalizer{FinalizeFunc: func(context.Context, []types.Message, int) analysis.FinalResult {
		return analysis.FinalResult{
			FinalAssessment: types.FinalAssessment{FinalScore: score, Summary: "Solid candidate", Recommendation: rec, KeyInsights: []string{"Relocates"}},
			Source:          analysis.SourceGenerated,
		}
	}}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := smartbot.New(smartbot.Deps{})
	assert.Error(t, err)
}

func TestStartSession_FallbackLocationQuestion(t *testing.T) {
	h := fallbackHarness(t)
	ctx := context.Background()

	res, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)
	assert.False(t, res.Existing)

	sess := res.Session
	assert.Equal(t, types.SessionActive, sess.Status)
	assert.Equal(t, h.fixture.Job.ID, sess.JobID)

	msg := res.Message
	require.NotNil(t, msg)
	assert.Equal(t, types.MessageQuestion, msg.Type)
	demo := analysis.DemoResult(almatyJob, astanaDev)
	require.Len(t, demo.Questions, 1)
	assert.Equal(t, smartbot.Greeting+demo.Questions[0].Question, msg.Content)
	assert.Equal(t, "location", msg.Metadata.CategoryName())
	assert.Empty(t, msg.Metadata.Remaining)

	require.NotNil(t, h.session(t, sess.ID).PendingQuestionID)
	assert.Equal(t, msg.ID, *h.session(t, sess.ID).PendingQuestionID)

	a := h.analysis(t, sess.ID)
	assert.Equal(t, 75, a.InitialScore)
	assert.Equal(t, 75, a.RelevanceScore)
	assert.Equal(t, types.AnalysisInProgress, a.Status)
	assert.Equal(t, 1, a.QuestionsAsked)
	assert.Equal(t, 0, a.QuestionsAnswered)
	assert.Equal(t, types.RecommendationConsider, a.Recommendation)
	assert.Empty(t, a.MissingRequirements)

	cats, err := h.store.ListCategories(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "location", cats[0].Category)
	assert.Equal(t, types.SeverityMedium, cats[0].Severity)
	assert.Equal(t, 60, cats[0].Score)
	assert.Equal(t, types.CategoryMismatch, cats[0].Status)

	assert.Equal(t, []realtime.EventType{realtime.EventAnalysisStarted}, h.publisher.types(realtime.JobKey(sess.JobID)))
	assert.Equal(t, []realtime.EventType{realtime.EventMessage}, h.publisher.types(realtime.SessionKey(sess.ID)))
}

func TestProcessReply_FinalizesWithFallbackScore(t *testing.T) {
	h := fallbackHarness(t)
	ctx := context.Background()
	start, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)
	id := start.Session.ID

	res, err := h.orch.ProcessReply(ctx, id, "Ready to relocate.")
	require.NoError(t, err)
	assert.True(t, res.IsCompleted)
	assert.Equal(t, types.SessionCompleted, res.SessionStatus)
	assert.Equal(t, types.MessageCompletion, res.Message.Type)
	assert.Equal(t, smartbot.CompletionText, res.Message.Content)

	a := h.analysis(t, id)
	require.NotNil(t, a.FinalScore)
	assert.Equal(t, 55, *a.FinalScore)
	assert.Equal(t, 55, a.RelevanceScore)
	assert.Equal(t, 1, a.QuestionsAnswered)
	assert.Equal(t, types.AnalysisCompleted, a.Status)
	assert.True(t, a.AnalysisCompleted)
	assert.Equal(t, types.RecommendationConsider, a.Recommendation, "fallback keeps the prior recommendation")
	assert.Equal(t, analysis.SummaryFewAnswers, a.Summary)
	require.Len(t, a.Clarifications, 1)
	assert.Equal(t, types.Clarification{Category: "location", Reason: "Clarify readiness to relocate", Answer: "Ready to relocate."}, a.Clarifications[0])

	cats, err := h.store.ListCategories(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, types.CategoryClarified, cats[0].Status)
	assert.Contains(t, cats[0].Details, " | Candidate answer: Ready to relocate.")
	assert.Regexp(t, `^Candidate is based in Astana.* \| Candidate answer: Ready to relocate\.$`, cats[0].Details)

	sess := h.session(t, id)
	assert.Equal(t, types.SessionCompleted, sess.Status)
	assert.NotNil(t, sess.CompletedAt)
	assert.Nil(t, sess.PendingQuestionID)

	msgs, err := h.store.ListMessages(ctx, id)
	require.NoError(t, err)
	var kinds []types.MessageType
	for _, m := range msgs {
		kinds = append(kinds, m.Type)
	}
	assert.Equal(t, []types.MessageType{types.MessageQuestion, types.MessageAnswer, types.MessageCompletion}, kinds)

	assert.Contains(t, h.publisher.types(realtime.SessionKey(id)), realtime.EventSessionCompleted)
	assert.Equal(t, []realtime.EventType{realtime.EventAnalysisStarted, realtime.EventSessionCompleted}, h.publisher.types(realtime.JobKey(sess.JobID)))
	assert.Equal(t, []string{id}, h.notifier.sessions)
}

func TestProcessReply_RejectsTerminalSession(t *testing.T) {
	h := fallbackHarness(t)
	ctx := context.Background()
	start, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)
	id := start.Session.ID
	_, err = h.orch.ProcessReply(ctx, id, "Yes")
	require.NoError(t, err)
	before := h.analysis(t, id)

	_, err = h.orch.ProcessReply(ctx, id, "One more thing")
	var closed *smartbot.SessionClosedError
	require.ErrorAs(t, err, &closed)
	assert.Equal(t, types.SessionCompleted, closed.Status)

	after := h.analysis(t, id)
	assert.Equal(t, *before.FinalScore, *after.FinalScore)
	assert.Equal(t, before.Summary, after.Summary)
	assert.Equal(t, before.Recommendation, after.Recommendation)
	assert.Equal(t, before.QuestionsAnswered, after.QuestionsAnswered)
}

func TestStartSession_NoQuestionsCompletesImmediately(t *testing.T) {
	h := newHarness(t, returning(types.AnalysisResult{InitialScore: 90, Recommendation: types.RecommendationRecommend}), fixedFinal(0, ""))
	ctx := context.Background()

	res, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionCompleted, res.Session.Status)
	assert.Equal(t, types.MessageInfo, res.Message.Type)
	assert.Equal(t, smartbot.InfoText, res.Message.Content)

	a := h.analysis(t, res.Session.ID)
	assert.Equal(t, 0, a.QuestionsAsked)
	require.NotNil(t, a.FinalScore)
	assert.Equal(t, 90, *a.FinalScore)
	assert.True(t, a.AnalysisCompleted)
	assert.Equal(t, types.AnalysisCompleted, a.Status)

	_, err = h.orch.ProcessReply(ctx, res.Session.ID, "hello?")
	var closed *smartbot.SessionClosedError
	assert.ErrorAs(t, err, &closed)
}

func TestStartSession_MissingResume(t *testing.T) {
	h := fallbackHarness(t)
	ctx := context.Background()
	h.store.DeleteResume(h.fixture.Resume.ID)

	_, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	var missing *smartbot.MissingDataError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"resume"}, missing.Missing)

	sess, err := h.store.GetSessionByApplication(ctx, h.fixture.Application.ID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, types.SessionError, sess.Status)

	h.store.PutResume(h.fixture.Resume)
	res, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, res.Session.ID, "retry reuses the session row")
	assert.Equal(t, types.SessionActive, res.Session.Status)
	assert.Equal(t, types.MessageQuestion, res.Message.Type)

	msgs, err := h.store.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestStartSession_AnalysisSaveFailureMarksError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &hookStore{onCreateAnalysis: func() error {
		cancel()
		return errors.New("disk full")
	}}
	h := fallbackHarness(t, withHooks(store))

	_, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	sess, err := store.GetSessionByApplication(context.Background(), h.fixture.Application.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionError, sess.Status)

	store.onCreateAnalysis = nil
	res, err := h.orch.StartSession(context.Background(), h.fixture.Application.ID)
	require.NoError(t, err)
	assert.False(t, res.Existing)
	require.NotNil(t, res.Message)
	assert.Equal(t, types.MessageQuestion, res.Message.Type)
}

func TestStartSession_CallerGoneDuringAnalysis(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	analyzer := &mockAnalyzer{AnalyzeFunc: func(context.Context, types.Job, types.Candidate) analysis.Result {
		cancel()
		return analysis.Result{Analysis: threeQuestions(), Source: analysis.SourceGenerated}
	}}
	h := newHarness(t, analyzer, fixedFinal(75, ""))

	start, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	sess := h.session(t, start.Session.ID)
	assert.Equal(t, types.SessionActive, sess.Status)
	require.NotNil(t, sess.PendingQuestionID)
	assert.Equal(t, start.Message.ID, *sess.PendingQuestionID)

	again, err := h.orch.StartSession(context.Background(), h.fixture.Application.ID)
	require.NoError(t, err)
	require.NotNil(t, again.Message)
	assert.Equal(t, start.Message.ID, again.Message.ID)

	_, err = h.orch.ProcessReply(context.Background(), start.Session.ID, "Yes")
	require.NoError(t, err)
}

func TestStartSession_NotFound(t *testing.T) {
	h := fallbackHarness(t)
	_, err := h.orch.StartSession(context.Background(), uuid.New())
	var nf *smartbot.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "application", nf.Resource)
}

func TestStartSession_ReturnsExisting(t *testing.T) {
	h := fallbackHarness(t)
	ctx := context.Background()
	first, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)

	again, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)
	assert.True(t, again.Existing)
	assert.Equal(t, first.Session.ID, again.Session.ID)
	assert.Equal(t, first.Message.ID, again.Message.ID)

	msgs, err := h.store.ListMessages(ctx, first.Session.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestStartSession_SeedsQuestionsFromDiscrepancies(t *testing.T) {
	res := types.AnalysisResult{
		InitialScore: 65,
		Discrepancies: []types.Discrepancy{
			{Category: "salary", Issue: "Expects 2x the band", Severity: types.SeverityHigh},
			{Category: "education", Issue: "No degree listed", Severity: types.SeverityLow},
		},
		Recommendation: types.RecommendationConsider,
	}
	h := newHarness(t, returning(res), fixedFinal(60, ""))

	start, err := h.orch.StartSession(context.Background(), h.fixture.Application.ID)
	require.NoError(t, err)
	assert.Equal(t, smartbot.Greeting+"Could you clarify: Expects 2x the band", start.Message.Content)
	assert.Equal(t, "Clarify salary", start.Message.Metadata.ReasonText())
	require.Len(t, start.Message.Metadata.Remaining, 1)
	assert.Equal(t, "Could you clarify: No degree listed", start.Message.Metadata.Remaining[0].Question)

	a := h.analysis(t, start.Session.ID)
	assert.Equal(t, []string{"Expects 2x the band"}, a.MissingRequirements)
}

func TestProcessReply_WalksQueue(t *testing.T) {
	fin := fixedFinal(81, types.RecommendationRecommend)
	h := newHarness(t, returning(threeQuestions()), fin)
	ctx := context.Background()

	start, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)
	id := start.Session.ID
	require.Len(t, start.Message.Metadata.Remaining, 2)

	seeded := len(threeQuestions().Questions)
	replies := []string{"Yes, I can relocate", "500k", "A payments service"}
	for i, reply := range replies {
		res, err := h.orch.ProcessReply(ctx, id, reply)
		require.NoError(t, err)

		a := h.analysis(t, id)
		assert.LessOrEqual(t, a.QuestionsAnswered, a.QuestionsAsked)
		assert.Equal(t, i+1, a.QuestionsAnswered)

		if i < len(replies)-1 {
			assert.False(t, res.IsCompleted)
			assert.Equal(t, types.MessageQuestion, res.Message.Type)
			assert.Len(t, res.Message.Metadata.Remaining, seeded-a.QuestionsAsked)
			assert.Equal(t, threeQuestions().Questions[i+1].Question, res.Message.Content)
			assert.Equal(t, res.Message.ID, *h.session(t, id).PendingQuestionID)
		} else {
			assert.True(t, res.IsCompleted)
		}
	}

	a := h.analysis(t, id)
	assert.Equal(t, seeded, a.QuestionsAsked)
	assert.Equal(t, 81, *a.FinalScore)
	assert.Equal(t, types.RecommendationRecommend, a.Recommendation)
	assert.Equal(t, "Solid candidate", a.Summary)
	assert.Equal(t, []string{"Relocates"}, a.KeyInsights)
	assert.Equal(t, 1, fin.calls)

	cats, err := h.store.ListCategories(ctx, a.ID)
	require.NoError(t, err)
	for i, c := range cats {
		assert.Equal(t, types.CategoryClarified, c.Status)
		assert.Contains(t, c.Details, replies[i])
	}

	msgs, err := h.store.ListMessages(ctx, id)
	require.NoError(t, err)
	questions := 0
	for _, m := range msgs {
		if m.Type == types.MessageQuestion {
			questions++
		}
	}
	assert.Equal(t, 3, questions)
	assert.Equal(t, types.MessageCompletion, msgs[len(msgs)-1].Type)
}

func TestProcessReply_InvalidFinalRecommendationKeepsPrior(t *testing.T) {
	h := newHarness(t, returning(types.AnalysisResult{
		InitialScore:   68,
		Questions:      []types.Question{{Category: "skills", Question: "Kubernetes?"}},
		Recommendation: types.RecommendationConsider,
	}), fixedFinal(91, ""))
	ctx := context.Background()
	start, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)

	_, err = h.orch.ProcessReply(ctx, start.Session.ID, "Yes, CKA certified")
	require.NoError(t, err)
	a := h.analysis(t, start.Session.ID)
	assert.Equal(t, 91, *a.FinalScore)
	assert.Equal(t, types.RecommendationConsider, a.Recommendation)
}

func TestProcessReply_PendingQuestionWithoutMetadata(t *testing.T) {
	h := newHarness(t, returning(threeQuestions()), fixedFinal(50, ""))
	ctx := context.Background()
	start, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)
	h.store.SetMessageMetadata(start.Message.ID, nil)

	res, err := h.orch.ProcessReply(ctx, start.Session.ID, "whatever")
	require.NoError(t, err)
	assert.True(t, res.IsCompleted, "no remaining queue means finalize")

	a := h.analysis(t, start.Session.ID)
	require.Len(t, a.Clarifications, 1)
	assert.Equal(t, "", a.Clarifications[0].Category)
	cats, err := h.store.ListCategories(ctx, a.ID)
	require.NoError(t, err)
	for _, c := range cats {
		assert.Equal(t, types.CategoryMismatch, c.Status)
	}
}

func TestProcessReply_UnknownSession(t *testing.T) {
	h := fallbackHarness(t)
	_, err := h.orch.ProcessReply(context.Background(), "missing", "hi")
	var nf *smartbot.SessionNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.SessionID)
}

func TestProcessReply_ConcurrentRepliesConsumeOneQuestionEach(t *testing.T) {
	h := newHarness(t, returning(threeQuestions()), fixedFinal(75, ""))
	ctx := context.Background()
	start, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for _, reply := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			_, err := h.orch.ProcessReply(ctx, start.Session.ID, text)
			errs <- err
		}(reply)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	a := h.analysis(t, start.Session.ID)
	assert.Equal(t, 3, a.QuestionsAnswered)
	assert.Equal(t, 3, a.QuestionsAsked)
	categories := map[string]bool{}
	for _, c := range a.Clarifications {
		categories[c.Category] = true
	}
	assert.Len(t, categories, 3, "each reply answered a different question")
	assert.Equal(t, types.SessionCompleted, h.session(t, start.Session.ID).Status)
}

// hookStore lets tests interfere with individual store calls.
type hookStore struct {
	*memstore.Store
	onSaveTurn       func(t *smartbot.Turn) error
	onCreateAnalysis func() error
}

func (s *hookStore) SaveTurn(ctx context.Context, t *smartbot.Turn) error {
	if s.onSaveTurn != nil {
		if err := s.onSaveTurn(t); err != nil {
			return err
		}
	}
	return s.Store.SaveTurn(ctx, t)
}

func (s *hookStore) CreateAnalysis(ctx context.Context, a *types.CandidateAnalysis) error {
	if s.onCreateAnalysis != nil {
		if err := s.onCreateAnalysis(); err != nil {
			return err
		}
	}
	return s.Store.CreateAnalysis(ctx, a)
}

func TestProcessReply_ClaimRejectsSecondProcess(t *testing.T) {
	store := &hookStore{}
	h := newHarness(t, returning(threeQuestions()), fixedFinal(75, ""), withHooks(store))
	ctx := context.Background()

	start, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)

	// A second orchestrator has its own in-process locks, like another replica.
	other, err := smartbot.New(smartbot.Deps{Store: store, Analyzer: returning(threeQuestions()), Finalizer: fixedFinal(75, "")})
	require.NoError(t, err)

	var otherErr error
	store.onSaveTurn = func(*smartbot.Turn) error {
		if otherErr == nil {
			_, otherErr = other.ProcessReply(ctx, start.Session.ID, "racing reply")
			if otherErr == nil {
				otherErr = errors.New("unexpected success")
			}
		}
		return nil
	}

	_, err = h.orch.ProcessReply(ctx, start.Session.ID, "first reply")
	require.NoError(t, err)
	assert.ErrorIs(t, otherErr, smartbot.ErrConcurrentReply)

	a := h.analysis(t, start.Session.ID)
	assert.Equal(t, 1, a.QuestionsAnswered)
}

func TestProcessReply_FailedTurnLeavesNoTrace(t *testing.T) {
	store := &hookStore{}
	h := newHarness(t, returning(threeQuestions()), fixedFinal(75, ""), withHooks(store))
	start, err := h.orch.StartSession(context.Background(), h.fixture.Application.ID)
	require.NoError(t, err)
	id := start.Session.ID

	// The write fails after the client has already gone away.
	ctx, cancel := context.WithCancel(context.Background())
	store.onSaveTurn = func(*smartbot.Turn) error {
		cancel()
		return errors.New("connection reset")
	}
	_, err = h.orch.ProcessReply(ctx, id, "first try")
	require.Error(t, err)

	sess := h.session(t, id)
	require.NotNil(t, sess.PendingQuestionID, "the question is given back")
	assert.Equal(t, start.Message.ID, *sess.PendingQuestionID)

	store.onSaveTurn = nil
	res, err := h.orch.ProcessReply(context.Background(), id, "second try")
	require.NoError(t, err)
	assert.Equal(t, types.MessageQuestion, res.Message.Type)

	msgs, err := h.store.ListMessages(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, types.MessageQuestion, msgs[0].Type)
	assert.Equal(t, types.MessageAnswer, msgs[1].Type)
	assert.Equal(t, "second try", msgs[1].Content)
	assert.Equal(t, res.Message.ID, msgs[2].ID)

	a := h.analysis(t, id)
	assert.Equal(t, 1, a.QuestionsAnswered)
	assert.Equal(t, 2, a.QuestionsAsked)
	require.Len(t, a.Clarifications, 1)
	assert.Equal(t, "second try", a.Clarifications[0].Answer)

	cats, err := h.store.ListCategories(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.CategoryClarified, cats[0].Status)
	assert.Contains(t, cats[0].Details, "second try")
	assert.NotContains(t, cats[0].Details, "first try")
}

func TestProcessReply_CallerGoneDuringFinalize(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fin := &mockFinalizer{FinalizeFunc: func(context.Context, []types.Message, int) analysis.FinalResult {
		cancel()
		return analysis.FinalResult{FinalAssessment: types.FinalAssessment{FinalScore: 81, Summary: "Relocates"}, Source: analysis.SourceGenerated}
	}}
	h := newHarness(t, analysis.NewAnalyzer(nil, nil), fin)
	start, err := h.orch.StartSession(context.Background(), h.fixture.Application.ID)
	require.NoError(t, err)

	res, err := h.orch.ProcessReply(ctx, start.Session.ID, "Ready to relocate.")
	require.NoError(t, err)
	assert.True(t, res.IsCompleted)
	require.Error(t, ctx.Err())

	assert.Equal(t, types.SessionCompleted, h.session(t, start.Session.ID).Status)
	a := h.analysis(t, start.Session.ID)
	require.NotNil(t, a.FinalScore)
	assert.Equal(t, 81, *a.FinalScore)
}

func TestProcessReply_NotifierFailureIsContained(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := fallbackHarness(t, withLogger(zap.New(core)))
	h.notifier.panics = true
	ctx := context.Background()

	start, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)
	res, err := h.orch.ProcessReply(ctx, start.Session.ID, "Ready to relocate.")
	require.NoError(t, err)
	assert.True(t, res.IsCompleted)
	assert.Equal(t, 1, logs.FilterMessage("completion notifier panicked").Len())

	h2 := fallbackHarness(t, withLogger(zap.New(core)))
	h2.notifier.err = errors.New("telegram: 401")
	start, err = h2.orch.StartSession(ctx, h2.fixture.Application.ID)
	require.NoError(t, err)
	_, err = h2.orch.ProcessReply(ctx, start.Session.ID, "Yes")
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("completion notification failed").Len())
}

func TestAbandon(t *testing.T) {
	h := fallbackHarness(t)
	ctx := context.Background()
	start, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)

	sess, err := h.orch.Abandon(ctx, start.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionAbandoned, sess.Status)
	assert.Nil(t, sess.PendingQuestionID)

	_, err = h.orch.ProcessReply(ctx, start.Session.ID, "wait")
	var closed *smartbot.SessionClosedError
	assert.ErrorAs(t, err, &closed)

	_, err = h.orch.Abandon(ctx, start.Session.ID)
	assert.ErrorAs(t, err, &closed)

	_, err = h.orch.Abandon(ctx, "missing")
	var nf *smartbot.SessionNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestGetSession(t *testing.T) {
	h := newHarness(t, returning(threeQuestions()), fixedFinal(75, ""))
	ctx := context.Background()
	start, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
	require.NoError(t, err)
	_, err = h.orch.ProcessReply(ctx, start.Session.ID, "Yes")
	require.NoError(t, err)

	view, err := h.orch.GetSession(ctx, start.Session.ID)
	require.NoError(t, err)
	assert.Len(t, view.Messages, 3)
	require.NotNil(t, view.Analysis)
	assert.Len(t, view.Categories, 3)

	_, err = h.orch.GetSession(ctx, "missing")
	var nf *smartbot.SessionNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestStartSession_FallbackIsDeterministic(t *testing.T) {
	ctx := context.Background()
	var seen []types.AnalysisResult
	for i := 0; i < 2; i++ {
		h := fallbackHarness(t)
		start, err := h.orch.StartSession(ctx, h.fixture.Application.ID)
		require.NoError(t, err)
		a := h.analysis(t, start.Session.ID)
		cats, err := h.store.ListCategories(ctx, a.ID)
		require.NoError(t, err)
		res := types.AnalysisResult{InitialScore: a.InitialScore, Strengths: a.Strengths, Concerns: a.Weaknesses}
		for _, c := range cats {
			res.Discrepancies = append(res.Discrepancies, types.Discrepancy{Category: c.Category, Issue: c.Details, Severity: c.Severity})
		}
		res.Questions = append([]types.Question{{Question: start.Message.Content}}, start.Message.Metadata.Remaining...)
		seen = append(seen, res)
	}
	assert.Equal(t, seen[0], seen[1])
}
