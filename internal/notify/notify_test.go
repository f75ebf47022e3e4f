package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/Rauan228/HackNU2/internal/report"
	"github.com/Rauan228/HackNU2/internal/types"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockViews struct {
	SessionViewFunc func(ctx context.Context, sessionID string) (*report.ApplicationView, error)
}

func (m *mockViews) SessionView(ctx context.Context, sessionID string) (*report.ApplicationView, error) {
	return m.SessionViewFunc(ctx, sessionID)
}

type mockJobs struct {
	job *types.Job
	err error
}

func (m *mockJobs) GetJob(context.Context, uuid.UUID) (*types.Job, error) {
	return m.job, m.err
}

type mockSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, m.err
}

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) NotifyCompletion(context.Context, string) error {
	c.calls++
	return c.err
}

func sampleView() *report.ApplicationView {
	return &report.ApplicationView{
		ApplicationID:     uuid.New(),
		JobID:             uuid.New(),
		Candidate:         report.CandidateInfo{Name: "Aigerim <Dev>"},
		Score:             82,
		Recommendation:    types.RecommendationRecommend,
		Summary:           "Ready to relocate & start in May.",
		QuestionsAsked:    2,
		QuestionsAnswered: 2,
	}
}

func viewsReturning(v *report.ApplicationView, err error) *mockViews {
	return &mockViews{SessionViewFunc: func(context.Context, string) (*report.ApplicationView, error) { return v, err }}
}

func TestFormatCompletion(t *testing.T) {
	text := FormatCompletion(&types.Job{Title: "Go Developer", CompanyName: "Acme"}, sampleView())

	assert.Contains(t, text, "<b>SmartBot analysis completed</b>")
	assert.Contains(t, text, "Go Developer at Acme")
	assert.Contains(t, text, "Aigerim &lt;Dev&gt;")
	assert.Contains(t, text, "Score: <b>82</b>/100")
	assert.Contains(t, text, "Recommendation: <b>recommend</b>")
	assert.Contains(t, text, "Answered 2 of 2 questions")
	assert.Contains(t, text, "Ready to relocate &amp; start in May.")

	noJob := FormatCompletion(nil, &report.ApplicationView{})
	assert.Contains(t, noJob, "👤 -")
}

func TestTelegramNotifier_NotifyCompletion(t *testing.T) {
	bot := &mockSender{}
	n := newTelegramNotifier(bot, 42, viewsReturning(sampleView(), nil), &mockJobs{job: &types.Job{Title: "Go Developer"}})

	require.NoError(t, n.NotifyCompletion(context.Background(), "s1"))
	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "Go Developer")
}

func TestTelegramNotifier_Errors(t *testing.T) {
	ctx := context.Background()

	n := newTelegramNotifier(&mockSender{}, 1, viewsReturning(nil, errors.New("db down")), &mockJobs{})
	assert.ErrorContains(t, n.NotifyCompletion(ctx, "s1"), "db down")

	n = newTelegramNotifier(&mockSender{}, 1, viewsReturning(sampleView(), nil), &mockJobs{err: errors.New("no job")})
	assert.ErrorContains(t, n.NotifyCompletion(ctx, "s1"), "no job")

	n = newTelegramNotifier(&mockSender{err: errors.New("401 Unauthorized")}, 1, viewsReturning(sampleView(), nil), &mockJobs{})
	assert.ErrorContains(t, n.NotifyCompletion(ctx, "s1"), "telegram send failed")
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(viewsReturning(sampleView(), nil), zap.New(core))

	require.NoError(t, n.NotifyCompletion(context.Background(), "s1"))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "session completed", entry.Message)
	assert.Equal(t, int64(82), entry.ContextMap()["score"])
}

func TestMulti(t *testing.T) {
	a := &countingNotifier{}
	b := &countingNotifier{err: errors.New("b failed")}
	c := &countingNotifier{err: errors.New("c failed")}

	err := Multi{a, b, c}.NotifyCompletion(context.Background(), "s1")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
	assert.ErrorContains(t, err, "b failed")
	assert.ErrorContains(t, err, "c failed")

	assert.NoError(t, Multi{a}.NotifyCompletion(context.Background(), "s1"))
}
