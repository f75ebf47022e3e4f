package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockGenerator is a Generator with a pluggable Generate function.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, req Request) (string, error)
	calls        int
}

func (m *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	m.calls++
	return m.GenerateFunc(ctx, req)
}

func (m *MockGenerator) Provider() Provider          { return "mock" }
func (m *MockGenerator) GetModel(_ ModelTier) string { return "mock-model" }
func (m *MockGenerator) Close() error                { return nil }

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	original := sleep
	sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { sleep = original })
	return &waits
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, Backoff(0))
	assert.Equal(t, 2*time.Second, Backoff(1))
	assert.Equal(t, 4*time.Second, Backoff(2))
}

func TestRetryingGenerator_SucceedsAfterFailures(t *testing.T) {
	waits := stubSleep(t)
	mock := &MockGenerator{}
	mock.GenerateFunc = func(_ context.Context, _ Request) (string, error) {
		if mock.calls < 3 {
			return "", errors.New("503")
		}
		return "ok", nil
	}

	text, err := WithRetry(mock, 3, time.Second, nil).Generate(context.Background(), Request{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, mock.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestRetryingGenerator_ExhaustsAttempts(t *testing.T) {
	waits := stubSleep(t)
	boom := errors.New("boom")
	mock := &MockGenerator{GenerateFunc: func(_ context.Context, _ Request) (string, error) {
		return "", boom
	}}
	core, observed := observer.New(zapcore.WarnLevel)

	_, err := WithRetry(mock, 0, 0, zap.New(core)).Generate(context.Background(), Request{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, DefaultMaxAttempts, mock.calls)
	assert.Len(t, *waits, 2, "no sleep after the final attempt")
	assert.Equal(t, 3, observed.FilterMessage("generation attempt failed").Len())
}

func TestRetryingGenerator_StopsOnCancelledContext(t *testing.T) {
	original := sleep
	t.Cleanup(func() { sleep = original })
	sleep = func(ctx context.Context, _ time.Duration) error { return context.Canceled }

	mock := &MockGenerator{GenerateFunc: func(_ context.Context, _ Request) (string, error) {
		return "", errors.New("fail")
	}}

	_, err := WithRetry(mock, 3, time.Second, nil).Generate(context.Background(), Request{})

	assert.ErrorIs(t, err, ErrGenerationUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.calls)
}

func TestRetryingGenerator_AppliesTimeout(t *testing.T) {
	stubSleep(t)
	mock := &MockGenerator{GenerateFunc: func(ctx context.Context, _ Request) (string, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
		return "done", nil
	}}

	_, err := WithRetry(mock, 1, 50*time.Millisecond, nil).Generate(context.Background(), Request{})
	require.NoError(t, err)
}

func TestNewGenerator_NotConfigured(t *testing.T) {
	g, err := NewGenerator(context.Background(), &Config{Provider: ProviderGemini})
	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewGenerator(context.Background(), &Config{Provider: "bogus", APIKey: "k"})
	assert.Error(t, err)
}

func TestMalformedOutputError(t *testing.T) {
	inner := errors.New("unexpected end of JSON input")
	err := &MalformedOutputError{Reason: "decode", Err: inner}

	assert.Contains(t, err.Error(), "decode")
	assert.ErrorIs(t, err, inner)

	var target *MalformedOutputError
	assert.True(t, errors.As(error(err), &target))
}
