package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Rauan228/HackNU2/internal/smartbot"
	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedAsker replays fixed answers and menu choices.
type scriptedAsker struct {
	answers []string
	choices []int
	asked   []string
}

func (s *scriptedAsker) Ask(label string) (string, error) {
	s.asked = append(s.asked, label)
	if len(s.answers) == 0 {
		return "", promptui.ErrEOF
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func (s *scriptedAsker) Choose(string, []string) (int, error) {
	if len(s.choices) == 0 {
		return 0, promptui.ErrInterrupt
	}
	c := s.choices[0]
	s.choices = s.choices[1:]
	return c, nil
}

func TestPlayDemo(t *testing.T) {
	cfg := testConfig(t)
	demoExport = filepath.Join(t.TempDir(), "candidates.xlsx")
	t.Cleanup(func() { demoExport = "candidates.xlsx" })

	in := &scriptedAsker{
		answers: []string{"Yes, I can relocate to Almaty next month.", "BSc in Computer Science"},
		choices: []int{0, 1, 2, 3},
	}
	var out bytes.Buffer
	err := playDemo(context.Background(), cfg, zap.NewNop(), sampleJob(), sampleCandidate(), in, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, smartbot.Greeting)
	assert.Contains(t, text, smartbot.CompletionText)
	assert.Contains(t, text, "CANDIDATE REPORT")
	assert.Contains(t, text, "Candidate: Aigerim Sadykova")
	assert.Contains(t, text, "Clarifications:")
	assert.Contains(t, text, "RANKING: Backend Developer (Go)")
	assert.Contains(t, text, "Wrote "+demoExport)
	assert.Len(t, in.asked, 2)

	info, err := os.Stat(demoExport)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestPlayDemo_Quit(t *testing.T) {
	cfg := testConfig(t)
	in := &scriptedAsker{answers: []string{" /quit "}}
	var out bytes.Buffer

	require.NoError(t, playDemo(context.Background(), cfg, zap.NewNop(), sampleJob(), sampleCandidate(), in, &out))
	assert.Contains(t, out.String(), "Session abandoned.")
}

func TestPlayDemo_EOFAbandons(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, playDemo(context.Background(), cfg, zap.NewNop(), sampleJob(), sampleCandidate(), &scriptedAsker{}, &out))
	assert.Contains(t, out.String(), "Session abandoned.")
}
