package analysis

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/Rauan228/HackNU2/internal/llm"
	"github.com/Rauan228/HackNU2/internal/logger"
	"github.com/Rauan228/HackNU2/internal/schemas"
	"github.com/Rauan228/HackNU2/internal/scoring"
	"github.com/Rauan228/HackNU2/internal/types"
	"go.uber.org/zap"
)

const (
	finalizeTemperature = 0.5
	finalizeMaxTokens   = 1000
)

// Fallback summaries, chosen by how many answers the candidate gave.
const (
	SummaryNoAnswers      = "Candidate provided no information during the dialogue."
	SummaryFewAnswers     = "Candidate provided limited information; further verification is recommended."
	SummaryDialogueClosed = "Clarification dialogue completed."
)

// FinalResult is the outcome of finalizing a dialogue.
type FinalResult struct {
	types.FinalAssessment
	Source Source
	Err    error
}

// Finalizer turns a finished transcript into a final score and summary.
type Finalizer struct {
	gen llm.Generator
	log *zap.Logger
}

// NewFinalizer creates a Finalizer. A nil generator always uses the answer-count rule.
func NewFinalizer(gen llm.Generator, log *zap.Logger) *Finalizer {
	return &Finalizer{gen: gen, log: logger.OrNop(log)}
}

// Finalize never fails. The recommendation of a fallback result is empty.
func (f *Finalizer) Finalize(ctx context.Context, history []types.Message, initialScore int) FinalResult {
	if f.gen == nil {
		return FinalResult{FinalAssessment: FallbackAssessment(history, initialScore), Source: SourceFallback}
	}

	prompt, err := BuildFinalizePrompt(history, initialScore)
	if err != nil {
		return f.fallback(history, initialScore, err)
	}
	log := logger.WithFields(f.log, logger.CommonFields(string(f.gen.Provider()), f.gen.GetModel(llm.TierLite))...)

	text, err := f.gen.Generate(ctx, llm.Request{
		System:      prompt.System,
		Prompt:      prompt.User,
		Tier:        llm.TierLite,
		Temperature: finalizeTemperature,
		MaxTokens:   finalizeMaxTokens,
		JSON:        true,
	})
	if err != nil {
		return f.fallback(history, initialScore, err)
	}
	log.Debug("finalization response", zap.String("response", logger.TruncateForLog(text, logPreviewSize)))

	fa, err := ParseFinal(text)
	if err != nil {
		return f.fallback(history, initialScore, err)
	}
	return FinalResult{FinalAssessment: fa, Source: SourceGenerated}
}

func (f *Finalizer) fallback(history []types.Message, initialScore int, cause error) FinalResult {
	f.log.Warn("finalization fell back to answer-count rule",
		zap.String("analysis_source", string(SourceFallback)),
		zap.Error(cause),
	)
	return FinalResult{FinalAssessment: FallbackAssessment(history, initialScore), Source: SourceFallback, Err: cause}
}

// CountAnswers returns the number of answer messages in history.
func CountAnswers(history []types.Message) int {
	n := 0
	for _, m := range history {
		if m.Type == types.MessageAnswer {
			n++
		}
	}
	return n
}

// FallbackAssessment scores a dialogue from the number of answers alone.
func FallbackAssessment(history []types.Message, initialScore int) types.FinalAssessment {
	answers := CountAnswers(history)
	fa := types.FinalAssessment{FinalScore: scoring.FallbackFinalScore(initialScore, answers)}
	switch {
	case answers == 0:
		fa.Summary = SummaryNoAnswers
	case answers < 3:
		fa.Summary = SummaryFewAnswers
	default:
		fa.Summary = SummaryDialogueClosed
	}
	return fa
}

type rawFinal struct {
	FinalScore        float64  `json:"final_score"`
	Recommendation    string   `json:"recommendation"`
	Summary           string   `json:"summary"`
	KeyInsights       []string `json:"key_insights"`
	ResolvedConcerns  []string `json:"resolved_concerns"`
	RemainingConcerns []string `json:"remaining_concerns"`
}

// ParseFinal turns generation output into a FinalAssessment. The score is
// clamped to [0,100] and an unknown recommendation is dropped.
func ParseFinal(text string) (types.FinalAssessment, error) {
	span := llm.ExtractJSONObject(llm.CleanJSONBlock(text))
	if span == "" {
		return types.FinalAssessment{}, &llm.MalformedOutputError{Reason: "no JSON object", Output: text}
	}
	if err := schemas.ValidateFinal(span); err != nil {
		return types.FinalAssessment{}, &llm.MalformedOutputError{Reason: "schema validation failed", Output: span, Err: err}
	}
	var raw rawFinal
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return types.FinalAssessment{}, &llm.MalformedOutputError{Reason: "decode failed", Output: span, Err: err}
	}

	fa := types.FinalAssessment{
		FinalScore:        scoring.ClampScore(int(math.Round(raw.FinalScore))),
		Summary:           strings.TrimSpace(raw.Summary),
		KeyInsights:       nonEmpty(raw.KeyInsights),
		ResolvedConcerns:  nonEmpty(raw.ResolvedConcerns),
		RemainingConcerns: nonEmpty(raw.RemainingConcerns),
	}
	if rec, ok := types.ParseRecommendation(raw.Recommendation); ok {
		fa.Recommendation = rec
	}
	return fa, nil
}
