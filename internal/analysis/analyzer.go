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
	analysisTemperature = 0.7
	analysisMaxTokens   = 2000
	defaultCategory     = "general"
)

// Result is the outcome of a fit analysis. Err is the reason the fallback was
// taken; it is nil for generated results and for an unconfigured backend.
type Result struct {
	Analysis types.AnalysisResult
	Source   Source
	Err      error
}

// Analyzer evaluates a candidate against a job posting.
type Analyzer struct {
	gen llm.Generator
	log *zap.Logger
}

// NewAnalyzer creates an Analyzer. A nil generator makes every call return the demo result.
func NewAnalyzer(gen llm.Generator, log *zap.Logger) *Analyzer {
	return &Analyzer{gen: gen, log: logger.OrNop(log)}
}

// Analyze never fails: generation and parsing problems fall back to DemoResult.
func (a *Analyzer) Analyze(ctx context.Context, job types.Job, c types.Candidate) Result {
	if a.gen == nil {
		a.log.Info("generation backend not configured, using demo analysis",
			zap.String("analysis_source", string(SourceFallback)))
		return Result{Analysis: DemoResult(job, c), Source: SourceFallback}
	}

	prompt, err := BuildAnalysisPrompt(job, c)
	if err != nil {
		return a.fallback(job, c, err)
	}
	log := logger.WithFields(a.log, logger.CommonFields(string(a.gen.Provider()), a.gen.GetModel(llm.TierStandard))...)
	log.Debug("requesting fit analysis", zap.String("prompt", logger.TruncateForLog(prompt.User, logPreviewSize)))

	text, err := a.gen.Generate(ctx, llm.Request{
		System:      prompt.System,
		Prompt:      prompt.User,
		Tier:        llm.TierStandard,
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
		JSON:        true,
	})
	if err != nil {
		return a.fallback(job, c, err)
	}
	log.Debug("fit analysis response", zap.String("response", logger.TruncateForLog(text, logPreviewSize)))

	res, err := ParseAnalysis(text)
	if err != nil {
		return a.fallback(job, c, err)
	}
	return Result{Analysis: res, Source: SourceGenerated}
}

func (a *Analyzer) fallback(job types.Job, c types.Candidate, cause error) Result {
	a.log.Warn("fit analysis fell back to demo result",
		zap.String("analysis_source", string(SourceFallback)),
		zap.Error(cause),
	)
	return Result{Analysis: DemoResult(job, c), Source: SourceFallback, Err: cause}
}

type rawAnalysis struct {
	InitialScore  any `json:"initial_score"`
	Discrepancies []struct {
		Category string `json:"category"`
		Issue    string `json:"issue"`
		Severity string `json:"severity"`
	} `json:"discrepancies"`
	Questions      []types.Question `json:"questions"`
	Strengths      []string         `json:"strengths"`
	Concerns       []string         `json:"concerns"`
	Recommendation string           `json:"recommendation"`
}

// ParseAnalysis turns generation output into a normalized AnalysisResult.
// Output without a JSON object, or one that fails the schema, yields *llm.MalformedOutputError.
func ParseAnalysis(text string) (types.AnalysisResult, error) {
	span := llm.ExtractJSONObject(llm.CleanJSONBlock(text))
	if span == "" {
		return types.AnalysisResult{}, &llm.MalformedOutputError{Reason: "no JSON object", Output: text}
	}
	if err := schemas.ValidateAnalysis(span); err != nil {
		return types.AnalysisResult{}, &llm.MalformedOutputError{Reason: "schema validation failed", Output: span, Err: err}
	}
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return types.AnalysisResult{}, &llm.MalformedOutputError{Reason: "decode failed", Output: span, Err: err}
	}

	res := types.AnalysisResult{
		InitialScore:  coerceScore(raw.InitialScore),
		Discrepancies: make([]types.Discrepancy, 0, len(raw.Discrepancies)),
		Questions:     make([]types.Question, 0, len(raw.Questions)),
		Strengths:     nonEmpty(raw.Strengths),
		Concerns:      nonEmpty(raw.Concerns),
	}
	for _, d := range raw.Discrepancies {
		res.Discrepancies = append(res.Discrepancies, types.Discrepancy{
			Category: categoryOrDefault(d.Category),
			Issue:    strings.TrimSpace(d.Issue),
			Severity: types.ParseSeverity(d.Severity),
		})
	}
	for _, q := range raw.Questions {
		res.Questions = append(res.Questions, types.Question{
			Category: categoryOrDefault(q.Category),
			Question: strings.TrimSpace(q.Question),
			Reason:   strings.TrimSpace(q.Reason),
		})
	}

	switch rec, ok := types.ParseRecommendation(raw.Recommendation); {
	case strings.TrimSpace(raw.Recommendation) == "":
		res.Recommendation = scoring.RecommendationFromScore(res.InitialScore)
	case ok:
		res.Recommendation = rec
	default:
		res.Recommendation = types.RecommendationConsider
	}
	return res, nil
}

// coerceScore accepts only JSON numbers in [0,100]; anything else becomes the neutral score.
func coerceScore(v any) int {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || f < 0 || f > 100 {
		return scoring.NeutralScore
	}
	return int(math.Round(f))
}

func categoryOrDefault(s string) string {
	if s = strings.ToLower(strings.TrimSpace(s)); s == "" {
		return defaultCategory
	}
	return s
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
