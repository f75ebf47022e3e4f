package smartbot

import (
	"fmt"

	"github.com/Rauan228/HackNU2/internal/types"
)

// Fixed bot texts.
const (
	Greeting          = "Thank you for applying to this vacancy! I'm SmartBot and I'll help the employer get to know your profile better. "
	InfoText          = "Thank you for applying! Your profile matches the vacancy requirements well."
	CompletionText    = "Thank you for your answers! The analysis is complete. The employer will receive detailed information about your profile."
	DefaultQuestion   = "Please clarify."
	candidateAnswerAt = " | Candidate answer: "
)

// SeedQuestions returns the analyzer's questions, or one question per
// discrepancy when the analyzer asked none.
func SeedQuestions(res types.AnalysisResult) []types.Question {
	if len(res.Questions) > 0 {
		out := make([]types.Question, len(res.Questions))
		copy(out, res.Questions)
		return out
	}
	out := make([]types.Question, 0, len(res.Discrepancies))
	for _, d := range res.Discrepancies {
		out = append(out, types.Question{
			Category: d.Category,
			Question: fmt.Sprintf("Could you clarify: %s", d.Issue),
			Reason:   fmt.Sprintf("Clarify %s", d.Category),
		})
	}
	return out
}

func questionText(q types.Question) string {
	if q.Question == "" {
		return DefaultQuestion
	}
	return q.Question
}

// missingRequirements lists the issues of high-severity discrepancies.
func missingRequirements(ds []types.Discrepancy) []string {
	out := []string{}
	for _, d := range ds {
		if d.Severity == types.SeverityHigh {
			out = append(out, d.Issue)
		}
	}
	return out
}
