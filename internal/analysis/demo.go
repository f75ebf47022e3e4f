package analysis

import (
	"fmt"
	"strings"

	"github.com/Rauan228/HackNU2/internal/types"
)

// DemoScore is the initial score of every demo result.
const DemoScore = 75

// DemoResult is the deterministic analysis used when generation is unavailable.
// It only depends on its inputs, so the same job and candidate always produce
// the same discrepancies, questions and score.
func DemoResult(job types.Job, c types.Candidate) types.AnalysisResult {
	res := types.AnalysisResult{
		InitialScore:   DemoScore,
		Discrepancies:  []types.Discrepancy{},
		Questions:      []types.Question{},
		Strengths:      []string{"Suitable work experience", "Relevant skills"},
		Concerns:       []string{},
		Recommendation: types.RecommendationConsider,
	}

	if locationMismatch(job, c) {
		res.Discrepancies = append(res.Discrepancies, types.Discrepancy{
			Category: "location",
			Issue:    fmt.Sprintf("Candidate is based in %s while the vacancy is in %s", strings.TrimSpace(c.Location), strings.TrimSpace(job.Location)),
			Severity: types.SeverityMedium,
		})
		res.Questions = append(res.Questions, types.Question{
			Category: "location",
			Question: "I see you're from another city. Are you ready to consider relocation or remote work?",
			Reason:   "Clarify readiness to relocate",
		})
		res.Concerns = append(res.Concerns, "Location mismatch")
	}

	if strings.TrimSpace(c.Education) == "" {
		res.Discrepancies = append(res.Discrepancies, types.Discrepancy{
			Category: "education",
			Issue:    "Relevant higher education not specified",
			Severity: types.SeverityLow,
		})
		res.Questions = append(res.Questions, types.Question{
			Category: "education",
			Question: "Please clarify your education level and field so we can match it with the vacancy requirements.",
			Reason:   "Verify education fit",
		})
		res.Concerns = append(res.Concerns, "Unclear education")
	}

	return res
}

func locationMismatch(job types.Job, c types.Candidate) bool {
	jobLoc := strings.ToLower(strings.TrimSpace(job.Location))
	candLoc := strings.ToLower(strings.TrimSpace(c.Location))
	if jobLoc == "" || candLoc == "" || job.Remote() {
		return false
	}
	return jobLoc != candLoc
}
