package analysis

import (
	"fmt"
	"strings"

	"github.com/Rauan228/HackNU2/internal/prompts"
	"github.com/Rauan228/HackNU2/internal/types"
)

func orNotSpecified(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return notSpecified
	}
	return s
}

func salaryBand(job types.Job) string {
	switch {
	case job.SalaryMin != nil && job.SalaryMax != nil:
		return fmt.Sprintf("%d - %d", *job.SalaryMin, *job.SalaryMax)
	case job.SalaryMin != nil:
		return fmt.Sprintf("from %d", *job.SalaryMin)
	case job.SalaryMax != nil:
		return fmt.Sprintf("up to %d", *job.SalaryMax)
	default:
		return notSpecified
	}
}

// BuildAnalysisPrompt renders the fit analysis prompt. Empty fields are
// rendered as "Not specified".
func BuildAnalysisPrompt(job types.Job, c types.Candidate) (prompts.Prompt, error) {
	return prompts.Analysis(prompts.AnalysisInput{
		JobTitle:          orNotSpecified(job.Title),
		Company:           orNotSpecified(job.CompanyName),
		JobLocation:       orNotSpecified(job.Location),
		EmploymentType:    orNotSpecified(job.EmploymentType),
		ExperienceLevel:   orNotSpecified(job.ExperienceLevel),
		Salary:            salaryBand(job),
		Description:       orNotSpecified(job.Description),
		Requirements:      orNotSpecified(job.Requirements),
		CandidateName:     orNotSpecified(c.Name),
		CandidateLocation: orNotSpecified(c.Location),
		Skills:            orNotSpecified(c.Skills),
		Experience:        orNotSpecified(c.Experience),
		Education:         orNotSpecified(c.Education),
		Summary:           orNotSpecified(c.Summary),
	})
}

// Transcript renders messages as "type: content" lines in order.
func Transcript(history []types.Message) string {
	var sb strings.Builder
	for _, m := range history {
		sb.WriteString(string(m.Type))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// BuildFinalizePrompt renders the finalization prompt.
func BuildFinalizePrompt(history []types.Message, initialScore int) (prompts.Prompt, error) {
	return prompts.Finalize(prompts.FinalizeInput{
		InitialScore: initialScore,
		Transcript:   Transcript(history),
	})
}
