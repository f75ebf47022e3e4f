// Package observability provides formatted terminal output for the SmartBot CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/Rauan228/HackNU2/internal/analysis"
	"github.com/Rauan228/HackNU2/internal/report"
	"github.com/Rauan228/HackNU2/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the terminal.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most width runes.
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// writeList writes at most maxItemsToShow items under a heading.
func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(title + ":\n")
	for _, item := range items[:min(len(items), maxItemsToShow)] {
		sb.WriteString("  • " + item + "\n")
	}
	if len(items) > maxItemsToShow {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-maxItemsToShow)
	}
	sb.WriteString("\n")
}

// PrintAnalysis outputs the fit analysis of a candidate.
func (p *Printer) PrintAnalysis(job *types.Job, res analysis.Result) {
	a := res.Analysis
	var sb strings.Builder

	if job != nil {
		fmt.Fprintf(&sb, "Vacancy:  %s\n", job.Title)
		if job.CompanyName != "" {
			fmt.Fprintf(&sb, "Company:  %s\n", job.CompanyName)
		}
	}
	fmt.Fprintf(&sb, "Score:    %d\n", a.InitialScore)
	fmt.Fprintf(&sb, "Verdict:  %s\n", a.Recommendation)
	fmt.Fprintf(&sb, "Source:   %s\n", res.Source)
	sb.WriteString("\n")

	writeList(&sb, "Strengths", a.Strengths)
	writeList(&sb, "Concerns", a.Concerns)

	if len(a.Discrepancies) > 0 {
		sb.WriteString("Discrepancies:\n")
		for _, d := range a.Discrepancies {
			fmt.Fprintf(&sb, "  • [%s/%s] %s\n", d.Category, d.Severity, d.Issue)
		}
		sb.WriteString("\n")
	}

	if len(a.Questions) > 0 {
		sb.WriteString("Questions:\n")
		for i, q := range a.Questions {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, q.Question)
		}
	}

	p.printBox("FIT ANALYSIS", sb.String())
}

// PrintReport outputs the employer view of one application.
func (p *Printer) PrintReport(v *report.ApplicationView) {
	if v == nil {
		return
	}
	var sb strings.Builder

	fmt.Fprintf(&sb, "Candidate: %s\n", v.Candidate.Name)
	if v.Candidate.Email != "" {
		fmt.Fprintf(&sb, "Email:     %s\n", v.Candidate.Email)
	}
	fmt.Fprintf(&sb, "Score:     %d (initial %d)\n", v.Score, v.InitialScore)
	fmt.Fprintf(&sb, "Verdict:   %s\n", v.Recommendation)
	fmt.Fprintf(&sb, "Session:   %s, %d/%d answered\n", v.SessionStatus, v.QuestionsAnswered, v.QuestionsAsked)
	sb.WriteString("\n")

	if v.Summary != "" {
		sb.WriteString(v.Summary + "\n\n")
	}
	writeList(&sb, "Strengths", v.Strengths)
	writeList(&sb, "Key insights", v.KeyInsights)
	writeList(&sb, "Remaining concerns", v.RemainingConcerns)

	if len(v.Clarifications) > 0 {
		sb.WriteString("Clarifications:\n")
		for _, c := range v.Clarifications {
			fmt.Fprintf(&sb, "  • %s: %s\n", c.Category, c.Answer)
		}
		sb.WriteString("\n")
	}

	if len(v.Categories) > 0 {
		sb.WriteString("Categories:\n")
		for _, c := range v.Categories {
			fmt.Fprintf(&sb, "  • %-12s %-10s %s\n", c.Category, c.Status, c.Severity)
		}
	}

	p.printBox("CANDIDATE REPORT", sb.String())
}

// PrintRanking outputs the ranked applications of a job, one per line.
func (p *Printer) PrintRanking(job *types.Job, views []report.ApplicationView) {
	var sb strings.Builder
	if len(views) == 0 {
		sb.WriteString("No analyzed applications yet.\n")
	}
	for i, v := range views {
		fmt.Fprintf(&sb, "%2d. %-24s %3d  %s\n", i+1, truncate(v.Candidate.Name, 24), v.Score, v.Recommendation)
	}
	title := "RANKING"
	if job != nil {
		title += ": " + job.Title
	}
	p.printBox(title, sb.String())
}
