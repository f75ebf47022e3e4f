package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet    = "Summary"
	candidatesSheet = "Ranked Candidates"
)

var candidateColumns = []string{
	"Rank", "Candidate", "Email", "Location", "Score", "Initial Score", "Recommendation",
	"Status", "Questions Answered", "Strengths", "Concerns", "Summary", "Applied At",
}

// WriteXLSX writes the ranked views of a job as a spreadsheet with a Summary
// sheet and a Ranked Candidates sheet. views are written in the given order.
func WriteXLSX(w io.Writer, job *types.Job, views []ApplicationView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(candidatesSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	label, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create label style: %w", err)
	}

	if err := writeSummarySheet(f, job, views, header, label); err != nil {
		return fmt.Errorf("failed to write summary sheet: %w", err)
	}
	if err := writeCandidatesSheet(f, views, header); err != nil {
		return fmt.Errorf("failed to write candidates sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, job *types.Job, views []ApplicationView, header, label int) error {
	s := Summarize(views)
	if err := f.SetColWidth(summarySheet, "A", "A", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 50); err != nil {
		return err
	}

	title := "SmartBot Candidate Report"
	if job != nil {
		title = fmt.Sprintf("%s: %s", title, job.Title)
	}
	if err := f.SetCellValue(summarySheet, "A1", title); err != nil {
		return err
	}
	if err := f.MergeCell(summarySheet, "A1", "B1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", header); err != nil {
		return err
	}

	rows := [][2]any{
		{"Generated:", time.Now().Format("2006-01-02 15:04:05")},
		{"Candidates:", s.Count},
		{"Completed Sessions:", s.Completed},
		{"Average Score:", s.MeanScore},
		{"Median Score:", s.MedianScore},
		{"Highest Score:", s.MaxScore},
		{"Recommend:", s.ByRecommendation[types.RecommendationRecommend]},
		{"Consider:", s.ByRecommendation[types.RecommendationConsider]},
		{"Reject:", s.ByRecommendation[types.RecommendationReject]},
	}
	if job != nil {
		rows = append([][2]any{
			{"Company:", job.CompanyName},
			{"Location:", job.Location},
		}, rows...)
	}

	row := 3
	for _, r := range rows {
		a := fmt.Sprintf("A%d", row)
		if err := f.SetCellValue(summarySheet, a, r[0]); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, a, a, label); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), r[1]); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writeCandidatesSheet(f *excelize.File, views []ApplicationView, header int) error {
	for i, name := range candidateColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(candidatesSheet, cell, name); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(candidateColumns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(candidatesSheet, "A1", last, header); err != nil {
		return err
	}
	if err := f.SetColWidth(candidatesSheet, "B", "D", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(candidatesSheet, "J", "L", 50); err != nil {
		return err
	}

	for i, v := range views {
		values := []any{
			i + 1,
			v.Candidate.Name,
			v.Candidate.Email,
			v.Candidate.Location,
			v.Score,
			v.InitialScore,
			string(v.Recommendation),
			string(v.SessionStatus),
			fmt.Sprintf("%d/%d", v.QuestionsAnswered, v.QuestionsAsked),
			strings.Join(v.Strengths, "; "),
			strings.Join(v.Concerns, "; "),
			v.Summary,
			v.AppliedAt.Format("2006-01-02 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(candidatesSheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
