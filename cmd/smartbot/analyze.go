package main

import (
	"encoding/json"
	"fmt"

	"github.com/Rauan228/HackNU2/internal/analysis"
	"github.com/Rauan228/HackNU2/internal/logger"
	"github.com/Rauan228/HackNU2/internal/observability"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the fit analysis for a job and a candidate",
	Long: `Evaluate a candidate profile against a job posting and print the initial
score, the discrepancies found and the clarification questions that would be
asked. Both inputs are YAML files.

Without a configured generation backend the built-in demo analysis is used.`,
	Example: `  smartbot analyze --job testdata/job.yaml --candidate testdata/candidate.yaml
  smartbot analyze -j job.yaml -c candidate.yaml --format text`,
	RunE: runAnalyze,
}

var (
	analyzeJob       string
	analyzeCandidate string
	analyzeFormat    string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeJob, "job", "j", "", "Path to job posting YAML (required)")
	analyzeCmd.Flags().StringVarP(&analyzeCandidate, "candidate", "c", "", "Path to candidate profile YAML (required)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "Output format: json or text")
	_ = analyzeCmd.MarkFlagRequired("job")
	_ = analyzeCmd.MarkFlagRequired("candidate")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if analyzeFormat != "json" && analyzeFormat != "text" {
		return fmt.Errorf("unknown format %q (want json or text)", analyzeFormat)
	}
	job, err := loadJob(analyzeJob)
	if err != nil {
		return err
	}
	candidate, err := loadCandidate(analyzeCandidate)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	gen, err := newGenerator(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	if gen != nil {
		defer func() { _ = gen.Close() }()
	}

	res := analysis.NewAnalyzer(gen, log).Analyze(cmd.Context(), job, candidate)
	if analyzeFormat == "text" {
		observability.NewPrinter(cmd.OutOrStdout()).PrintAnalysis(&job, res)
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Source string `json:"source"`
		types.AnalysisResult
	}{Source: string(res.Source), AnalysisResult: res.Analysis})
}
