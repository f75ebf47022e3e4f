package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Rauan228/HackNU2/internal/config"
	"github.com/Rauan228/HackNU2/internal/logger"
	"github.com/Rauan228/HackNU2/internal/memstore"
	"github.com/Rauan228/HackNU2/internal/observability"
	"github.com/Rauan228/HackNU2/internal/report"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an interactive analysis session in the terminal",
	Long: `Play the candidate side of a SmartBot session against an in-memory store,
then look at the report the employer would receive.

Uses the configured generation backend when one is set, otherwise the demo analysis.`,
	RunE: runDemo,
}

var (
	demoJob       string
	demoCandidate string
	demoExport    string
)

func init() {
	demoCmd.Flags().StringVarP(&demoJob, "job", "j", "", "Path to job posting YAML (defaults to a sample posting)")
	demoCmd.Flags().StringVarP(&demoCandidate, "candidate", "c", "", "Path to candidate profile YAML (defaults to a sample profile)")
	demoCmd.Flags().StringVar(&demoExport, "export", "candidates.xlsx", "Where the spreadsheet export is written")
	rootCmd.AddCommand(demoCmd)
}

// asker reads the candidate's input.
type asker interface {
	Ask(label string) (string, error)
	Choose(label string, items []string) (int, error)
}

// terminal asks through promptui.
type terminal struct{}

func (terminal) Ask(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("answer cannot be empty")
			}
			return nil
		},
	}
	return p.Run()
}

func (terminal) Choose(label string, items []string) (int, error) {
	s := promptui.Select{Label: label, Items: items}
	i, _, err := s.Run()
	return i, err
}

// quitCommand abandons the session from the answer prompt.
const quitCommand = "/quit"

func runDemo(cmd *cobra.Command, _ []string) error {
	job, candidate := sampleJob(), sampleCandidate()
	var err error
	if demoJob != "" {
		if job, err = loadJob(demoJob); err != nil {
			return err
		}
	}
	if demoCandidate != "" {
		if candidate, err = loadCandidate(demoCandidate); err != nil {
			return err
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := zap.NewNop()
	if cfg.Log.Debug {
		if log, err = logger.New(cfg.Log.JSON, true); err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
	}

	return playDemo(cmd.Context(), cfg, log, job, candidate, terminal{}, cmd.OutOrStdout())
}

// playDemo runs one session to completion (or until the candidate quits) and
// then offers the employer views.
func playDemo(ctx context.Context, cfg *config.Config, log *zap.Logger, job types.Job, c types.Candidate, in asker, out io.Writer) error {
	st := memstore.New()
	fx := memstore.NewFixture(job, c)
	st.Seed(fx)

	a, err := newApp(ctx, cfg, st, log)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(out, "Applying as %s to %q at %s.\nType %s to leave the session.\n\n", c.Name, job.Title, job.CompanyName, quitCommand)
	started, err := a.sessions.StartSession(ctx, fx.Application.ID)
	if err != nil {
		return err
	}
	printMessage(out, started.Message)

	sessionID := started.Session.ID
	status := started.Session.Status
	for status == types.SessionActive {
		answer, err := in.Ask("You")
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				answer = quitCommand
			} else {
				return err
			}
		}
		if strings.TrimSpace(answer) == quitCommand {
			if _, err := a.sessions.Abandon(ctx, sessionID); err != nil {
				return err
			}
			fmt.Fprintln(out, "Session abandoned.")
			return nil
		}

		res, err := a.sessions.ProcessReply(ctx, sessionID, strings.TrimSpace(answer))
		if err != nil {
			return err
		}
		printMessage(out, res.Message)
		status = res.SessionStatus
	}

	return employerMenu(ctx, a, fx.Job, sessionID, in, out)
}

func employerMenu(ctx context.Context, a *app, job types.Job, sessionID string, in asker, out io.Writer) error {
	printer := observability.NewPrinter(out)
	items := []string{"Show employer report", "Show job ranking", "Export spreadsheet", "Quit"}
	for {
		choice, err := in.Choose("Employer view", items)
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return err
		}
		switch choice {
		case 0:
			view, err := a.views.SessionView(ctx, sessionID)
			if err != nil {
				return err
			}
			printer.PrintReport(view)
		case 1:
			views, err := a.views.JobViews(ctx, job.ID)
			if err != nil {
				return err
			}
			printer.PrintRanking(&job, views)
		case 2:
			if err := exportJob(ctx, a, job, demoExport); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", demoExport)
		default:
			return nil
		}
	}
}

func exportJob(ctx context.Context, a *app, job types.Job, path string) error {
	views, err := a.views.JobViews(ctx, job.ID)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := report.WriteXLSX(f, &job, views); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printMessage(out io.Writer, m *types.Message) {
	if m == nil {
		return
	}
	fmt.Fprintf(out, "SmartBot: %s\n\n", m.Content)
}
