package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rauan228/HackNU2/internal/analysis"
	"github.com/Rauan228/HackNU2/internal/config"
	"github.com/Rauan228/HackNU2/internal/db"
	"github.com/Rauan228/HackNU2/internal/llm"
	"github.com/Rauan228/HackNU2/internal/memstore"
	"github.com/Rauan228/HackNU2/internal/notify"
	"github.com/Rauan228/HackNU2/internal/realtime"
	"github.com/Rauan228/HackNU2/internal/report"
	"github.com/Rauan228/HackNU2/internal/server"
	"github.com/Rauan228/HackNU2/internal/smartbot"
	"go.uber.org/zap"
)

// store is everything the engine, the read views and the API need from persistence.
type store interface {
	smartbot.Store
	report.Store
	server.Store
}

var (
	_ store = (*db.DB)(nil)
	_ store = (*memstore.Store)(nil)
)

// app is the wired engine shared by serve and demo.
type app struct {
	store    store
	gen      llm.Generator
	hub      *realtime.Hub
	views    *report.Builder
	sessions *smartbot.Orchestrator
	closers  []func()
}

// Close releases the database pool and the generation client.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires the engine. st may be nil, in which case the store is chosen
// by the configuration: PostgreSQL when a database URL is set, memory otherwise.
func newApp(ctx context.Context, cfg *config.Config, st store, log *zap.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	switch {
	case st != nil:
		a.store = st
	case cfg.Database.URL != "":
		database, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, database.Close)
		a.store = database
	default:
		log.Warn("no database configured, using the in-memory store")
		a.store = memstore.New()
	}

	gen, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if gen != nil {
		a.gen = gen
		a.closers = append(a.closers, func() { _ = gen.Close() })
	}

	a.hub = realtime.NewHub(cfg.Realtime.Buffer, log)
	a.views = report.NewBuilder(a.store, cfg.Report.Concurrency)

	notifier, err := newNotifier(cfg, a.views, a.store, log)
	if err != nil {
		return nil, err
	}

	a.sessions, err = smartbot.New(smartbot.Deps{
		Store:     a.store,
		Analyzer:  analysis.NewAnalyzer(a.gen, log),
		Finalizer: analysis.NewFinalizer(a.gen, log),
		Publisher: a.hub,
		Notifier:  notifier,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

// newGenerator returns the configured generation backend wrapped with retries,
// or nil when no credentials are set. The engine then runs on its demo analysis.
func newGenerator(ctx context.Context, cfg *config.Config, log *zap.Logger) (llm.Generator, error) {
	gc, err := cfg.Generation()
	if err != nil {
		return nil, err
	}
	gen, err := llm.NewGenerator(ctx, gc)
	if errors.Is(err, llm.ErrNotConfigured) {
		log.Warn("no generation backend configured, using demo analysis", zap.String("provider", string(gc.Provider)))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	log.Info("generation backend ready",
		zap.String("provider", string(gen.Provider())),
		zap.String("model", gen.GetModel(llm.TierStandard)),
	)
	return llm.WithRetry(gen, gc.MaxAttempts, gc.Timeout, log), nil
}

// newNotifier always logs completions and also posts them to Telegram when configured.
func newNotifier(cfg *config.Config, views notify.ViewSource, jobs notify.JobSource, log *zap.Logger) (smartbot.Notifier, error) {
	n := notify.Multi{notify.NewLogNotifier(views, log)}
	if cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, views, jobs)
		if err != nil {
			return nil, err
		}
		n = append(n, tg)
	}
	return n, nil
}
