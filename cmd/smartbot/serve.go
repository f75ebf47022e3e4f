package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rauan228/HackNU2/internal/config"
	"github.com/Rauan228/HackNU2/internal/logger"
	"github.com/Rauan228/HackNU2/internal/server"
	"github.com/Rauan228/HackNU2/internal/server/ratelimit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the HTTP server exposing the candidate dialogue, the employer reports
and the realtime event streams.

Without a database URL the server keeps everything in memory.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("database-url", "", "PostgreSQL connection string")
	serveCmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	mustBind("server.port", serveCmd.Flags().Lookup("port"))
	mustBind("database.url", serveCmd.Flags().Lookup("database-url"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, a, err := buildServer(ctx, cfg, log, mustGetBool(cmd, "migrate"))
	if err != nil {
		return err
	}
	defer a.Close()

	return srv.Start(ctx)
}

// buildServer wires the engine and the HTTP layer.
func buildServer(ctx context.Context, cfg *config.Config, log *zap.Logger, migrate bool) (*server.Server, *app, error) {
	jwtCfg, err := cfg.JWT()
	if err != nil {
		return nil, nil, err
	}
	pwCfg, err := cfg.Password()
	if err != nil {
		return nil, nil, err
	}

	a, err := newApp(ctx, cfg, nil, log)
	if err != nil {
		return nil, nil, err
	}
	if migrate {
		if err := migrateUp(ctx, a.store, log); err != nil {
			a.Close()
			return nil, nil, err
		}
	}

	srv, err := server.New(server.Deps{
		Store:     a.store,
		Sessions:  a.sessions,
		Views:     a.views,
		Events:    a.hub,
		JWT:       server.NewJWTService(jwtCfg),
		Passwords: pwCfg,
		Limiter:   ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Logger:    log,
	}, server.Options{
		Port:            cfg.Server.Port,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		PingInterval:    cfg.Server.PingInterval,
	})
	if err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("failed to create server: %w", err)
	}
	return srv, a, nil
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(err)
	}
	return v
}
