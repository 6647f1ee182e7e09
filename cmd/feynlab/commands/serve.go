package commands

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/feynlab/feynlab/internal/budget"
	"github.com/feynlab/feynlab/internal/compress"
	"github.com/feynlab/feynlab/internal/config"
	"github.com/feynlab/feynlab/internal/event"
	"github.com/feynlab/feynlab/internal/logging"
	"github.com/feynlab/feynlab/internal/persist"
	"github.com/feynlab/feynlab/internal/server"
	"github.com/feynlab/feynlab/internal/session"
	"github.com/feynlab/feynlab/internal/storage"
	"github.com/feynlab/feynlab/internal/validate"
)

var (
	servePort int
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the feynlab HTTP server",
	Long: `Start feynlab as an HTTP server exposing the session API.

The server owns a single live session, persists it to the configured
data directory after every change, and restores it on startup.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8484, "Port to listen on")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Config directory (defaults to cwd)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Optional .env for API keys during development. Missing file is fine.
	_ = godotenv.Load()

	dir := serveDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = wd
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if cmd.Root().PersistentFlags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	log := logging.New(logging.Options{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Pretty: printLogs,
	})
	log.Info().Str("dataDir", cfg.DataDir).Str("model", cfg.Model).Msg("starting feynlab")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	store := storage.New(cfg.DataDir)
	gateway := persist.New(store, cfg.HistoryCap, log)

	// "provider/model" form; the client wants the bare model name.
	model := cfg.Model
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	client := validate.NewOpenAIClient(validate.OpenAIConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   model,
	})
	orchestrator := validate.NewOrchestrator(client, log)

	bus := event.NewBus()
	defer bus.Close()

	svc := session.NewService(session.Options{
		Estimator: budget.NewEstimator(cfg.Budget.CharsPerToken),
		Engine: compress.NewEngine(compress.Thresholds{
			Soft:      cfg.Budget.SoftThreshold,
			Hard:      cfg.Budget.HardThreshold,
			Emergency: cfg.Budget.EmergencyThreshold,
		}),
		Gateway:   gateway,
		Validator: orchestrator,
		Bus:       bus,
		Log:       log,
	})

	if reset := svc.Resume(cmd.Context()); reset {
		log.Warn().Msg("saved session was from an incompatible version, starting fresh")
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = servePort
	srv := server.New(serverConfig, svc, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	svc.Flush()
	return nil
}
