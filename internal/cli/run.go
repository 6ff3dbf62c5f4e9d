package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"rootrelay/internal/bridge"
	"rootrelay/internal/config"
	"rootrelay/internal/continuation"
	"rootrelay/internal/history"
	"rootrelay/internal/responder"
	"rootrelay/internal/router"
	"rootrelay/internal/server"
	"rootrelay/internal/skillclient"
	"rootrelay/internal/telemetry"
	"rootrelay/internal/transport"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the root relay HTTP server",
	RunE:  runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Logging)

	store, err := buildBridgeStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("creating bridge store: %w", err)
	}
	defer store.Close()

	turnLog, err := history.NewMemoryStore(cfg.Store.Capacity)
	if err != nil {
		return fmt.Errorf("creating turn log: %w", err)
	}

	target, ok := cfg.Skill(cfg.Bot.TargetSkill)
	if !ok {
		return fmt.Errorf("no skill configured with id %q", cfg.Bot.TargetSkill)
	}

	metrics := telemetry.NewMetrics()
	client := skillclient.NewHTTPClient(cfg.Bot.SkillTimeout)
	deliver := &responder.Auto{
		HTTP: responder.NewHTTP(cfg.Bot.SkillTimeout),
		Log:  &responder.Log{Logger: logger},
	}

	turns := router.New(cfg.Bot, target, store, client, metrics, logger)
	cont := continuation.NewHandler(store, turns, deliver, cfg.Bot.OAuthScope, logger)
	validator := transport.NewValidator(cfg.Server.AuthToken)

	srv := server.NewServer(cfg, validator, cont, turnLog, metrics, logger)

	addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprintf("%d", cfg.Server.Port))
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serve(httpSrv, logger)
}

// serve runs the HTTP server until SIGINT/SIGTERM, then shuts down gracefully.
func serve(httpSrv *http.Server, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down gracefully")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func buildBridgeStore(cfg config.StoreConfig) (bridge.Store, error) {
	switch cfg.Type {
	case "sqlite":
		return bridge.OpenSQLite(cfg.Path)
	default:
		return bridge.NewMemoryStore(), nil
	}
}
