package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/larkbot/internal/bots"
	"github.com/ziadkadry99/larkbot/internal/config"
	"github.com/ziadkadry99/larkbot/internal/feishu"
	"github.com/ziadkadry99/larkbot/internal/scheduler"
	"github.com/ziadkadry99/larkbot/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook relay",
	Long: `Starts the HTTP server that receives Lark/Feishu event callbacks on
POST /lark/event and replies to each message with an LLM completion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log := newLogger(cfg)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("larkbot starting", "version", Version, "addr", cfg.Server.Addr(),
			"provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
		return runRelay(ctx, cfg, log)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", config.DefaultPort, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}

// runRelay wires the relay together and serves until ctx ends.
func runRelay(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	provider, err := createLLMProviderFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	client := createFeishuClientFromConfig(cfg)
	tokens := feishu.NewTokenCache(client,
		feishu.WithRefreshMargin(cfg.Feishu.RefreshMargin),
		feishu.WithLogger(log.With("component", "feishu")),
	)

	// Reply tasks outlive their requests; they are drained on shutdown
	// and only cancelled once the drain deadline passes.
	tasksCtx, cancelTasks := context.WithCancel(context.Background())
	defer cancelTasks()

	processor := bots.NewProcessor(provider, bots.ProcessorConfig{
		Model:         cfg.LLM.Model,
		MaxTokens:     cfg.LLM.MaxTokens,
		Timeout:       cfg.LLM.Timeout,
		FallbackReply: cfg.LLM.FallbackReply,
	}, log.With("component", "processor"))
	gateway := bots.NewGateway(tasksCtx, processor, tokens, client, bots.GatewayConfig{
		TaskTimeout: cfg.Events.TaskTimeout,
		Logger:      log.With("component", "gateway"),
	})
	dedupe := bots.NewDeduper(cfg.Events.DedupeTTL)
	lark := bots.NewLarkHandler(gateway, bots.LarkHandlerConfig{
		VerificationToken: cfg.Feishu.VerificationToken,
		Dedupe:            dedupe,
		Logger:            log.With("component", "lark"),
	})

	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr(),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, log.With("component", "http"))
	bots.RegisterRoutes(srv.Router(), lark)

	sched, err := scheduler.New(log)
	if err != nil {
		return err
	}
	if cfg.Events.DedupeTTL > 0 {
		if err := sched.Every("event-dedupe-sweep", cfg.Events.SweepInterval, func() {
			if n := dedupe.Sweep(); n > 0 {
				log.Debug("expired event ids swept", "count", n)
			}
		}); err != nil {
			return err
		}
	}
	if cfg.Feishu.RefreshInterval > 0 {
		if err := sched.EveryNow("tenant-token-warmup", cfg.Feishu.RefreshInterval, func() {
			wctx, cancel := context.WithTimeout(tasksCtx, cfg.Feishu.Timeout)
			defer cancel()
			// Failures are logged by the cache; the next request retries.
			_, _ = tokens.Token(wctx)
		}); err != nil {
			return err
		}
	}
	sched.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := gateway.Wait(shutdownCtx); err != nil {
			log.Warn("abandoning in-flight reply tasks", "error", err)
		}
		cancelTasks()
		if err := sched.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error("larkbot stopped with error", "error", err)
		return err
	}
	log.Info("larkbot stopped")
	return nil
}
