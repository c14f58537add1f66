package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"noor-chat/internal/backend"
	"noor-chat/internal/chat"
	"noor-chat/internal/history"
	"noor-chat/internal/logging"
	"noor-chat/internal/prefs"
	"noor-chat/internal/terminal"
	"noor-chat/internal/ui"
)

var (
	chatBackendURL string
	chatTimeout    time.Duration
	chatNoHistory  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation (default command)",
	RunE:  runChat,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, chatCmd} {
		c.Flags().StringVar(&chatBackendURL, "backend-url", "", "chat backend URL (overrides config)")
		c.Flags().DurationVar(&chatTimeout, "timeout", 0, "per-request timeout (overrides config)")
		c.Flags().BoolVar(&chatNoHistory, "no-history", false, "do not read or write conversation history")
	}
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if chatBackendURL != "" {
		cfg.BackendURL = chatBackendURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if chatTimeout > 0 {
		cfg.RequestTimeout = chatTimeout
	}

	logger, err := logging.NewFileLogger(cfg.LogPath, cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		return fmt.Errorf("opening preferences: %w", err)
	}

	display := ui.NewDisplay()
	defer display.Cleanup()

	client := backend.NewClient(cfg.BackendURL, cfg.RequestTimeout)

	// Backend health check (non-fatal)
	healthCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	if err := client.HealthCheck(healthCtx); err != nil {
		logger.Warn("backend health check failed", zap.String("url", cfg.BackendURL), zap.Error(err))
		display.PrintWarning(fmt.Sprintf("Backend check failed: %v", err))
		display.PrintInfo("Start a local backend with: noor serve")
	}
	cancel()

	opts := []chat.Option{
		chat.WithObserver(display),
		chat.WithLogger(logger),
		chat.WithGreeting(cfg.Greeting),
		chat.WithTimeout(cfg.RequestTimeout),
	}
	replOpts := []terminal.Option{terminal.WithLogger(logger)}

	var historyMgr *history.Manager
	if !chatNoHistory {
		historyMgr = history.NewManager(cfg.HistoryPath, cfg.MaxHistorySize)
		if err := historyMgr.Load(); err != nil {
			display.PrintWarning(fmt.Sprintf("Failed to load history: %v", err))
		} else {
			opts = append(opts, chat.WithRecorder(historyMgr))
			replOpts = append(replOpts, terminal.WithSessions(historyMgr))
		}
	}

	ctrl := chat.NewController(client, store, opts...)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		cancel()
		display.Cleanup()
		display.PrintInfo("\nShutting down gracefully...")
		if historyMgr != nil {
			if err := historyMgr.Save(); err != nil {
				logger.Warn("failed to save history", zap.Error(err))
			}
		}
		_ = logger.Sync()
		os.Exit(0)
	}()

	display.PrintWelcome(cfg.BackendURL)
	logger.Info("chat session started",
		zap.String("backend", cfg.BackendURL),
		zap.String("theme", string(ctrl.Theme())),
		zap.Bool("web_search", ctrl.WebSearchEnabled()))

	if err := terminal.New(ctrl, display, replOpts...).Run(ctx); err != nil {
		return err
	}

	display.PrintGoodbye()
	return nil
}
