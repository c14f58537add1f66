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

	"noor-chat/internal/crawler"
	"noor-chat/internal/devserver"
	"noor-chat/internal/logging"
	"noor-chat/internal/searxng"
)

var (
	serveAddr     string
	serveSearxng  string
	serveInMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a local development backend",
	Long: `Starts a local backend speaking the chat and knowledge base HTTP APIs.

Replies come from an OpenAI-compatible API when OPENAI_API_KEY is set,
otherwise the server echoes messages back. With a SearXNG URL configured,
web search requests search, crawl and return the gathered material.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.ServeAddr = serveAddr
		}
		if serveSearxng != "" {
			cfg.SearXNGURL = serveSearxng
		}
		if serveInMemory {
			cfg.KnowledgePath = ""
		}

		logger, err := logging.NewConsoleLogger(cfg.Verbose)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		var responder devserver.Responder = devserver.EchoResponder{}
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			responder = devserver.NewOpenAIResponder(apiKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.SystemPrompt)
		} else {
			logger.Warn("OPENAI_API_KEY not set, replies will echo the message")
		}

		var searcher devserver.Searcher
		if cfg.SearXNGURL != "" {
			searchClient := searxng.NewClient(cfg.SearXNGURL, cfg.UserAgent, cfg.SearchTimeout, logger)

			// SearXNG health check (non-fatal)
			healthCtx, cancel := context.WithTimeout(cmd.Context(), cfg.SearchTimeout)
			if err := searchClient.HealthCheck(healthCtx); err != nil {
				logger.Warn("SearXNG check failed", zap.String("url", cfg.SearXNGURL), zap.Error(err))
			}
			cancel()

			webCrawler := crawler.New(crawler.Options{
				Timeout:    cfg.CrawlTimeout,
				MaxWorkers: cfg.MaxCrawlers,
				MaxSize:    cfg.MaxContentSize,
				UserAgent:  cfg.UserAgent,
				Logger:     logger,
			})
			searcher = devserver.NewWebSearcher(searchClient, webCrawler, cfg.MaxResults, logger)
		}

		store, err := devserver.OpenKnowledgeStore(cfg.KnowledgePath)
		if err != nil {
			return fmt.Errorf("opening knowledge base: %w", err)
		}

		srv := devserver.New(responder, searcher, store, logger)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			logger.Info("shutting down dev server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown failed", zap.Error(err))
			}
		}()

		return srv.ListenAndServe(cfg.ServeAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveSearxng, "searxng-url", "", "SearXNG instance for web search (overrides config)")
	serveCmd.Flags().BoolVar(&serveInMemory, "in-memory", false, "keep the knowledge base in memory only")
	rootCmd.AddCommand(serveCmd)
}
