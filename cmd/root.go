package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"noor-chat/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "noor",
	Short: "Terminal chat client for the Noor knowledge assistant",
	Long: `Noor is a terminal chat client for the Noor knowledge assistant.
It talks to a chat backend over HTTP, can ask the backend to consult the
web before answering, and keeps your theme, search mode and conversation
history between runs.

Run "noor serve" to start a local development backend.`,
	SilenceUsage: true,
	RunE:         runChat,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// loadConfig reads the config file and applies the global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
