package cmd

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	yamlv3 "gopkg.in/yaml.v3"

	"noor-chat/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with an interactive wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgFile); err == nil && !configForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", cfgFile)
		}

		cfg := config.NewConfig()

		backendPrompt := promptui.Prompt{
			Label:   "Chat backend URL",
			Default: cfg.BackendURL,
			Validate: func(s string) error {
				candidate := *cfg
				candidate.BackendURL = s
				return candidate.Validate()
			},
		}
		backendURL, err := backendPrompt.Run()
		if err != nil {
			return fmt.Errorf("backend URL: %w", err)
		}
		cfg.BackendURL = backendURL

		searxPrompt := promptui.Prompt{
			Label:   "SearXNG URL for noor serve (leave blank to disable web search)",
			Default: cfg.SearXNGURL,
		}
		searxURL, err := searxPrompt.Run()
		if err != nil {
			return fmt.Errorf("SearXNG URL: %w", err)
		}
		cfg.SearXNGURL = searxURL

		if err := cfg.Save(cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", cfgFile)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := yamlv3.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
