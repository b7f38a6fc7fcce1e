package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "espalier",
	Short: "Espalier is an interactive decision-tree editing engine",
	Long:  `Espalier edits decision flows as graphs of question and message nodes, persists them as JSON with YAML sidecars, and serves them over HTTP and MCP.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the TOML configuration file")
	rootCmd.PersistentFlags().String("data-dir", "", "Override the flow storage directory")
}

// loadConfig reads the configuration honoring the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.Storage.Backend = "file"
		cfg.Storage.DataDir = dir
	}
	return cfg, nil
}
