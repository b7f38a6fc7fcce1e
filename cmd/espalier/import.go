package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/cli"
	"github.com/aretw0/espalier/pkg/flowyaml"
)

var importCmd = &cobra.Command{
	Use:   "import <flow.yaml>",
	Short: "Import a YAML flow document into the store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runImport(cmd, args); err != nil {
			fmt.Printf("Import failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("project", "", "Target project id (required)")
	importCmd.Flags().String("flow", "", "Flow id to store under (defaults to the document id)")
	importCmd.MarkFlagRequired("project")
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	flow, err := flowyaml.Decode(data)
	if err != nil {
		return err
	}

	if id, _ := cmd.Flags().GetString("flow"); id != "" {
		flow.ID = id
	}
	if flow.ID == "" {
		return fmt.Errorf("document carries no flow id; pass --flow")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	backend, err := cli.NewBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	projectID, _ := cmd.Flags().GetString("project")
	if err := backend.Store.SaveFlow(cmd.Context(), projectID, flow); err != nil {
		return err
	}

	fmt.Printf("Imported flow %q into project %q (%d nodes, %d edges)\n",
		flow.ID, projectID, len(flow.Nodes), len(flow.Edges))
	return nil
}
