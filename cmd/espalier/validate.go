package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/cli"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/flowyaml"
	"github.com/aretw0/espalier/pkg/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow.yaml]",
	Short: "Check a flow for structural problems",
	Long: `Validates node identities, branch labels, reachability and cycles, and
enumerates the conversation paths. Reads a YAML file when given a path, or a
stored flow when --project and --flow are set.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("project", "", "Project id of a stored flow")
	validateCmd.Flags().String("flow", "", "Flow id of a stored flow")
}

func runValidate(cmd *cobra.Command, args []string) error {
	flow, err := resolveFlow(cmd, args)
	if err != nil {
		return err
	}

	report, err := validate.New().Validate(cmd.Context(), flow)
	if err != nil {
		return err
	}

	name := flow.Name
	if name == "" {
		name = flow.ID
	}
	if err := cli.RenderReport(os.Stdout, name, report); err != nil {
		return err
	}
	if !report.Valid {
		os.Exit(1)
	}
	return nil
}

// resolveFlow reads the flow either from a YAML file argument or from the
// configured store via --project/--flow.
func resolveFlow(cmd *cobra.Command, args []string) (*domain.Flow, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, err
		}
		return flowyaml.Decode(data)
	}

	projectID, _ := cmd.Flags().GetString("project")
	flowID, _ := cmd.Flags().GetString("flow")
	if projectID == "" || flowID == "" {
		return nil, fmt.Errorf("pass a YAML file or both --project and --flow")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	backend, err := cli.NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	return backend.Store.LoadFlow(cmd.Context(), projectID, flowID)
}
