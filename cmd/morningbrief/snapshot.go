package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/llm"
	"morningbrief/internal/shared/config"
)

func newSnapshotCommand(state *appState) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch and print the aggregated source data without calling the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "json" && format != "yaml" {
				return &ExitCodeError{Code: exitConfig, Err: fmt.Errorf("unsupported format %q", format)}
			}
			if err := state.validate(cmd, config.ValidateOptions{}); err != nil {
				return err
			}

			// Snapshots never reach the stages, so skip provider setup.
			c, err := buildContainer(cmd.Context(), state, containerOptions{Generator: llm.NewMockGenerator(nil)})
			if err != nil {
				return &ExitCodeError{Code: exitConfig, Err: err}
			}
			snapshot, report, err := c.Runner.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			printDegraded(cmd.ErrOrStderr(), report)
			return encodeSnapshot(cmd, format, snapshot)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	return cmd
}

func encodeSnapshot(cmd *cobra.Command, format string, snapshot briefing.Snapshot) error {
	w := cmd.OutOrStdout()
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(snapshot)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}
