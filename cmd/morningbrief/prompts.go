package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"morningbrief/internal/app/prompts"
)

func newPromptsCommand(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect the stage prompt templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates and their placeholders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			composer, err := prompts.NewComposer(state.cfg.Prompts.Dir, state.componentLogger("Prompts"))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, name := range composer.List() {
				placeholders, err := composer.Placeholders(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s  %s\n", bold(name), gray(strings.Join(placeholders, ", ")))
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			composer, err := prompts.NewComposer(state.cfg.Prompts.Dir, state.componentLogger("Prompts"))
			if err != nil {
				return err
			}
			text, err := composer.Template(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), heading(args[0]))
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	})
	return cmd
}
