package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"morningbrief/internal/shared/config"
)

func newConfigCommand(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with redacted credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := struct {
				Sources     sourcesView        `yaml:"sources"`
				Config      config.Config      `yaml:"config"`
				Credentials config.Credentials `yaml:"credentials"`
			}{
				Sources:     sourcesView{ConfigFile: state.meta.ConfigFile, EnvFile: state.meta.EnvFile},
				Config:      state.cfg,
				Credentials: state.creds.Redacted(),
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(view)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for a delivering run and for serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state.verbose = true
			if err := state.validate(cmd, config.ValidateOptions{Deliver: true, Generate: true, Serve: true}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), successLine("Configuration is valid"))
			return nil
		},
	})
	return cmd
}

type sourcesView struct {
	ConfigFile string `yaml:"config_file,omitempty"`
	EnvFile    string `yaml:"env_file,omitempty"`
}
