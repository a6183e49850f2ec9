package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"morningbrief/internal/infra/observability"
	"morningbrief/internal/shared/config"
	"morningbrief/internal/shared/logging"
)

// skipInitAnnotation marks commands that run without loading configuration.
const skipInitAnnotation = "morningbrief/skip-init"

// appState is shared by every subcommand once the root pre-run has loaded
// configuration and credentials.
type appState struct {
	configFile string
	envFile    string
	logLevel   string
	verbose    bool

	cfg    config.Config
	meta   config.Metadata
	creds  config.Credentials
	obs    *observability.Observability
	logger logging.Logger
}

func newRootCommand() *cobra.Command {
	state := &appState{}

	root := &cobra.Command{
		Use:   "morningbrief",
		Short: "Build a personal morning briefing from weather, fitness, calendar and task data",
		Long: `morningbrief fetches weather, fitness, calendar and planner data, asks a
language model for a weather, fitness and schedule write-up in three
chained stages, and mails the assembled HTML briefing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipInitAnnotation] == "true" {
				return nil
			}
			return state.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return state.shutdown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&state.configFile, "config", "c", "", "config file (default ./morningbrief.yaml or ~/.morningbrief/morningbrief.yaml)")
	flags.StringVar(&state.envFile, "env-file", "", "dotenv file with API credentials (default ./.env when present)")
	flags.StringVar(&state.logLevel, "log-level", "", "override observability.logging.level")
	flags.BoolVarP(&state.verbose, "verbose", "v", false, "show configuration warnings")

	root.AddCommand(
		newRunCommand(state),
		newSnapshotCommand(state),
		newServeCommand(state),
		newPromptsCommand(state),
		newConfigCommand(state),
		newVersionCommand(),
	)
	return root
}

func (s *appState) init() error {
	cfg, meta, err := config.Load(config.LoadOptions{ConfigFile: s.configFile})
	if err != nil {
		return &ExitCodeError{Code: exitConfig, Err: err}
	}
	if s.logLevel != "" {
		cfg.Observability.Logging.Level = s.logLevel
	}

	creds, envFile, err := config.LoadCredentials(s.envFile)
	if err != nil {
		return &ExitCodeError{Code: exitConfig, Err: err}
	}
	meta.EnvFile = envFile

	obs, err := observability.New(cfg.Observability)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	slog.SetDefault(obs.Logger.Slog())

	s.cfg, s.meta, s.creds, s.obs = cfg, meta, creds, obs
	s.logger = s.componentLogger("CLI")
	if meta.ConfigFile != "" {
		s.logger.Debug("CLI: using config file %s", meta.ConfigFile)
	}
	return nil
}

func (s *appState) componentLogger(component string) logging.Logger {
	if s.obs == nil {
		return logging.Nop()
	}
	return logging.FromSlog(s.obs.Logger.Slog(), component)
}

func (s *appState) shutdown() error {
	if s.obs == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.obs.Shutdown(ctx)
}

// validate fails with exitConfig when the report carries errors.
func (s *appState) validate(cmd *cobra.Command, opts config.ValidateOptions) error {
	report := config.Validate(s.cfg, s.creds, opts)
	printValidation(cmd.ErrOrStderr(), report, s.verbose)
	if err := report.Err(); err != nil {
		return &ExitCodeError{Code: exitConfig, Err: err}
	}
	return nil
}
