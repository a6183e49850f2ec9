package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"morningbrief/internal/delivery/render"
	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/shared/config"
	brieferrors "morningbrief/internal/shared/errors"
)

type runOptions struct {
	dryRun  bool
	out     string
	context string
	format  string
}

func newRunCommand(state *appState) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate today's briefing and mail it",
		Long: `Fetch all sources, run the weather, fitness and schedule stages and send
the result by email. With --dry-run the briefing is written to stdout (or
--out) instead of being sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBriefing(cmd, state, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "generate without sending email")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the briefing to this file")
	cmd.Flags().StringVar(&opts.context, "context", "", "free-text context for every prompt (overrides prompts.context)")
	cmd.Flags().StringVar(&opts.format, "format", "html", "output format for --dry-run and --out: html or json")
	return cmd
}

func runBriefing(cmd *cobra.Command, state *appState, opts *runOptions) error {
	if opts.format != "html" && opts.format != "json" {
		return &ExitCodeError{Code: exitConfig, Err: fmt.Errorf("unsupported format %q", opts.format)}
	}
	deliver := !opts.dryRun
	if err := state.validate(cmd, config.ValidateOptions{Deliver: deliver, Generate: true}); err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := buildContainer(ctx, state, containerOptions{Context: opts.context})
	if err != nil {
		return &ExitCodeError{Code: exitConfig, Err: err}
	}

	result, err := c.Runner.Run(ctx, deliver)
	stderr := cmd.ErrOrStderr()
	printDegraded(stderr, result.Report)
	if err != nil {
		var stageErr *brieferrors.StageError
		if errors.As(err, &stageErr) {
			return &ExitCodeError{Code: exitStage, Err: err}
		}
		return err
	}

	if opts.dryRun || opts.out != "" {
		if err := writeBriefing(cmd, state, opts, result.Briefing); err != nil {
			return err
		}
	}
	if result.Delivered {
		fmt.Fprintln(stderr, successLine(fmt.Sprintf("Briefing for %s sent to %d recipient(s)", result.Window.Today(), len(state.cfg.Email.To))))
	} else {
		fmt.Fprintln(stderr, successLine(fmt.Sprintf("Briefing for %s generated", result.Window.Today())))
	}
	return nil
}

func writeBriefing(cmd *cobra.Command, state *appState, opts *runOptions, b briefing.Briefing) error {
	var w io.Writer = cmd.OutOrStdout()
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if opts.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
	doc, err := render.Compose(b, render.Options{RecipientName: state.cfg.Email.RecipientName})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, doc+"\n")
	return err
}
