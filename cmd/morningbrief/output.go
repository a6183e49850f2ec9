package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"morningbrief/internal/app/aggregate"
	"morningbrief/internal/shared/config"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func errorLine(msg string) string {
	return red("✗ " + msg)
}

func successLine(msg string) string {
	return green("✓ " + msg)
}

func warnLine(msg string) string {
	return yellow("! " + msg)
}

// printDegraded lists the categories that fell back to empty.
func printDegraded(w io.Writer, report aggregate.Report) {
	for _, d := range report.Degraded {
		fmt.Fprintln(w, warnLine(fmt.Sprintf("%s unavailable: %v", d.Category, d.Err)))
	}
}

func printValidation(w io.Writer, report config.ValidationReport, verbose bool) {
	for _, issue := range report.Errors {
		fmt.Fprintln(w, errorLine(issue.String()))
	}
	if !verbose {
		return
	}
	for _, issue := range report.Warnings {
		fmt.Fprintln(w, gray("  "+issue.String()))
	}
}

func heading(title string) string {
	return bold(cyan(title)) + "\n" + gray(strings.Repeat("─", len([]rune(title))))
}
