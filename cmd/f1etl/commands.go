package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/debastene/f1-psda-dashboard/internal/config"
	"github.com/debastene/f1-psda-dashboard/internal/loader"
	"github.com/debastene/f1-psda-dashboard/internal/pipeline"
	"github.com/debastene/f1-psda-dashboard/internal/quality"
	"github.com/debastene/f1-psda-dashboard/internal/report"
)

// checkConfig prints every issue and fails when any is an error.
func (a *app) checkConfig(w io.Writer) error {
	issues := config.ValidatePipeline(a.cfg)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return errors.New("configuration is invalid")
	}
	return nil
}

func (a *app) options() pipeline.Options {
	return pipeline.Options{Log: a.log, Quality: quality.NewRecorder(a.cfg.Job, a.log)}
}

func newSummaryCmd(a *app) *cobra.Command {
	var (
		from, to int
		format   string
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard summary for a range of seasons",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.checkConfig(cmd.ErrOrStderr()); err != nil {
				return err
			}
			lo, hi := a.cfg.Years.From, a.cfg.Years.To
			if cmd.Flags().Changed("from") {
				lo = from
			}
			if cmd.Flags().Changed("to") {
				hi = to
			}

			opt := a.options()
			svc, err := pipeline.Open(cmd.Context(), a.cfg, opt)
			if err != nil {
				return err
			}
			defer svc.Close()

			s, err := svc.Summary(cmd.Context(), lo, hi)
			if err != nil {
				var su *loader.SourceUnavailable
				if errors.As(err, &su) {
					return fmt.Errorf("data unavailable: %w", err)
				}
				return err
			}
			opt.Quality.Summarize()
			return report.Render(cmd.OutOrStdout(), s, format)
		},
	}
	cmd.Flags().IntVar(&from, "from", config.DefaultYearRange.From, "first season (inclusive)")
	cmd.Flags().IntVar(&to, "to", config.DefaultYearRange.To, "last season (inclusive)")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatTable, "output format: table, json, markdown")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return report.Formats(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var load bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration, and optionally the data behind it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.checkConfig(cmd.ErrOrStderr()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !load {
				fmt.Fprintln(out, "configuration is valid")
				return nil
			}

			opt := a.options()
			l, err := loader.New(cmd.Context(), a.cfg, loader.Options{Job: a.cfg.Job, Log: a.log, Quality: opt.Quality})
			if err != nil {
				return err
			}
			defer l.Close()
			_, rep, err := pipeline.Prepare(cmd.Context(), l, a.cfg, opt)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "fact rows: %d of %d results\n", rep.Rows, rep.Join.Input)
			for _, name := range sortedKeys(rep.Join.Dropped) {
				fmt.Fprintf(out, "dropped (%s): %d\n", name, rep.Join.Dropped[name])
			}
			for _, name := range sortedKeys(rep.Join.Duplicates) {
				fmt.Fprintf(out, "duplicate keys (%s): %d\n", name, rep.Join.Duplicates[name])
			}
			counts := opt.Quality.Counts()
			kinds := make([]string, 0, len(counts))
			for k := range counts {
				kinds = append(kinds, string(k))
			}
			sort.Strings(kinds)
			for _, k := range kinds {
				fmt.Fprintf(out, "quality %s: %d\n", k, counts[quality.Kind(k)])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&load, "load", false, "also load, join and derive the data")
	return cmd
}

func newFingerprintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the fingerprint of the configured source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := loader.New(cmd.Context(), a.cfg, loader.Options{Job: a.cfg.Job, Log: a.log})
			if err != nil {
				return err
			}
			defer l.Close()
			fp, err := l.Fingerprint(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), fp)
			return nil
		},
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k, n := range m {
		if n > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
