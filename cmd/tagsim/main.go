// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command tagsim runs simulation models described in YAML files.
//
//	tagsim run model.yaml --json out/ --db runs.db
//	tagsim blocks
//
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/db47h/tagsim"
	"github.com/db47h/tagsim/netlist"
	"github.com/db47h/tagsim/sigio"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type runOptions struct {
	logLevel string
	db       string
	jsonDir  string
	timeout  time.Duration
	quiet    bool
}

func newRootCmd() *cobra.Command {
	opts := new(runOptions)
	root := &cobra.Command{
		Use:          "tagsim",
		Short:        "Tagged signal simulator",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	runCmd := &cobra.Command{
		Use:   "run model.yaml",
		Short: "Run a model and print the content of its probes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModel(cmd, args[0], opts)
		},
	}
	runCmd.Flags().StringVar(&opts.db, "db", "", "record probes and enable record/replay blocks in this SQLite database")
	runCmd.Flags().StringVar(&opts.jsonDir, "json", "", "write every probe to <dir>/<probe>.json")
	runCmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "cancel the run after this duration (0 for none)")
	runCmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not print probes")

	blocksCmd := &cobra.Command{
		Use:   "blocks",
		Short: "List available block types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			for _, t := range netlist.Builtin().Types() {
				fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Ports)
			}
			return w.Flush()
		},
	}

	root.AddCommand(runCmd, blocksCmd)
	return root
}

func newLogger(cmd *cobra.Command, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl})), nil
}

func runModel(cmd *cobra.Command, path string, opts *runOptions) error {
	logger, err := newLogger(cmd, opts.logLevel)
	if err != nil {
		return err
	}
	def, err := netlist.LoadModel(path)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	mt, err := tagsim.NewMetrics(reg)
	if err != nil {
		return err
	}
	bopts := []netlist.Option{netlist.WithModelOptions(tagsim.WithLogger(logger), tagsim.WithMetrics(mt))}

	var (
		store *sigio.Store
		run   string
	)
	if opts.db != "" {
		if store, err = sigio.OpenStore(opts.db); err != nil {
			return err
		}
		defer store.Close()
		if run, err = store.NewRun(def.Name); err != nil {
			return err
		}
		logger.Info("recording run", slog.String("model", def.Name), slog.String("run", run))
		bopts = append(bopts, netlist.WithStore(store, run))
	}

	res, err := netlist.Builtin().Build(def, bopts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}
	start := time.Now()
	if err = res.Model.Run(ctx); err != nil {
		return err
	}
	logger.Info("run complete", slog.String("model", def.Name), slog.Duration("elapsed", time.Since(start)))

	for _, p := range res.Probes {
		evs := p.Events()
		if !opts.quiet {
			for _, it := range p.Items() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Name(), it)
			}
		}
		if opts.jsonDir != "" {
			if err = sigio.WriteJSON(filepath.Join(opts.jsonDir, p.Name()+".json"), evs); err != nil {
				return err
			}
		}
		if store != nil {
			if err = store.Save(run, p.Name(), evs); err != nil {
				return err
			}
		}
	}
	return reportMetrics(logger, reg)
}

// reportMetrics logs the value of every gathered counter and gauge.
//
func reportMetrics(logger *slog.Logger, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			attrs := []any{slog.String("metric", mf.GetName())}
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			attrs = append(attrs, slog.String("labels", strings.Join(labels, ",")))
			switch {
			case m.GetCounter() != nil:
				attrs = append(attrs, slog.Float64("value", m.GetCounter().GetValue()))
			case m.GetGauge() != nil:
				attrs = append(attrs, slog.Float64("value", m.GetGauge().GetValue()))
			default:
				continue
			}
			logger.Info("metric", attrs...)
		}
	}
	return nil
}
