// Command attention-broker is a thin process bootstrap around the
// Attention service of spec.md §4.8: it starts the fixed-size worker pool
// and exposes ping/stimulate/correlate/get-importance as cobra
// subcommands operating on one in-process Service. As with
// cmd/atomspace-server, everything here is external-collaborator glue
// (spec.md §1); the algorithms live in hebbian and attention.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/das-systems/das-core/attention"
	"github.com/das-systems/das-core/hebbian"
	"github.com/das-systems/das-core/internal/config"
	"github.com/das-systems/das-core/internal/logging"
)

func main() {
	var envFile, contextName string

	root := &cobra.Command{
		Use:   "attention-broker",
		Short: "run the Hebbian attention service (stimulate/correlate/importance)",
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file to load")
	root.PersistentFlags().StringVar(&contextName, "context", "", "attention context name (empty = global)")

	root.AddCommand(pingCmd(&envFile, &contextName))
	root.AddCommand(correlateCmd(&envFile, &contextName))
	root.AddCommand(stimulateCmd(&envFile, &contextName))
	root.AddCommand(importanceCmd(&envFile, &contextName))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newPool(envFile string) (*attention.Pool, *config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	log.WithField("workers", cfg.AttentionWorkers).Info("starting attention pool")

	service := attention.NewService(cfg.Spreader)
	pool := attention.NewPool(service, cfg.AttentionWorkers, attention.EvenThreadCount{})
	return pool, &cfg, nil
}

func pingCmd(envFile, contextName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "liveness check",
		RunE: func(cmd *cobra.Command, args []string) error {
			service := attention.NewService(hebbian.DefaultSpreaderConfig())
			return service.Ping()
		},
	}
}

func correlateCmd(envFile, contextName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "correlate [handles...]",
		Short: "feed one correlation event (spec.md §4.6) for the given handles",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, _, err := newPool(*envFile)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			pool.Start(ctx)
			defer pool.Shutdown(ctx)
			return pool.Correlate(ctx, *contextName, args)
		},
	}
}

func stimulateCmd(envFile, contextName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stimulate [handle=count...]",
		Short: "run one spreading cycle (spec.md §4.7) over handle=count pairs plus SUM",
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := parseHandleCounts(args)
			if err != nil {
				return err
			}
			pool, _, err := newPool(*envFile)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			pool.Start(ctx)
			defer pool.Shutdown(ctx)
			return pool.Stimulate(ctx, *contextName, counts)
		},
	}
}

func importanceCmd(envFile, contextName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "importance [handles...]",
		Short: "print importance for each handle, in input order (unknown handles read 0)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			service := attention.NewService(cfg.Spreader)
			values, err := service.GetImportance(*contextName, args)
			if err != nil {
				return err
			}
			for i, h := range args {
				fmt.Printf("%s %.10f\n", h, values[i])
			}
			return nil
		},
	}
}

// parseHandleCounts parses "handle=count" pairs (plus a bare "SUM=total")
// into the map Stimulate expects.
func parseHandleCounts(args []string) (map[string]float64, error) {
	counts := make(map[string]float64, len(args))
	for _, a := range args {
		parts := strings.SplitN(a, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("attention-broker: %q is not in handle=count form", a)
		}
		v, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("attention-broker: %q: %w", a, err)
		}
		counts[parts[0]] = v
	}
	if _, ok := counts[hebbian.SumKey]; !ok {
		return nil, fmt.Errorf("attention-broker: missing %s=<total>", hebbian.SumKey)
	}
	return counts, nil
}
