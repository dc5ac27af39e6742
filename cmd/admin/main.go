// Command admin is the lakehouse's operator CLI: deleting data older than
// a retention cutoff, retiring a view's partitions over an explicit
// window, and dumping a raw object-store payload for inspection.
// Grounded on cmd/bd/main.go's cobra root-command-plus-subcommands layout
// (flags, persistent --json, grouped subcommands).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/micromegas/lakehouse/internal/lakehouse/config"
	"github.com/micromegas/lakehouse/internal/lakehouse/lake"
	"github.com/spf13/cobra"
)

var knownViewSets = []string{"log_entries", "measures", "thread_spans", "processes", "streams", "log_stats"}

func main() {
	root := &cobra.Command{
		Use:   "admin",
		Short: "Operator tooling for the lakehouse catalog and object store",
	}
	root.AddCommand(deleteOldDataCmd())
	root.AddCommand(retirePartitionsCmd())
	root.AddCommand(getPayloadCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openLake(ctx context.Context) (*lake.Lake, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return lake.Open(ctx, cfg)
}

func deleteOldDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-old-data <min-days-old>",
		Short: "Retire every global-instance partition whose insert window begins more than the given number of days ago, across the known view sets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := strconv.Atoi(args[0])
			if err != nil || days < 0 {
				return fmt.Errorf("min-days-old must be a non-negative integer")
			}
			ctx := cmd.Context()
			l, err := openLake(ctx)
			if err != nil {
				return err
			}
			defer l.Close()

			cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
			epoch := time.Unix(0, 0).UTC() // MySQL DATETIME's range starts at 1000-01-01; the zero Go time doesn't fit
			total := 0
			for _, viewSet := range knownViewSets {
				n, err := l.Catalog.RetirePartitions(ctx, viewSet, "global", epoch, cutoff, l.Config.RetentionGrace)
				if err != nil {
					return fmt.Errorf("retiring old partitions of %s: %w", viewSet, err)
				}
				total += n
			}
			fmt.Printf("retired %d partitions older than %d days\n", total, days)
			return nil
		},
	}
}

func retirePartitionsCmd() *cobra.Command {
	var viewInstance, beginStr, endStr string
	cmd := &cobra.Command{
		Use:   "retire-partitions <view-set>",
		Short: "Retire every live partition of a view set whose window overlaps [begin, end)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			begin, err := time.Parse(time.RFC3339, beginStr)
			if err != nil {
				return fmt.Errorf("parsing --begin: %w", err)
			}
			end, err := time.Parse(time.RFC3339, endStr)
			if err != nil {
				return fmt.Errorf("parsing --end: %w", err)
			}
			ctx := cmd.Context()
			l, err := openLake(ctx)
			if err != nil {
				return err
			}
			defer l.Close()

			n, err := l.Catalog.RetirePartitions(ctx, args[0], viewInstance, begin, end, l.Config.RetentionGrace)
			if err != nil {
				return err
			}
			fmt.Printf("retired %d partitions\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&viewInstance, "view-instance", "global", "view instance id")
	cmd.Flags().StringVar(&beginStr, "begin", "", "window start, RFC3339 (required)")
	cmd.Flags().StringVar(&endStr, "end", "", "window end, RFC3339 (required)")
	cmd.MarkFlagRequired("begin")
	cmd.MarkFlagRequired("end")
	return cmd
}

func getPayloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-payload <object-store-key>",
		Short: "Dump a raw object-store payload (a block or partition file) to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, err := openLake(ctx)
			if err != nil {
				return err
			}
			defer l.Close()

			rc, err := l.Objects.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("fetching %s: %w", args[0], err)
			}
			defer rc.Close()
			_, err = io.Copy(os.Stdout, rc)
			return err
		},
	}
}

// jsonOut is kept for subcommands that grow a --json flag later, matching
// the teacher's convention of a shared encoder helper instead of each
// command rolling its own.
func jsonOut(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
