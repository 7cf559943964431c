package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the synthesized audio cache",
		Args:  cobra.NoArgs,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage per tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			stats := store.Stats()
			if len(stats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), faint("cache disabled"))
				return nil
			}
			for _, s := range stats {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s / %s  %s items  %.0f%% hits\n",
					keyword(fmt.Sprintf("%-6s", s.Level)),
					humanize.IBytes(uint64(s.Size)), //nolint:gosec
					humanize.IBytes(uint64(s.Capacity)), //nolint:gosec
					humanize.Comma(s.Items),
					s.HitRate()*100,
				)
			}
			return nil
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached clip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openCache(cfg)
			if err != nil {
				return err
			}
			if err := errors.Join(store.Clear(), store.Close()); err != nil {
				return fmt.Errorf("unable to clear cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	}
)

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}
