package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Wake the cloud endpoint ahead of playback",
	Long: paragraph(fmt.Sprintf("\n%s the cloud endpoint with one throwaway request so the next playback does not wait for a cold start.",
		keyword("Wake"))),
	Example: paragraph("speakeasy warmup"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cb, err := newCloudOnly(cfg)
		if err != nil {
			return err
		}

		start := time.Now()
		cb.WarmUp(cfg.Voices.Default, cfg.Playback.WarmupWindow)
		cb.WaitWarmup()
		took := time.Since(start).Round(time.Millisecond)

		if err := cb.Health().Snapshot().WarmupErr; err != nil {
			return fmt.Errorf("warmup failed after %s: %w", took, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), paragraph(fmt.Sprintf("Cloud endpoint %s in %s.", keyword("ready"), took)))
		return nil
	},
}
