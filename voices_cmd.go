package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:     "voices [FILTER]",
	Short:   "List the voices the cloud endpoint offers",
	Long:    paragraph(fmt.Sprintf("\n%s the voices the cloud endpoint offers, optionally fuzzy-filtered.", keyword("List"))),
	Example: paragraph("speakeasy voices\nspeakeasy voices hindi"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cb, err := newCloudOnly(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Cloud.RequestTimeout)
		defer cancel()
		voices, err := cb.Voices(ctx)
		if err != nil {
			return fmt.Errorf("unable to list voices: %w", err)
		}

		if len(args) > 0 {
			voices = filterVoices(voices, args[0])
		}
		for _, v := range voices {
			fmt.Fprintln(cmd.OutOrStdout(), markVoice(v))
		}
		fmt.Fprintln(cmd.ErrOrStderr(), faint(fmt.Sprintf("%s %s", humanize.Comma(int64(len(voices))), pluralize(len(voices), "voice", "voices"))))
		return nil
	},
}

// filterVoices returns the voices matching pattern, best match first.
func filterVoices(voices []string, pattern string) []string {
	matches := fuzzy.Find(pattern, voices)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out
}

// markVoice highlights the voices speakeasy is configured to use.
func markVoice(v string) string {
	switch {
	case strings.EqualFold(v, cfg.Voices.Regional):
		return v + " " + keyword("(regional)")
	case strings.EqualFold(v, cfg.Voices.Default):
		return v + " " + keyword("(default)")
	}
	return v
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
