package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/replay"
)

var replayFixture string

var replayCmd = &cobra.Command{
	Use:     "replay",
	Short:   "Replay a fixture and compare the timeline against its expectations",
	Example: `  effects replay --fixture internal/replay/testdata/climax_governor.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return fail(2, "registry: %w", err)
		}
		f, err := replay.LoadFixture(replayFixture)
		if err != nil {
			return fail(2, "%w", err)
		}

		results, summary, err := replay.Replay(context.Background(), f, reg)
		if err != nil {
			return err
		}

		fmt.Printf("Fixture: %s\n", f.Description)
		fmt.Printf("%-8s %-30s %-30s %-6s %s\n", "SEGMENT", "EXPECTED", "REPLAYED", "TIER", "MATCH")
		for _, r := range results {
			mark := "ok"
			if !r.Match {
				mark = "DIVERGED"
			}
			fmt.Printf("%-8d %-30s %-30s %d/%-4d %s\n", r.SegmentID,
				strings.Join(r.Expected, ","), strings.Join(r.Replayed, ","),
				r.ExpectedTier, r.ReplayedTier, mark)
		}
		fmt.Printf("\nchecked %d of %d segments: %d matched, %d diverged, %d admitted\n",
			summary.Checked, summary.TotalSegments, summary.Matched, summary.Diverged, summary.Admitted)
		if summary.ExpectedDigest != "" {
			fmt.Printf("digest %s (expected %s)\n", summary.Digest, summary.ExpectedDigest)
		}

		if !summary.OK() {
			return fail(1, "%d divergences, digest match %t", summary.Diverged, summary.DigestMatch)
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayFixture, "fixture", "", "fixture JSON (required)")
	_ = replayCmd.MarkFlagRequired("fixture")
	rootCmd.AddCommand(replayCmd)
}
