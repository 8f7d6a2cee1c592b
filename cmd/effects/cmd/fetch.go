package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/source"
)

var (
	fetchAddr     string
	fetchDocument string
	fetchOut      string
	fetchWorkers  int
	fetchTimeout  time.Duration
)

var fetchCmd = &cobra.Command{
	Use:     "fetch",
	Short:   "Pull an analyzed document from the upstream analyzer",
	Example: `  effects fetch --addr localhost:50061 --document-id frankenstein --out frankenstein.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := fetchAddr
		if addr == "" {
			addr = env.AnalyzerAddr
		}
		client, err := source.Dial(addr)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		in, err := client.FetchDocument(ctx, fetchDocument, fetchWorkers)
		if err != nil {
			return err
		}
		if err := writeJSON(fetchOut, in); err != nil {
			return err
		}
		logger.Printf("[PIPELINE] fetched %s: %d segments, %d profiles", in.ID, len(in.Segments), len(in.Profiles))
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchAddr, "addr", "", "analyzer address (default $EFFECTS_ANALYZER_ADDR)")
	fetchCmd.Flags().StringVar(&fetchDocument, "document-id", "", "document to fetch (required)")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "-", "output path (- for stdout)")
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 8, "concurrent segment requests")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 2*time.Minute, "overall fetch timeout")
	_ = fetchCmd.MarkFlagRequired("document-id")
	rootCmd.AddCommand(fetchCmd)
}
