package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/pipeline"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/report"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/store"
)

var (
	runDocument string
	runOut      string
	runVerify   bool
	runWorkers  int
	runNoStore  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one admission pass over an analyzed document",
	Long: `run reads an analyzed document (segments plus optional character profiles),
decides the admitted effects for every segment, writes the decision timeline as
JSON, persists the run to the store and prints a sparsity report.`,
	Example: `  effects run --document frankenstein.json --out decisions.json
  effects run --document frankenstein.json --config strict.toml --verify`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fail(2, "config: %w", err)
		}
		reg, err := loadRegistry()
		if err != nil {
			return fail(2, "registry: %w", err)
		}
		in, err := loadDocument(runDocument)
		if err != nil {
			return fail(2, "%w", err)
		}

		opts := pipeline.DefaultOptions()
		opts.Logger = logger
		opts.VerifyDeterminism = runVerify || env.Verify
		opts.Workers = env.Workers
		if cmd.Flags().Changed("workers") {
			opts.Workers = runWorkers
		}

		res, err := pipeline.New(cfg, reg, opts).Run(context.Background(), in)
		if err != nil {
			return err
		}
		if err := writeJSON(runOut, res.Decisions); err != nil {
			return err
		}

		if !runNoStore {
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()
			rec, err := st.SaveRun(res, cfg.Digest())
			if err != nil {
				return err
			}
			logger.Printf("[PIPELINE] saved run %s (parent %q) to %s", rec.RunID, rec.ParentID, dbPath)
		}

		report.New(cfg, reg).Run(res).Print(os.Stderr)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runDocument, "document", "", "analyzed document JSON (required)")
	runCmd.Flags().StringVar(&runOut, "out", "-", "decision timeline output path (- for stdout)")
	runCmd.Flags().BoolVar(&runVerify, "verify", false, "run twice and fail if the digests differ")
	runCmd.Flags().IntVar(&runWorkers, "workers", 4, "segments prepared concurrently")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "skip persisting the run")
	_ = runCmd.MarkFlagRequired("document")
	rootCmd.AddCommand(runCmd)
}
