package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/replay"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/store"
)

var (
	exportRun      string
	exportDocument string
	exportOut      string
	exportDesc     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a replay fixture from a stored run",
	Long: `export pins a stored run as a replay fixture: the document, the active
configuration, every segment's admitted set and tier ceiling, and the digest.
The document must be the one the run was produced from.`,
	Example: `  effects export --run 5f0c... --document frankenstein.json --out testdata/frankenstein.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fail(2, "config: %w", err)
		}
		in, err := loadDocument(exportDocument)
		if err != nil {
			return fail(2, "%w", err)
		}

		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := st.GetRun(exportRun)
		if err != nil {
			return err
		}
		if rec.DocumentID != in.ID || rec.Segments != len(in.Segments) {
			return fail(2, "run %s is for document %s (%d segments), got %s (%d segments)",
				rec.RunID, rec.DocumentID, rec.Segments, in.ID, len(in.Segments))
		}
		if rec.ConfigDigest != cfg.Digest() {
			logger.Printf("[PIPELINE] warning: config digest %s differs from run's %s", cfg.Digest(), rec.ConfigDigest)
		}
		decisions, err := st.LoadDecisions(rec.RunID)
		if err != nil {
			return err
		}

		desc := exportDesc
		if desc == "" {
			desc = fmt.Sprintf("run %s of %s", rec.RunID, rec.DocumentID)
		}
		f, err := replay.FromRun(desc, in, cfg, decisions, rec.Digest)
		if err != nil {
			return err
		}
		if err := f.Write(exportOut); err != nil {
			return err
		}
		logger.Printf("[PIPELINE] exported %d expectations to %s", len(f.ExpectedResults), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRun, "run", "", "run id (required)")
	exportCmd.Flags().StringVar(&exportDocument, "document", "", "document JSON the run was produced from (required)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "fixture output path (required)")
	exportCmd.Flags().StringVar(&exportDesc, "description", "", "fixture description")
	_ = exportCmd.MarkFlagRequired("run")
	_ = exportCmd.MarkFlagRequired("document")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
