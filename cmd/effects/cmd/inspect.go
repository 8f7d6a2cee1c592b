package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/store"
)

var (
	inspectRun      string
	inspectLast     int
	inspectJSON     bool
	inspectAdmitted bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List stored runs or show one run's decisions",
	Example: `  effects inspect --last 5
  effects inspect --run 5f0c... --admitted`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		if inspectRun == "" {
			return listRuns(st)
		}
		return showRun(st, inspectRun)
	},
}

func listRuns(st *store.Store) error {
	runs, err := st.ListRuns(inspectLast)
	if err != nil {
		return err
	}
	if inspectJSON {
		return writeJSON("-", runs)
	}
	fmt.Printf("%-36s %-20s %6s %8s %6s %s\n", "RUN", "DOCUMENT", "SEGS", "ADMITTED", "TIER4", "CREATED")
	for _, r := range runs {
		fmt.Printf("%-36s %-20s %6d %8d %3d/%-2d %s\n", r.RunID, r.DocumentID, r.Segments,
			r.Admitted, r.Tier4Used, r.Tier4Budget, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showRun(st *store.Store, id string) error {
	rec, err := st.GetRun(id)
	if err != nil {
		return err
	}
	if inspectJSON {
		decisions, err := st.LoadDecisions(id)
		if err != nil {
			return err
		}
		return writeJSON("-", map[string]any{"run": rec, "decisions": decisions})
	}

	rows, err := st.DecisionRows(id, inspectAdmitted)
	if err != nil {
		return err
	}
	counts, err := st.ReasonCounts(id)
	if err != nil {
		return err
	}

	fmt.Printf("run %s  document %s  digest %s\n", rec.RunID, rec.DocumentID, rec.Digest)
	if rec.ParentID != "" {
		fmt.Printf("parent %s\n", rec.ParentID)
	}
	fmt.Printf("%d segments, %d admitted, %d suppressed, tier4 %d/%d, density cap %d\n\n",
		rec.Segments, rec.Admitted, rec.Suppressed, rec.Tier4Used, rec.Tier4Budget, rec.DensityCap)

	fmt.Printf("%-8s %-8s %-5s %-22s %-8s %s\n", "POS", "SEGMENT", "TIER", "TRIGGER", "ADMITTED", "SUPPRESSED")
	for _, r := range rows {
		fmt.Printf("%-8d %-8d %-5d %-22s %-8d %d\n", r.Position, r.SegmentID, r.MaxTier, r.WinningTrigger, r.Accepted, r.Suppressed)
	}

	if len(counts) > 0 {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println("\nsuppressions:")
		for _, k := range keys {
			fmt.Printf("  %-40s %d\n", k, counts[k])
		}
	}
	return nil
}

func init() {
	inspectCmd.Flags().StringVar(&inspectRun, "run", "", "run id to show")
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "number of runs to list")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print JSON instead of a table")
	inspectCmd.Flags().BoolVar(&inspectAdmitted, "admitted", false, "only segments with admitted effects")
	rootCmd.AddCommand(inspectCmd)
}
