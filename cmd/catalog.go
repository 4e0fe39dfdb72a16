package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tamara-h/housingML/internal/onehot"
	"github.com/tamara-h/housingML/internal/report"
	"github.com/tamara-h/housingML/internal/store"
	"github.com/tamara-h/housingML/internal/utils"
)

var (
	catLimit int
	catJSON  bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect bucket catalogs recorded with --catalog-db",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ensureConfig()
		if cfg.CatalogDB == "" {
			return fmt.Errorf("no catalog database configured (use --catalog-db or config set catalog_db <path>)")
		}
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		runs, err := s.ListRuns(ctx, catLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if catJSON {
			b, err := utils.PrettyJSON(runs)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCOMMAND\tROWS\tPAIRS\tCREATED\tSOURCE")
		for _, r := range runs {
			pm := r.PairMode
			if pm == "" {
				pm = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", r.ID, r.Command, r.Rows, pm, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Source)
		}
		return tw.Flush()
	},
}

// catalogView is the JSON shape of a stored run.
type catalogView struct {
	Run   store.Run    `json:"run"`
	Lat   []bucketView `json:"lat,omitempty"`
	Long  []bucketView `json:"long,omitempty"`
	Pairs []bucketView `json:"pairs,omitempty"`
}

type bucketView struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the catalogs of one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		snap, err := s.Load(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !catJSON {
			fmt.Fprintln(out, report.Markdown(report.Summary{
				Name:  snap.Run.Source,
				Rows:  snap.Run.Rows,
				Lat:   snap.Lat,
				Long:  snap.Long,
				Pairs: snap.Pairs,
			}))
			return nil
		}

		v := catalogView{Run: snap.Run}
		if snap.Lat != nil {
			for _, b := range snap.Lat.Buckets {
				v.Lat = append(v.Lat, bucketView{Column: onehot.LatColumn(b.Key), Count: b.Count})
			}
		}
		if snap.Long != nil {
			for _, b := range snap.Long.Buckets {
				v.Long = append(v.Long, bucketView{Column: onehot.LongColumn(b.Key), Count: b.Count})
			}
		}
		if snap.Pairs != nil {
			for _, b := range snap.Pairs.Buckets {
				v.Pairs = append(v.Pairs, bucketView{Column: onehot.PairColumn(b.PairKey), Count: b.Count})
			}
		}
		b, err := utils.PrettyJSON(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	},
}

var catalogDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a recorded run and its catalogs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted run %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogDeleteCmd)
	catalogCmd.PersistentFlags().BoolVar(&catJSON, "json", false, "print JSON")
	catalogListCmd.Flags().IntVar(&catLimit, "limit", 20, "maximum runs to list")
}
