package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/menusweep/internal/pipeline"
	"github.com/ppiankov/menusweep/internal/store"
)

var (
	historyURL    string
	historyLimit  int
	historyShow   string
	historyFind   string
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scans",
	Long: `History reads the scan database written by scan and batch.

Example:
  menusweep history
  menusweep history --url https://www.ubereats.com/store/... --limit 5
  menusweep history --show <scan-id> --format md
  menusweep history --find "big mac"`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyURL, "url", "", "only scans of this URL")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "print the stored report with this scan ID")
	historyCmd.Flags().StringVar(&historyFind, "find", "", "search item names across all scans")
	historyCmd.Flags().StringVar(&historyFormat, "format", "json", "report format for --show (json, md)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	s, err := store.Open(storePath(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case historyShow != "":
		report, err := s.Load(ctx, historyShow)
		if err != nil {
			return err
		}
		if historyFormat == "md" {
			_, err = io.WriteString(out, pipeline.NewRenderer(cfg.Output.IncludeFooter).Markdown(report))
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)

	case historyFind != "":
		items, err := s.FindItems(ctx, historyFind, historyLimit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintf(out, "No items matching %q\n", historyFind)
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tNAME\tPRICE")
		for _, item := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", item.Category, item.Name, item.Price)
		}
		return tw.Flush()

	default:
		scans, err := s.Recent(ctx, historyURL, historyLimit)
		if err != nil {
			return err
		}
		return writeScanTable(out, scans)
	}
}

// writeScanTable prints scan summaries as aligned columns
func writeScanTable(w io.Writer, scans []store.ScanSummary) error {
	if len(scans) == 0 {
		_, err := fmt.Fprintln(w, "No scans recorded yet")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tSTORE\tITEMS\tCATEGORIES\tCOMPLETENESS")
	for _, s := range scans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d/100 (%s)\n",
			s.ID, s.FetchedAt.Local().Format(time.DateTime), s.Subject,
			s.ItemCount, s.CategoryCount, s.Completeness, s.Confidence)
	}
	return tw.Flush()
}
