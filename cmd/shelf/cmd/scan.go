package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/shelf/internal/app"
	"github.com/justyntemme/shelf/internal/catalog"
	"github.com/justyntemme/shelf/internal/view"
)

var (
	scanLibrary string
	scanQuery   string
	scanOrder   string
	scanPreset  string
	scanThumbs  bool
)

// Preset filters map to query strings.
var presets = map[string]string{
	"all":         "",
	"screenshots": "type:screenshot",
	"photos":      "type:photo",
	"today":       "created:today",
	"yesterday":   "created:yesterday",
	"week":        "created:week",
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a library and list its entries",
	Long: `Scan a library root and print the filtered, sorted entries.

Queries combine directives with AND:
  name or bare words   glob on the file name (IMG_*, beach)
  kind:image,video     category
  ext:png,jpg          extension
  type:screenshot      names starting with the screenshot prefix
  type:photo           images that are not screenshots
  size:>1MB            size comparison (B, KB, MB, GB, TB)
  created:today        also yesterday, week, or a date with an operator
  modified:>2024-01-01 modification time

Examples:
  shelf scan --filter screenshots
  shelf scan --library files --query "ext:txt size:<10KB" --order name
  shelf scan --query "created:>=2024-06-01" --order size:desc`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := scanQuery
		if scanPreset != "" {
			q, ok := presets[scanPreset]
			if !ok {
				return fmt.Errorf("unknown filter %q", scanPreset)
			}
			if query != "" && q != "" {
				query = q + " " + query
			} else if q != "" {
				query = q
			}
		}

		resp, err := call(cmd, app.Request{
			Op:      app.OpScan,
			Library: scanLibrary,
			Query:   query,
			Order:   scanOrder,
		})
		if err != nil {
			return err
		}
		printResult(os.Stdout, resp.Result, scanThumbs)
		return nil
	},
}

func printResult(out io.Writer, res view.Result, thumbs bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "NAME\tSIZE\tCREATED\tMODIFIED\tKIND\tATTRS"
	if thumbs {
		header += "\tTHUMBNAIL"
	}
	fmt.Fprintln(w, header)
	for _, e := range res.Entries {
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s", e.Name, size(e), when(e.CreatedAt), when(e.ModifiedAt), e.Category, e.Attributes)
		if thumbs {
			line += "\t" + e.ThumbnailRef
		}
		fmt.Fprintln(w, line)
	}
	w.Flush()

	fmt.Fprintf(out, "\n%s entries, %s (status %s, filter %s, order %s)\n",
		humanize.Comma(int64(res.TotalCount)),
		humanize.IBytes(uint64(res.TotalBytes)),
		res.Status, res.Filter, res.Order)
}

func size(e catalog.Entry) string {
	if !e.SizeKnown {
		return "?"
	}
	return humanize.IBytes(uint64(e.SizeBytes))
}

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanLibrary, "library", "l", app.Photos, "library to scan (photos, files)")
	scanCmd.Flags().StringVarP(&scanQuery, "query", "q", "", "search query")
	scanCmd.Flags().StringVarP(&scanOrder, "order", "o", "", "sort order, key[:asc|desc] (created, modified, name, size, category)")
	scanCmd.Flags().StringVarP(&scanPreset, "filter", "f", "", "preset filter (all, screenshots, photos, today, yesterday, week)")
	scanCmd.Flags().BoolVar(&scanThumbs, "thumbnails", false, "show thumbnail paths")
}
