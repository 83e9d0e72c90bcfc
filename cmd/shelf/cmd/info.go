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
)

var infoLibrary string

var infoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "Show details of one file",
	Long: `Show size, timestamps, attributes and, for images, dimensions and
EXIF details of a single file in a library.

Examples:
  shelf info Photo_20240612_090000.jpg
  shelf info --library files notes.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, app.Request{Op: app.OpInfo, Library: infoLibrary, Path: args[0]})
		if err != nil {
			return err
		}
		printInfo(os.Stdout, resp.Info)
		return nil
	},
}

func printInfo(out io.Writer, info app.EntryInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", info.Name)
	fmt.Fprintf(w, "Path:\t%s\n", info.Path)
	fmt.Fprintf(w, "Kind:\t%s\n", info.Category)
	if info.SizeKnown {
		fmt.Fprintf(w, "Size:\t%s (%s bytes)\n", humanize.IBytes(uint64(info.SizeBytes)), humanize.Comma(info.SizeBytes))
	} else {
		fmt.Fprintf(w, "Size:\tunknown\n")
	}
	fmt.Fprintf(w, "Created:\t%s\n", whenLong(info.CreatedAt))
	fmt.Fprintf(w, "Modified:\t%s\n", whenLong(info.ModifiedAt))
	fmt.Fprintf(w, "Attributes:\t%s\n", info.Attributes)
	fmt.Fprintf(w, "Metadata:\t%s\n", info.Source)
	if img := info.Image; img != nil {
		fmt.Fprintf(w, "Dimensions:\t%d x %d (%s)\n", img.Width, img.Height, img.Format)
		if !img.Taken.IsZero() {
			fmt.Fprintf(w, "Taken:\t%s\n", whenLong(img.Taken))
		}
		if img.Camera != "" {
			fmt.Fprintf(w, "Camera:\t%s\n", img.Camera)
		}
		if img.Orientation != 1 {
			fmt.Fprintf(w, "Orientation:\t%d\n", img.Orientation)
		}
	}
	if info.ThumbnailRef != "" {
		fmt.Fprintf(w, "Thumbnail:\t%s\n", info.ThumbnailRef)
	}
	w.Flush()
}

func whenLong(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04:05"), humanize.Time(t))
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringVarP(&infoLibrary, "library", "l", app.Photos, "library holding the file (photos, files)")
}
