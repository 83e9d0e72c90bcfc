package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/justyntemme/shelf/internal/app"
	"github.com/justyntemme/shelf/internal/fileops"
)

var (
	mutateLibrary string
	createExt     string
	createContent string
	createFrom    string
	overwrite     bool
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a text file in a library",
	Long: fmt.Sprintf(`Create a file named <name> with the given content.

Supported types: %v. An existing file is kept unless --overwrite is set.

Examples:
  shelf create notes --content "remember the milk"
  shelf create report --ext csv --from data.csv`, fileops.CreateExtensions),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := createContent
		if createFrom != "" {
			data, err := os.ReadFile(createFrom)
			if err != nil {
				return err
			}
			content = string(data)
		}
		resp, err := call(cmd, app.Request{
			Op:        app.OpCreate,
			Library:   mutateLibrary,
			Name:      args[0],
			Ext:       createExt,
			Content:   content,
			Overwrite: overwrite,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created %s (%d entries)\n", resp.Path, resp.Result.TotalCount)
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <path> <new-name>",
	Short: "Rename a file in place",
	Long: `Rename a file within its directory. A new name without an extension
keeps the old one.

Examples:
  shelf rename notes.txt todo
  shelf rename --library photos Photo_1.jpg beach.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, app.Request{
			Op:      app.OpRename,
			Library: mutateLibrary,
			Path:    args[0],
			Name:    args[1],
		})
		if err != nil {
			return err
		}
		fmt.Printf("Renamed %s → %s\n", args[0], resp.Path)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <path>",
	Short: "Delete a file",
	Long: `Delete a single file from a library.

Warning: This operation cannot be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, app.Request{
			Op:      app.OpDelete,
			Library: mutateLibrary,
			Path:    args[0],
		})
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %s (%d entries left)\n", args[0], resp.Result.TotalCount)
		return nil
	},
}

var deleteImageCmd = &cobra.Command{
	Use:   "delete-image <path>",
	Short: "Delete an image and its thumbnail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, app.Request{
			Op:      app.OpDeleteImage,
			Library: app.Photos,
			Path:    args[0],
		})
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %s (%d images left)\n", args[0], resp.Result.TotalCount)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{createCmd, renameCmd, deleteCmd} {
		c.Flags().StringVarP(&mutateLibrary, "library", "l", app.Files, "library to change (photos, files)")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(deleteImageCmd)

	createCmd.Flags().StringVarP(&createExt, "ext", "e", "txt", "file type")
	createCmd.Flags().StringVar(&createContent, "content", "", "file content")
	createCmd.Flags().StringVar(&createFrom, "from", "", "read content from this file")
	createCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing file")
	createCmd.MarkFlagsMutuallyExclusive("content", "from")
}
