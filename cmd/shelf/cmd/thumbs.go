package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/shelf/internal/app"
	"github.com/justyntemme/shelf/internal/config"
)

var thumbCmd = &cobra.Command{
	Use:   "thumb <path>",
	Short: "Print the thumbnail of an image, generating it if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, app.Request{Op: app.OpThumbnail, Library: app.Photos, Path: args[0]})
		if err != nil {
			return err
		}
		fmt.Println(resp.Path)
		return nil
	},
}

var thumbsCmd = &cobra.Command{
	Use:   "thumbs",
	Short: "Manage the thumbnail cache",
}

var thumbsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove thumbnails of images that no longer exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, app.Request{Op: app.OpPrune, Library: app.Photos})
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d thumbnails\n", resp.Pruned)
		return nil
	},
}

var diskLibrary string

var diskCmd = &cobra.Command{
	Use:   "disk",
	Short: "Show free space on the volume holding a library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, app.Request{Op: app.OpDisk, Library: diskLibrary})
		if err != nil {
			return err
		}
		d := resp.Disk
		mount := d.MountPoint
		if mount == "" {
			mount = d.Path
		}
		fmt.Printf("%s: %s free of %s (%s available, %s used) on %s\n",
			diskLibrary,
			humanize.IBytes(d.Free),
			humanize.IBytes(d.Total),
			humanize.IBytes(d.Available),
			humanize.IBytes(d.Used()),
			mount)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a fresh default config, backing up the current one",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"skipSystem": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		backup, err := config.GenerateConfig(configPath)
		if err != nil {
			return err
		}
		if backup != "" {
			fmt.Printf("Backed up %s to %s\n", configPath, backup)
		}
		fmt.Printf("Wrote %s\n", configPath)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the config file path",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"skipSystem": "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(configPath)
	},
}

func init() {
	rootCmd.AddCommand(thumbCmd)
	rootCmd.AddCommand(thumbsCmd)
	thumbsCmd.AddCommand(thumbsPruneCmd)

	rootCmd.AddCommand(diskCmd)
	diskCmd.Flags().StringVarP(&diskLibrary, "library", "l", app.Photos, "library whose volume to report (photos, files)")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}
