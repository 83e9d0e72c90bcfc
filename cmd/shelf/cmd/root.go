package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/shelf/internal/app"
	"github.com/justyntemme/shelf/internal/catalog"
	"github.com/justyntemme/shelf/internal/config"
	"github.com/justyntemme/shelf/internal/debug"
	"github.com/justyntemme/shelf/internal/errors"
	"github.com/justyntemme/shelf/internal/logging"
)

var (
	configPath string
	logLevel   string
	verbose    bool
	trace      []string

	sys *app.System
	gen atomic.Int64
)

var rootCmd = &cobra.Command{
	Use:   "shelf",
	Short: "Catalog, preview and manage a local photo and file library",
	Long: `shelf keeps two libraries under one base directory: photos, with
cached thumbnails, and files. Every listing is a fresh scan of the
library root; mutations go straight to disk and rescan.

Relative paths given to commands are resolved against the library root.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Annotations["skipSystem"] == "true" {
			return nil
		}

		mgr := config.NewManager()
		if err := mgr.LoadFrom(configPath); err != nil {
			return err
		}
		cfg := mgr.Get()

		lcfg := cfg.Logging.Options()
		if logLevel != "" {
			lcfg.Level = logLevel
		}
		if err := logging.Init(lcfg); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		for _, c := range trace {
			debug.Enable(debug.Category(strings.ToUpper(strings.TrimSpace(c))))
		}
		if perr := mgr.ParseError(); perr != nil {
			logging.Warn("config has errors, using defaults", logging.String("path", mgr.Path()), logging.Err(perr))
		}

		s, err := app.NewSystem(app.Options{Config: cfg})
		if err != nil {
			return err
		}
		sys = s
		go sys.Start(cmd.Context())
		if verbose {
			go reportProgress(cmd.Context(), sys.ProgressChan)
		}
		return nil
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if cerr := shutdown(); err == nil {
		err = cerr
	}
	if err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			fmt.Fprintf(os.Stderr, "%s\n  %v\n", e.Reason(), err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.ConfigPath(), "path to config.json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print scan progress to stderr")
	rootCmd.PersistentFlags().StringSliceVar(&trace, "trace", nil, "debug categories to trace in debug builds (APP, SCAN, THUMB, VIEW, OPS, STORE, FS_ENTRY)")
}

// shutdown stops the request loop and releases the libraries. It runs
// whether or not the command failed.
func shutdown() error {
	if sys == nil {
		return nil
	}
	close(sys.RequestChan)
	for range sys.ResponseChan {
		// Drain until Start returns.
	}
	err := sys.Close()
	_ = logging.Sync()
	sys = nil
	return err
}

// call sends one request and waits for its response.
func call(cmd *cobra.Command, req app.Request) (app.Response, error) {
	req.Gen = gen.Add(1)
	select {
	case sys.RequestChan <- req:
	case <-cmd.Context().Done():
		return app.Response{}, cmd.Context().Err()
	}
	for {
		select {
		case resp := <-sys.ResponseChan:
			if resp.Gen != req.Gen {
				continue // stale
			}
			if resp.Cancelled {
				return resp, fmt.Errorf("%s cancelled: %w", req.Op, resp.Err)
			}
			return resp, resp.Err
		case <-cmd.Context().Done():
			sys.RequestChan <- app.Request{Op: app.OpCancel}
			return app.Response{}, cmd.Context().Err()
		}
	}
}

func reportProgress(ctx context.Context, ch <-chan catalog.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-ch:
			switch u.Phase {
			case catalog.PhaseThumbnails:
				fmt.Fprintf(os.Stderr, "\rthumbnails %d/%d", u.Current, u.Total)
			case catalog.PhaseEnumerating:
				fmt.Fprintf(os.Stderr, "\rscanned %s entries", humanize.Comma(int64(u.Current)))
			case catalog.PhaseFinished:
				fmt.Fprintf(os.Stderr, "\r%s: %s\n", u.Root, u.Label)
			}
		}
	}
}
