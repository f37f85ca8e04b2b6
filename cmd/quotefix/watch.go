package main

import (
	"fmt"

	"quotefix/internal/fixer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Fix once, then keep fixing files as they change",
		Long: `Runs a normal pass over the root directory, then watches it (and every
directory created below it) and normalizes candidate files whenever they are
created or written. Stops on Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}
}

func runWatch(cmd *cobra.Command, opts *options) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	f := fixer.New(opts.cfg, cmd.OutOrStdout(), opts.logger)
	w, err := fixer.NewWatcher(f, opts.cfg.GetDebounce())
	if err != nil {
		return err
	}
	defer w.Stop()

	// Start before the first pass so edits made during it are not missed.
	if err := w.Start(ctx); err != nil {
		return err
	}
	if _, err := f.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", f.Root())

	<-ctx.Done()

	stats := w.Stats()
	opts.logger.Info("watch stopped",
		zap.Int("events", stats.Events),
		zap.Int("fixed", stats.FilesFixed),
		zap.Int("errors", stats.Errors))
	return nil
}
