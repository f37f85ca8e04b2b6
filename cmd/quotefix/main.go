// Command quotefix rewrites import paths whose quotes do not match.
//
// It walks a directory (src/tools by default), reads every file ending in one of
// the configured extensions (.ts and .tsx by default), and replaces
//
//	from "path'  and  from 'path"
//
// with from 'path'. Files are only written when their content changes.
//
// Usage:
//
//	quotefix [--root dir] [--ext .ts --ext .tsx] [--workers n] [--config file]
//	quotefix watch
//	quotefix init-config [--force]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"quotefix/internal/config"
	"quotefix/internal/fixer"
	"quotefix/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options carries flag values and the state built from them in PersistentPreRunE.
type options struct {
	verbose    bool
	configPath string
	root       string
	extensions []string
	workers    int

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "quotefix",
		Short: "Normalize mismatched quotes around import paths",
		Long: `Walks the root directory and rewrites import paths written as
from "path' or from 'path" to from 'path' in every file with a matching extension.

Each rewritten file is reported on stdout, followed by a count of fixed files.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Config file (YAML); missing file means defaults")
	flags.StringVarP(&opts.root, "root", "r", "", "Directory to scan (default from config: src/tools)")
	flags.StringSliceVarP(&opts.extensions, "ext", "e", nil, "File extension to fix, repeatable (default from config: .ts,.tsx)")
	flags.IntVarP(&opts.workers, "workers", "j", 0, "Files to process concurrently (default from config: 1)")

	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newInitConfigCmd(opts))
	return rootCmd
}

// setup loads the config file, applies flags that were set explicitly, and
// builds the logger.
func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.RootDirectory = o.root
	}
	if flags.Changed("ext") {
		cfg.Extensions = o.extensions
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	o.cfg = cfg

	logger, err := logging.New(cfg.Logging, o.verbose)
	if err != nil {
		return err
	}
	o.logger = logger

	logging.For(logger, logging.CategoryBoot).Debug("configuration loaded",
		zap.String("config", o.configPath),
		zap.String("root", cfg.RootDirectory),
		zap.Strings("extensions", cfg.Extensions),
		zap.Int("workers", cfg.Workers))
	return nil
}

func runFix(cmd *cobra.Command, opts *options) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	f := fixer.New(opts.cfg, cmd.OutOrStdout(), opts.logger)
	_, err := f.Run(ctx)
	return err
}

// signalContext derives a context from the command that is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
