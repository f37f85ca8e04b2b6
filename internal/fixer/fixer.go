// Package fixer walks a directory tree and rewrites candidate files whose
// import paths have mismatched quotes.
package fixer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"quotefix/internal/config"
	"quotefix/internal/logging"
	"quotefix/internal/quotes"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidUTF8 is returned for candidate files that are not UTF-8 text.
var ErrInvalidUTF8 = errors.New("not valid UTF-8")

// A Fixer normalizes the candidate files under one root directory.
type Fixer struct {
	root       string
	extensions []string
	workers    int
	out        io.Writer
	logger     *zap.Logger

	outMu sync.Mutex
}

// New returns a Fixer for cfg. Report lines are written to out
// (os.Stdout when nil); diagnostics go to logger.
func New(cfg *config.Config, out io.Writer, logger *zap.Logger) *Fixer {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	exts := make([]string, len(cfg.Extensions))
	copy(exts, cfg.Extensions)
	return &Fixer{
		root:       cfg.RootDirectory,
		extensions: exts,
		workers:    cfg.Workers,
		out:        out,
		logger:     logger,
	}
}

// Root returns the directory the Fixer walks.
func (f *Fixer) Root() string {
	return f.root
}

// Matches reports whether a file name ends in one of the configured extensions.
func (f *Fixer) Matches(name string) bool {
	for _, ext := range f.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// FixFile normalizes the file at path and rewrites it only if the content changed.
// It reports whether the file was rewritten.
func (f *Fixer) FixFile(path string) (bool, error) {
	log := logging.For(f.logger, logging.CategoryFix)

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return false, fmt.Errorf("read %s: %w", path, ErrInvalidUTF8)
	}

	content := string(data)
	fixed := quotes.Normalize(content)
	if fixed == content {
		log.Debug("unchanged", zap.String("path", path))
		return false, nil
	}

	// Truncates in place, so an existing file keeps its mode.
	if err := os.WriteFile(path, []byte(fixed), 0644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}

	log.Debug("rewritten", zap.String("path", path), zap.Int("bytes", len(fixed)))
	f.printf("Fixed: %s\n", path)
	return true, nil
}

// Collect returns every candidate file under the root in lexical order.
// A root that is missing or not a directory yields no files.
func (f *Fixer) Collect(ctx context.Context) ([]string, error) {
	log := logging.For(f.logger, logging.CategoryWalk)

	info, err := os.Stat(f.root)
	if err != nil || !info.IsDir() {
		log.Debug("root is not a directory, nothing to scan", zap.String("root", f.root), zap.Error(err))
		return nil, nil
	}

	root := f.root
	if li, err := os.Lstat(root); err == nil && li.Mode()&fs.ModeSymlink != 0 {
		// WalkDir does not resolve a symlinked root; a trailing separator does.
		root += string(filepath.Separator)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("skipping unreadable directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !f.Matches(d.Name()) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if target, err := os.Stat(path); err == nil && target.IsDir() {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	log.Debug("collected candidates", zap.String("root", f.root), zap.Int("files", len(files)))
	return files, nil
}

// Run normalizes every candidate file under the root and returns how many were
// rewritten. The first error stops the run; the summary line is only printed
// when the run completes.
func (f *Fixer) Run(ctx context.Context) (int, error) {
	files, err := f.Collect(ctx)
	if err != nil {
		return 0, err
	}

	var fixed int
	if f.workers <= 1 {
		fixed, err = f.runSequential(ctx, files)
	} else {
		fixed, err = f.runParallel(ctx, files)
	}
	if err != nil {
		return fixed, err
	}

	f.logger.Debug("run complete",
		zap.String("root", f.root),
		zap.Int("scanned", len(files)),
		zap.Int("fixed", fixed))
	f.printf("\nFixed %d files\n", fixed)
	return fixed, nil
}

func (f *Fixer) runSequential(ctx context.Context, files []string) (int, error) {
	fixed := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return fixed, err
		}
		changed, err := f.FixFile(path)
		if err != nil {
			return fixed, err
		}
		if changed {
			fixed++
		}
	}
	return fixed, nil
}

func (f *Fixer) runParallel(ctx context.Context, files []string) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	var fixed atomic.Int64
	for _, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			changed, err := f.FixFile(path)
			if err != nil {
				return err
			}
			if changed {
				fixed.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		// A cancelled parent stops the loop early without failing any goroutine.
		err = ctx.Err()
	}
	return int(fixed.Load()), err
}

func (f *Fixer) printf(format string, args ...interface{}) {
	f.outMu.Lock()
	defer f.outMu.Unlock()
	fmt.Fprintf(f.out, format, args...)
}
