package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string            // directories to watch (recursive)
	AllowedExts map[string]struct{} // nil -> constants.AllowedExtensions
	SkipHidden  bool
	InitialScan bool          // if true, walk roots and emit existing files
	Debounce    time.Duration // coalesce rapid create/write bursts
	Logger      *slog.Logger
}

// Watch emits the paths of allowed files that are created or written under the
// roots, including inside directories created after the watch started. Paths
// are emitted once per debounce window and only if they still exist. Both
// channels close when ctx is done.
func Watch(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("ingest.watch.start_failed", "error", "no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	if cfg.AllowedExts == nil {
		cfg.AllowedExts = ExtSet(nil)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.create_failed", "error", err)
		return nil, nil, err
	}

	wanted := func(path string) bool {
		if cfg.SkipHidden && IsHidden(path) {
			return false
		}
		return AllowedExt(path, cfg.AllowedExts)
	}

	// addTree watches root and every directory below it, returning the allowed
	// files already present.
	addTree := func(root string) ([]string, error) {
		var files []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if cfg.SkipHidden && path != root && IsHidden(path) {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			if wanted(path) {
				files = append(files, path)
			}
			return nil
		})
		return files, err
	}

	var initial []string
	for _, r := range cfg.Roots {
		files, err := addTree(r)
		if err != nil {
			logger.Error("ingest.watch.add_root_failed", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
		if cfg.InitialScan {
			initial = append(initial, files...)
		}
	}

	evCh := make(chan string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(evCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_failed", "error", err)
			}
		}()

		pending := map[string]struct{}{}
		for _, p := range initial {
			pending[p] = struct{}{}
		}
		var (
			timer *time.Timer
			fire  <-chan time.Time
		)

		flush := func() bool {
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			for _, p := range paths {
				if info, err := os.Stat(p); err != nil || info.IsDir() {
					continue
				}
				select {
				case evCh <- p:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}
		// kick flushes now, or after the debounce window when one is set.
		kick := func() bool {
			if cfg.Debounce <= 0 {
				return flush()
			}
			if timer == nil {
				timer = time.NewTimer(cfg.Debounce)
			} else {
				timer.Reset(cfg.Debounce)
			}
			fire = timer.C
			return true
		}
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		if !flush() {
			return
		}
		logger.Info("ingest.watch.started", "roots", cfg.Roots, "initial", len(initial))

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
						if cfg.SkipHidden && IsHidden(e.Name) {
							continue
						}
						files, err := addTree(e.Name)
						if err != nil {
							logger.Warn("ingest.watch.add_dir_failed", "path", e.Name, "error", err)
						}
						for _, f := range files {
							pending[f] = struct{}{}
						}
						if len(files) > 0 && !kick() {
							return
						}
						continue
					}
				}
				if !wanted(e.Name) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					continue
				}
				pending[e.Name] = struct{}{}
				if !kick() {
					return
				}
			case <-fire:
				fire = nil
				if !flush() {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
