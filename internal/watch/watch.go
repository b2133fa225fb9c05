// Package watch reruns a function when any of a set of files changes.
//
// Parent directories are watched rather than the files themselves so that
// editors which save by rename keep being tracked. Bursts of events are
// debounced into one call.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/banshee-data/leather-drafts/internal/monitoring"
	"github.com/banshee-data/leather-drafts/internal/timeutil"
)

// DefaultDebounce is the quiet period after the last event before a rerun.
const DefaultDebounce = 250 * time.Millisecond

// ErrNoPaths is returned by New when there is nothing to watch.
var ErrNoPaths = errors.New("no paths to watch")

// Func is called with the changed paths, sorted.
type Func func(ctx context.Context, changed []string) error

// Watcher tracks a fixed set of files.
type Watcher struct {
	Debounce time.Duration
	Clock    timeutil.Clock

	fsw     *fsnotify.Watcher
	targets map[string]bool
}

// New starts watching the parent directories of paths.
func New(paths []string) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &Watcher{
		Debounce: DefaultDebounce,
		Clock:    timeutil.RealClock{},
		fsw:      fsw,
		targets:  make(map[string]bool, len(paths)),
	}
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run calls fn after each debounced burst of changes until ctx is done.
// Errors from fn are logged and watching continues.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	return w.loop(ctx, w.fsw.Events, w.fsw.Errors, fn)
}

func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, fn Func) error {
	log := monitoring.L()
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var (
		timer   timeutil.Timer
		fire    <-chan time.Time
		pending = map[string]bool{}
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || !w.targets[name] {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			log.Debug("change", zap.String("path", name), zap.String("op", ev.Op.String()))
			pending[name] = true
			if timer == nil {
				timer = w.Clock.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C()

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = map[string]bool{}

			log.Info("inputs changed, rerunning", zap.Strings("paths", changed))
			if err := fn(ctx, changed); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error("rerun failed", zap.Error(err))
			}
		}
	}
}
