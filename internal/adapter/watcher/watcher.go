// Package watcher reports batches of changed source files under a root.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const DefaultDebounce = 300 * time.Millisecond

// Options select which paths are reported. Both funcs receive
// slash-separated paths relative to the watched root.
type Options struct {
	Match    func(relPath string) bool
	SkipDir  func(relPath string) bool
	Debounce time.Duration
}

// Watcher watches a directory tree recursively. Changes are accumulated
// until no event arrives for the debounce period, then reported at once.
type Watcher struct {
	fsw    *fsnotify.Watcher
	root   string
	opts   Options
	logger zerolog.Logger
}

func New(root string, opts Options, logger zerolog.Logger) (*Watcher, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		root:   root,
		opts:   opts,
		logger: logger,
	}
	if err := w.addRecursive(root, nil); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is done, calling onChange with the sorted absolute
// paths of every matching file created, written, removed or renamed since
// the previous call.
func (w *Watcher) Run(ctx context.Context, onChange func(files []string)) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]struct{})
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

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			added := 0
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// Files written before the directory was watched produce no events.
					err := w.addRecursive(event.Name, func(path string) {
						pending[path] = struct{}{}
						added++
					})
					if err != nil {
						w.logger.Warn().Err(err).Str("dir", event.Name).Msg("Failed to watch new directory")
					}
					if added == 0 {
						continue
					}
				}
			}

			if added == 0 {
				if !w.relevant(event) {
					continue
				}
				pending[event.Name] = struct{}{}
			}

			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Stop()
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			sort.Strings(files)
			pending = make(map[string]struct{})

			w.logger.Debug().Int("files", len(files)).Msg("Change batch")
			onChange(files)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watcher error")
		}
	}
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return w.match(event.Name)
}

func (w *Watcher) match(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return w.opts.Match == nil || w.opts.Match(filepath.ToSlash(rel))
}

// addRecursive watches dir and its subdirectories. When found is set it
// receives every matching regular file already present.
func (w *Watcher) addRecursive(dir string, found func(path string)) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if found != nil && d.Type().IsRegular() && w.match(path) {
				found(path)
			}
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		if w.opts.SkipDir != nil && w.opts.SkipDir(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}
