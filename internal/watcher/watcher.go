// Package watcher monitors local roots for changes and broadcasts events via callbacks.
package watcher

import (
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/CageChen/dotwalk/internal/config"
	"github.com/CageChen/dotwalk/internal/walk"
)

// EventType represents the type of file system event
type EventType int

// File system event types.
const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventWrite:
		return "update"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is a change inside a configured folder.
type Event struct {
	Type   EventType
	Folder string // folder alias
	Path   string // slash-separated, relative to the folder
	Hidden bool   // some segment of Path is a dot-entry
}

// Callback is a function called when file changes occur
type Callback func(Event)

type root struct {
	alias   string
	abs     string
	exclude []string
}

// Watcher monitors file system changes in the configured local folders.
// Git-ref folders are snapshots and are never watched.
type Watcher struct {
	watcher   *fsnotify.Watcher
	roots     []root
	showDot   bool
	log       zerolog.Logger
	callbacks []Callback
	mu        sync.RWMutex
	done      chan struct{}
}

// New creates a new file system watcher. Dot-directories are only watched
// when cfg.ShowDot is set.
func New(cfg *config.Config, log zerolog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	var roots []root
	for _, f := range cfg.Folders {
		if f.GitRef != "" {
			continue
		}
		roots = append(roots, root{alias: f.Alias, abs: f.Path, exclude: cfg.ExcludesFor(f)})
	}

	return &Watcher{
		watcher: w,
		roots:   roots,
		showDot: cfg.ShowDot,
		log:     log.With().Str("component", "watcher").Logger(),
		done:    make(chan struct{}),
	}, nil
}

// OnChange registers a callback for file change events
func (w *Watcher) OnChange(cb Callback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start begins watching all configured directories
func (w *Watcher) Start() error {
	for _, r := range w.roots {
		err := filepath.WalkDir(r.abs, func(p string, d iofs.DirEntry, err error) error {
			if err != nil {
				w.log.Warn().Err(err).Str("path", p).Msg("cannot walk")
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			if p != r.abs && w.skipDir(r, d.Name()) {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(p); err != nil {
				w.log.Warn().Err(err).Str("path", p).Msg("cannot watch")
			}
			return nil
		})
		if err != nil {
			w.log.Warn().Err(err).Str("folder", r.abs).Msg("failed to walk folder")
		}
	}

	go w.eventLoop()
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) skipDir(r root, name string) bool {
	if !w.showDot && walk.IsHidden(name) {
		return true
	}
	return excluded(r.exclude, name)
}

func excluded(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	e, r, ok := w.translate(event)
	if !ok {
		return
	}

	// New directories need their own watch.
	if e.Type == EventCreate && isDir(event.Name) && !w.skipDir(r, filepath.Base(event.Name)) {
		if err := w.watcher.Add(event.Name); err != nil {
			w.log.Warn().Err(err).Str("path", event.Name).Msg("cannot watch")
		}
	}

	w.mu.RLock()
	callbacks := make([]Callback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		cb(e)
	}
}

// translate maps an fsnotify event onto the folder that contains it.
func (w *Watcher) translate(event fsnotify.Event) (Event, root, bool) {
	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventCreate
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventWrite
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventRemove
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventRename
	default:
		return Event{}, root{}, false
	}

	for _, r := range w.roots {
		rel, err := filepath.Rel(r.abs, event.Name)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		for _, seg := range strings.Split(rel, "/") {
			if excluded(r.exclude, seg) {
				return Event{}, root{}, false
			}
		}
		return Event{
			Type:   eventType,
			Folder: r.alias,
			Path:   rel,
			Hidden: walk.HasHiddenSegment(rel),
		}, r, true
	}
	return Event{}, root{}, false
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	return info.IsDir()
}
