package launchstore

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kjk/launches/log"
	"github.com/kjk/launches/u"
)

// DefaultWatchDebounce is how long Watcher waits for more changes
// before notifying. Adding a launch is a create, a few writes and
// a rename; subscribers should hear about it once.
const DefaultWatchDebounce = 100 * time.Millisecond

// Watcher notifies subscribers when the database file changes on disk,
// e.g. after another process recorded a launch
type Watcher struct {
	path      string
	fw        *fsnotify.Watcher
	debouncer *u.Debouncer

	mu     sync.Mutex
	subs   map[int]func()
	nextID int

	wg sync.WaitGroup
}

// Watch starts watching the database file
func (s *Store) Watch() (*Watcher, error) {
	return NewWatcher(s.path, DefaultWatchDebounce)
}

// NewWatcher watches file at path. The file doesn't have to exist but
// its directory is created if needed.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err = u.CreateDirForFile(path); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// the database is replaced by rename so a watch on the file itself
	// would stop firing after the first insert. Watch the directory
	dir := filepath.Dir(path)
	if err = fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch '%s': %w", dir, err)
	}
	w := &Watcher{
		path: path,
		fw:   fw,
		subs: map[int]func(){},
	}
	w.debouncer = u.NewDebouncer(debounce, w.notify)
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			log.Verbosef("launchstore: %s\n", ev)
			w.debouncer.Trigger()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warningf("launchstore: watching '%s' failed with '%s'\n", w.path, err)
		}
	}
}

func (w *Watcher) notify() {
	w.mu.Lock()
	fns := make([]func(), 0, len(w.subs))
	for _, f := range w.subs {
		fns = append(fns, f)
	}
	w.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

// Subscribe registers f to be called after the database changes.
// f is called on a background goroutine. Call the returned function
// to unsubscribe.
func (w *Watcher) Subscribe(f func()) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.subs[id] = f
	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

// Close stops watching. It waits for a notification in progress so
// subscribers are not called after Close returns. Don't call it from
// a subscriber.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	err := w.fw.Close()
	w.wg.Wait()
	return err
}

