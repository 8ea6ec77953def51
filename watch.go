// FILE: lixenwraith/flatconf/watch.go
package flatconf

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// EventKind classifies a watcher notification
type EventKind int

const (
	// EventReloaded carries a freshly parsed tree and the leaf paths that changed
	EventReloaded EventKind = iota
	// EventDeleted reports that a watched file disappeared; the last good tree stays current
	EventDeleted
	// EventPermissionsChanged reports a group/world permission change; no reload is attempted
	EventPermissionsChanged
	// EventReloadError reports a failed reparse; the last good tree stays current
	EventReloadError
	// EventReloadTimeout reports a reparse that exceeded ReloadTimeout
	EventReloadTimeout
)

func (k EventKind) String() string {
	switch k {
	case EventReloaded:
		return "reloaded"
	case EventDeleted:
		return "file_deleted"
	case EventPermissionsChanged:
		return "permissions_changed"
	case EventReloadError:
		return "reload_error"
	case EventReloadTimeout:
		return "reload_timeout"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is delivered to watcher subscribers
type Event struct {
	Kind    EventKind
	File    string   // file that triggered the event, empty for reloads
	Tree    *Tree    // new tree for EventReloaded, nil otherwise
	Changed []string // sorted leaf paths added, removed or modified
	Err     error
}

// WatchOptions configures file watching behavior
type WatchOptions struct {
	// PollInterval for file stat checks (minimum 100ms)
	PollInterval time.Duration

	// Debounce duration to avoid rapid reloads
	Debounce time.Duration

	// MaxWatchers limits concurrent subscriber channels
	MaxWatchers int

	// ReloadTimeout for a single reparse
	ReloadTimeout time.Duration

	// VerifyPermissions checks file hasn't been replaced with different permissions
	VerifyPermissions bool
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval:      DefaultPollInterval,
		Debounce:          DefaultDebounce,
		MaxWatchers:       DefaultMaxWatchers,
		ReloadTimeout:     DefaultReloadTimeout,
		VerifyPermissions: true,
	}
}

type fileState struct {
	modTime time.Time
	size    int64
	mode    os.FileMode
	missing bool
}

// Watcher re-parses a configuration (and its schema file) whenever the files
// change on disk. Every reload is a complete parse; a failed reload keeps the
// previous tree. Trees handed out by a Watcher are shared and must be
// treated as read-only; Clone them before modifying.
type Watcher struct {
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	opts             WatchOptions
	builder          *Builder
	files            []string
	states           map[string]fileState
	current          atomic.Pointer[Tree]
	watching         atomic.Bool
	reloadInProgress atomic.Bool
	subscribers      map[int64]chan Event
	subscriberID     atomic.Int64
	debounceTimer    *time.Timer
}

// Watch performs an initial Build and then watches the configuration file and
// schema file for changes until ctx is cancelled or Stop is called. The
// builder must be file based; it must not be modified afterwards.
func (b *Builder) Watch(ctx context.Context, opts WatchOptions) (*Watcher, error) {
	if b.file == "" {
		return nil, fmt.Errorf("%w: watching requires a configuration file", ErrIO)
	}
	if b.schemaReader != nil {
		return nil, fmt.Errorf("%w: watching requires a schema file, not a reader", ErrIO)
	}

	if opts.PollInterval < MinPollInterval {
		opts.PollInterval = MinPollInterval
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	tree, err := b.Build()
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		ctx:         watchCtx,
		cancel:      cancel,
		opts:        opts,
		builder:     b,
		files:       []string{b.file},
		states:      make(map[string]fileState),
		subscribers: make(map[int64]chan Event),
	}
	if b.schemaFile != "" {
		w.files = append(w.files, b.schemaFile)
	}
	for _, f := range w.files {
		w.states[f] = statFile(f)
	}
	w.current.Store(tree)

	w.watching.Store(true)
	go w.watchLoop()
	return w, nil
}

// Current returns the most recent successfully parsed tree
func (w *Watcher) Current() *Tree {
	return w.current.Load()
}

// IsWatching returns true while the poll loop runs
func (w *Watcher) IsWatching() bool {
	return w.watching.Load()
}

// SubscriberCount returns the number of active subscriber channels
func (w *Watcher) SubscriberCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.subscribers)
}

// Subscribe returns a channel receiving watcher events. The channel is
// closed when the watcher stops. Events are dropped for subscribers that do
// not keep up. Past MaxWatchers the returned channel is already closed.
func (w *Watcher) Subscribe() <-chan Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.subscribers) >= w.opts.MaxWatchers || w.ctx.Err() != nil {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, subscriberBuffer)
	id := w.subscriberID.Add(1)
	w.subscribers[id] = ch

	go func() {
		<-w.ctx.Done()
		w.mu.Lock()
		delete(w.subscribers, id)
		close(ch)
		w.mu.Unlock()
	}()

	return ch
}

// Stop terminates the watcher and closes all subscriber channels
func (w *Watcher) Stop() {
	w.cancel()

	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.mu.Unlock()

	// Wait for watch loop to exit with timeout
	deadline := time.Now().Add(ShutdownTimeout)
	for w.watching.Load() && time.Now().Before(deadline) {
		time.Sleep(SpinWaitInterval)
	}
}

// watchLoop is the main file watching loop
func (w *Watcher) watchLoop() {
	defer w.watching.Store(false)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.checkFiles()
		}
	}
}

// checkFiles compares each watched file against its last known state and
// schedules a debounced reload on change
func (w *Watcher) checkFiles() {
	changed := false

	for _, path := range w.files {
		prev := w.states[path]
		cur := statFile(path)

		if cur.missing {
			w.states[path] = cur
			if !prev.missing {
				w.notify(Event{Kind: EventDeleted, File: path})
			}
			continue
		}

		// Permission changes on group/world bits block the reload. Only the
		// mode is recorded so a content change in the same interval is
		// still picked up on the next poll.
		if w.opts.VerifyPermissions && !prev.missing && prev.mode != 0 &&
			(cur.mode&0077) != (prev.mode&0077) {
			w.states[path] = fileState{modTime: prev.modTime, size: prev.size, mode: cur.mode}
			w.notify(Event{Kind: EventPermissionsChanged, File: path})
			continue
		}

		w.states[path] = cur

		if prev.missing || !cur.modTime.Equal(prev.modTime) || cur.size != prev.size {
			changed = true
		}
	}

	if !changed {
		return
	}

	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.opts.Debounce, w.performReload)
	w.mu.Unlock()
}

// performReload re-runs the builder and publishes the result
func (w *Watcher) performReload() {
	if w.ctx.Err() != nil {
		return
	}
	// Prevent concurrent reloads
	if !w.reloadInProgress.CompareAndSwap(false, true) {
		return
	}
	defer w.reloadInProgress.Store(false)

	ctx, cancel := context.WithTimeout(w.ctx, w.opts.ReloadTimeout)
	defer cancel()

	type result struct {
		tree *Tree
		err  error
	}
	done := make(chan result, 1)
	go func() {
		tree, err := w.builder.Build()
		done <- result{tree, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			w.notify(Event{Kind: EventReloadError, Err: r.err})
			return
		}

		old := w.current.Swap(r.tree)
		changed := diffTrees(old, r.tree)
		if len(changed) > 0 {
			w.notify(Event{Kind: EventReloaded, Tree: r.tree, Changed: changed})
		}

	case <-ctx.Done():
		if w.ctx.Err() != nil {
			return
		}
		w.notify(Event{Kind: EventReloadTimeout, Err: ctx.Err()})
	}
}

// notify sends ev to all subscribers without blocking
func (w *Watcher) notify(ev Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.subscribers {
		select {
		case ch <- ev:
		default:
			// Subscriber not keeping up
		}
	}
}

func statFile(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{missing: true}
	}
	return fileState{
		modTime: info.ModTime(),
		size:    info.Size(),
		mode:    info.Mode(),
	}
}

// diffTrees lists leaf paths whose values differ between old and new
func diffTrees(prev, next *Tree) []string {
	oldValues := prev.Flatten()
	newValues := next.Flatten()

	var changed []string
	for path, newVal := range newValues {
		if oldVal, existed := oldValues[path]; !existed || !oldVal.Equal(newVal) {
			changed = append(changed, path)
		}
	}
	for path := range oldValues {
		if _, exists := newValues[path]; !exists {
			changed = append(changed, path)
		}
	}
	slices.Sort(changed)
	return changed
}
