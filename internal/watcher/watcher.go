package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"vigil/internal/filter"
	"vigil/internal/fsutil"
	"vigil/internal/logging"
	"vigil/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

const defaultMaxWatches = 4096

var ErrMaxWatchesExceeded = errors.New("max watches exceeded")

// Watcher turns raw fsnotify events into filtered, debounced events and
// hands them to the configured sink.
type Watcher struct {
	watcher       *fsnotify.Watcher
	root          string
	filter        *filter.PatternFilter
	debouncer     *debouncer
	events        chan fsnotify.Event
	errors        chan error
	done          chan struct{}
	state         atomic.Int32
	mutex         sync.Mutex
	closed        bool
	logger        *logging.Logger
	registry      *metrics.Registry
	onEvent       func(Event)
	onError       func(error)
	maxWatches    int
	activeWatches int
	watchedDirs   map[string]struct{}
}

// New validates the root and prepares a watcher in the idle state. No
// watches are registered until Start.
func New(options Options) (*Watcher, error) {
	root, err := filepath.Abs(options.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch root %q: %w", options.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %q is not a directory", options.Root)
	}

	source, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.NewEntryBuffer(logging.DefaultBufferSize), logging.LevelInfo, nil)
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	maxWatches := options.MaxWatches
	if maxWatches <= 0 {
		maxWatches = defaultMaxWatches
	}

	instance := &Watcher{
		watcher:     source,
		root:        root,
		filter:      options.Filter,
		events:      make(chan fsnotify.Event, 64),
		errors:      make(chan error, 4),
		done:        make(chan struct{}),
		logger:      logger.With(map[string]string{"component": "watcher"}),
		registry:    registry,
		onEvent:     options.OnEvent,
		onError:     options.OnError,
		maxWatches:  maxWatches,
		watchedDirs: make(map[string]struct{}),
	}
	if options.Debounce > 0 {
		instance.debouncer = newDebouncer(options.Debounce)
	}
	instance.state.Store(int32(StateIdle))
	return instance, nil
}

// Start registers the recursive watch tree and begins processing events.
func (watcher *Watcher) Start() error {
	if watcher == nil {
		return errors.New("watcher is nil")
	}
	if !watcher.transition(StateIdle, StateWatching) {
		return fmt.Errorf("watcher already started (state %s)", watcher.State())
	}

	added, err := watcher.watchTree(watcher.root)
	if err != nil {
		watcher.state.Store(int32(StateStopped))
		_ = watcher.watcher.Close()
		return err
	}

	watcher.startForwarder(watcher.watcher)
	go watcher.run()

	watcher.logger.Info("watching", map[string]string{
		"root":    watcher.root,
		"watches": strconv.Itoa(added),
	})
	return nil
}

// Stop flushes pending debounce windows, emits their events, and releases
// all watches. Safe to call more than once.
func (watcher *Watcher) Stop() {
	if watcher == nil {
		return
	}
	if !watcher.transition(StateWatching, StateShuttingDown) {
		if watcher.transition(StateIdle, StateStopped) {
			_ = watcher.watcher.Close()
		}
		return
	}

	watcher.mutex.Lock()
	watcher.closed = true
	pending := watcher.debouncer.drain()
	watcher.mutex.Unlock()

	close(watcher.done)
	_ = watcher.watcher.Close()

	for _, event := range pending {
		watcher.emit(event)
	}

	watcher.state.Store(int32(StateStopped))
	watcher.logger.Info("watcher stopped", map[string]string{
		"flushed": strconv.Itoa(len(pending)),
	})
}

func (watcher *Watcher) State() State {
	if watcher == nil {
		return StateStopped
	}
	return State(watcher.state.Load())
}

func (watcher *Watcher) Root() string {
	if watcher == nil {
		return ""
	}
	return watcher.root
}

func (watcher *Watcher) ActiveWatches() int {
	if watcher == nil {
		return 0
	}
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.activeWatches
}

func (watcher *Watcher) transition(from, to State) bool {
	return watcher.state.CompareAndSwap(int32(from), int32(to))
}

func (watcher *Watcher) run() {
	for {
		select {
		case event := <-watcher.events:
			watcher.handleEvent(event)
		case err := <-watcher.errors:
			watcher.handleError(err)
		case <-watcher.done:
			return
		}
	}
}

func (watcher *Watcher) startForwarder(source *fsnotify.Watcher) {
	go func() {
		for {
			select {
			case event, ok := <-source.Events:
				if !ok {
					return
				}
				select {
				case watcher.events <- event:
				case <-watcher.done:
					return
				}
			case err, ok := <-source.Errors:
				if !ok {
					return
				}
				select {
				case watcher.errors <- err:
				case <-watcher.done:
					return
				}
			case <-watcher.done:
				return
			}
		}
	}()
}

func (watcher *Watcher) handleEvent(raw fsnotify.Event) {
	watcher.registry.IncEventSeen()

	if raw.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(raw.Name); err == nil && info.IsDir() {
			if _, err := watcher.watchTree(raw.Name); err != nil {
				watcher.logger.Warn("watch new directory failed", map[string]string{
					"path":  raw.Name,
					"error": err.Error(),
				})
			}
		}
	}
	if raw.Op.Has(fsnotify.Remove) || raw.Op.Has(fsnotify.Rename) {
		watcher.releaseWatch(raw.Name)
	}

	kind, ok := kindForOp(raw.Op, raw.Name)
	if !ok {
		return
	}

	rel, ok := fsutil.RelativeTo(watcher.root, raw.Name)
	if !ok {
		watcher.logger.Debug("event outside root skipped", map[string]string{
			"path": raw.Name,
		})
		return
	}

	if !watcher.filter.Matches(rel) {
		watcher.registry.IncEventFiltered()
		if watcher.logger.Enabled(logging.LevelDebug) {
			watcher.logger.Debug("event filtered", map[string]string{
				"path": rel,
				"kind": string(kind),
			})
		}
		return
	}

	event := Event{
		Kind:      kind,
		Path:      raw.Name,
		RelPath:   rel,
		Timestamp: time.Now().UTC(),
	}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return
	}
	if watcher.debouncer == nil {
		watcher.mutex.Unlock()
		watcher.emit(event)
		return
	}
	if watcher.debouncer.schedule(raw.Name, event, watcher.flush) {
		watcher.registry.IncEventCoalesced()
	}
	watcher.mutex.Unlock()
}

func (watcher *Watcher) flush(path string, gen uint64) {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return
	}
	event, ok := watcher.debouncer.pop(path, gen)
	watcher.mutex.Unlock()

	if ok {
		watcher.emit(event)
	}
}

func (watcher *Watcher) emit(event Event) {
	watcher.registry.IncEventEmitted(string(event.Kind))
	watcher.logger.Info("event", map[string]string{
		"kind": string(event.Kind),
		"path": event.RelPath,
	})
	if watcher.onEvent != nil {
		watcher.onEvent(event)
	}
}

func (watcher *Watcher) handleError(err error) {
	if err == nil {
		return
	}
	watcher.logger.Error("watch stream error", map[string]string{
		"error": err.Error(),
	})
	if watcher.onError != nil {
		watcher.onError(err)
	}
}
