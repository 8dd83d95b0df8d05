// Package monitor watches filesystem paths and delivers normalized file
// events to a sink.
//
// The monitor is an external collaborator of the sync core: a typical
// sink maps the event path to a file id through the local registry and
// drives metadata store mutations. Events are normalized one at a time on
// a single consumer goroutine; ordering across distinct watched paths is
// only as strong as the OS notification order, and no batching happens.
package monitor

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/dittosync/internal/logger"
)

// EventKind classifies a normalized file event.
type EventKind int

const (
	// EventCreated means a file appeared
	EventCreated EventKind = iota

	// EventModified means a file's content changed
	EventModified

	// EventRemoved means a file disappeared
	EventRemoved

	// EventRenamed means a file moved away from RenamedFrom. The
	// destination is unknown at the notification layer; a later
	// EventCreated carries the new path.
	EventRenamed

	// EventMetadata means permissions or attributes changed
	EventMetadata

	// EventOther is anything the backend reports that fits no category
	EventOther
)

// FileEvent is a normalized file change.
type FileEvent struct {
	// Path is the primary path the event concerns
	Path string

	// Kind classifies the change
	Kind EventKind

	// RenamedFrom is the old path for EventRenamed
	RenamedFrom string

	// OccurredAt is when the monitor observed the event
	OccurredAt time.Time
}

// Sink receives normalized file events. Handlers run on the monitor's
// consumer goroutine and must not block indefinitely.
type Sink interface {
	Handle(event FileEvent)
}

// ChannelSink forwards events to a channel, dropping them when the
// channel is full. Useful for tests and for bridging into a select loop.
type ChannelSink struct {
	C chan FileEvent
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{C: make(chan FileEvent, buffer)}
}

// Handle implements Sink.
func (s *ChannelSink) Handle(event FileEvent) {
	select {
	case s.C <- event:
	default:
	}
}

// MonitorError is a domain error from the file monitor.
type MonitorError struct {
	// Reason describes what went wrong
	Reason string
}

// Error implements the error interface.
func (e *MonitorError) Error() string {
	return e.Reason
}

// Monitor keeps platform-specific watch handles alive and fans their
// notifications into one consumer goroutine feeding the sink.
//
// It does not assume directory ownership: callers watch arbitrary file
// paths or directories and opt into recursion explicitly.
type Monitor struct {
	watcher *fsnotify.Watcher
	sink    Sink

	// wg tracks the consumer goroutine for cooperative shutdown
	wg sync.WaitGroup

	// stopOnce makes Stop safe to call more than once
	stopOnce sync.Once
}

// Watch starts monitoring the provided paths, non-recursively, and
// forwards normalized events to the sink. Fails when no paths are given
// or when a path cannot be watched.
func Watch(paths []string, sink Sink) (*Monitor, error) {
	if len(paths) == 0 {
		return nil, &MonitorError{Reason: "no paths provided to monitor"}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	m := &Monitor{watcher: watcher, sink: sink}
	m.wg.Add(1)
	go m.consume()
	return m, nil
}

// WatchRecursive starts monitoring a directory tree: the root and every
// subdirectory below it. Recursion is a snapshot at start time;
// directories created later are not picked up automatically.
func WatchRecursive(root string, sink Sink) (*Monitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, err
	}

	m := &Monitor{watcher: watcher, sink: sink}
	m.wg.Add(1)
	go m.consume()
	return m, nil
}

// consume drains the watcher's channels until both close, delivering one
// normalized event at a time. Watcher errors are logged and never stop
// consumption.
func (m *Monitor) consume() {
	defer m.wg.Done()

	events := m.watcher.Events
	errors := m.watcher.Errors
	for events != nil || errors != nil {
		select {
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			m.sink.Handle(normalize(event, time.Now()))
		case err, ok := <-errors:
			if !ok {
				errors = nil
				continue
			}
			logger.Warn("File watcher error: %v", err)
		}
	}
}

// Stop closes the watch handles and waits for the consumer goroutine to
// drain and exit. Safe to call multiple times.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.watcher.Close()
	})
	m.wg.Wait()
}

// normalize maps a backend notification to a FileEvent.
//
// Backends report a rename as the old path moving away; the new path
// arrives separately as a create. Chmod covers metadata-only changes.
func normalize(event fsnotify.Event, now time.Time) FileEvent {
	normalized := FileEvent{Path: event.Name, OccurredAt: now}

	switch {
	case event.Has(fsnotify.Create):
		normalized.Kind = EventCreated
	case event.Has(fsnotify.Write):
		normalized.Kind = EventModified
	case event.Has(fsnotify.Remove):
		normalized.Kind = EventRemoved
	case event.Has(fsnotify.Rename):
		normalized.Kind = EventRenamed
		normalized.RenamedFrom = event.Name
	case event.Has(fsnotify.Chmod):
		normalized.Kind = EventMetadata
	default:
		normalized.Kind = EventOther
	}

	return normalized
}
