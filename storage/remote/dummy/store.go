// Package dummystore provides in-memory fakes of the remote store and
// network monitor for tests and local development.
package dummystore

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/bebohany644546654/physica/sync"
)

// ErrUnavailable simulates a transient network failure.
var ErrUnavailable = errors.New("remote store unavailable")

type subscriber struct {
	id         int
	collection string
	fn         sync.SnapshotFunc
}

// Store is an in-memory document store with snapshot fanout. Toggle
// SetAvailable(false) to make every call fail like a network drop.
type Store struct {
	mu           stdsync.Mutex
	collections  map[string]map[string]sync.Document
	subs         []*subscriber
	nextSubID    int
	available    bool
	beforeUpsert func(collection string)
}

var _ sync.RemoteStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		collections: make(map[string]map[string]sync.Document),
		available:   true,
	}
}

func (s *Store) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = available
}

// SetBeforeUpsert installs a hook run at the start of every
// UpsertBatch, outside the store lock. Tests use it to stall or
// interleave in-flight pushes.
func (s *Store) SetBeforeUpsert(fn func(collection string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeUpsert = fn
}

func (s *Store) UpsertBatch(_ context.Context, collection string, docs []sync.Document) error {
	s.mu.Lock()
	hook := s.beforeUpsert
	s.mu.Unlock()
	if hook != nil {
		hook(collection)
	}

	s.mu.Lock()
	if !s.available {
		s.mu.Unlock()
		return ErrUnavailable
	}
	col := s.collections[collection]
	if col == nil {
		col = make(map[string]sync.Document)
		s.collections[collection] = col
	}
	// last value per id wins within the batch
	for _, doc := range docs {
		doc.UpdatedAt = time.Now().UTC()
		col[doc.ID] = doc
	}
	s.mu.Unlock()

	s.fanout(collection)
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	if !s.available {
		s.mu.Unlock()
		return ErrUnavailable
	}
	delete(s.collections[collection], id)
	s.mu.Unlock()

	s.fanout(collection)
	return nil
}

func (s *Store) Subscribe(_ context.Context, collection string, fn sync.SnapshotFunc) (func(), error) {
	s.mu.Lock()
	if !s.available {
		s.mu.Unlock()
		return nil, ErrUnavailable
	}
	sub := &subscriber{id: s.nextSubID, collection: collection, fn: fn}
	s.nextSubID++
	s.subs = append(s.subs, sub)
	docs := s.snapshotLocked(collection)
	s.mu.Unlock()

	fn(docs)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, other := range s.subs {
			if other.id == sub.id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}, nil
}

// Docs returns the collection contents for assertions.
func (s *Store) Docs(collection string) []sync.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(collection)
}

func (s *Store) snapshotLocked(collection string) []sync.Document {
	col := s.collections[collection]
	docs := make([]sync.Document, 0, len(col))
	for _, doc := range col {
		docs = append(docs, doc)
	}
	return docs
}

// fanout delivers snapshots outside the store lock, per the
// sync.RemoteStore contract.
func (s *Store) fanout(collection string) {
	s.mu.Lock()
	docs := s.snapshotLocked(collection)
	fns := make([]sync.SnapshotFunc, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.collection == collection {
			fns = append(fns, sub.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(docs)
	}
}

// Monitor is a hand-cranked network monitor.
type Monitor struct {
	mu        stdsync.Mutex
	connected bool
	handlers  map[int]func(bool)
	nextID    int
}

var _ sync.NetworkMonitor = (*Monitor)(nil)

func NewMonitor(connected bool) *Monitor {
	return &Monitor{connected: connected, handlers: make(map[int]func(bool))}
}

func (m *Monitor) Status() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *Monitor) OnChange(fn func(connected bool)) (remove func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, id)
	}
}

// SetConnected flips connectivity and fires handlers on an actual change.
func (m *Monitor) SetConnected(connected bool) {
	m.mu.Lock()
	if m.connected == connected {
		m.mu.Unlock()
		return
	}
	m.connected = connected
	fns := make([]func(bool), 0, len(m.handlers))
	for _, fn := range m.handlers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(connected)
	}
}
