package sync

import (
	"context"
	"encoding/json"
	stdsync "sync"
	"time"

	"github.com/pkg/errors"
)

// State of one collection's replication machine.
type State int32

const (
	// StateLocalOnly: no remote subscription active; offline or not yet connected.
	StateLocalOnly State = iota
	// StateReconciling: queued local mutations are being pushed before
	// remote snapshots are trusted again.
	StateReconciling
	// StateSyncing: remote subscription active, snapshots are authoritative.
	StateSyncing
)

func (s State) String() string {
	switch s {
	case StateLocalOnly:
		return "local-only"
	case StateReconciling:
		return "reconciling"
	case StateSyncing:
		return "syncing"
	}
	return "unknown"
}

// Entity is anything replicable: it only needs a stable id.
type Entity interface {
	EntityID() string
}

// Collection is the typed in-memory cache of one entity collection and
// the authority for it while the app runs; the local and remote stores
// are replicas. All mutations go through Upsert/Delete; reads are pure
// filters over the cached slice, which is replaced wholesale on every
// update and never mutated in place.
type Collection[T Entity] struct {
	name string
	co   *Coordinator

	flushCh chan struct{}

	mu      stdsync.Mutex
	state   State
	items   []T
	queue   *opQueue
	unsub   func()
	gen     int // subscription generation, guards late snapshots
	skipped int // malformed remote documents dropped so far
	seeded  bool
}

// Register creates the collection, loads its last persisted state and
// pending mutation queue from the local store, and attaches it to the
// coordinator in StateLocalOnly. Must be called before Coordinator.Start.
func Register[T Entity](co *Coordinator, name string) *Collection[T] {
	c := &Collection[T]{
		name:    name,
		co:      co,
		flushCh: make(chan struct{}, 1),
		queue:   newOpQueue(co.local, name),
		seeded:  co.local.Load(name+".seeded") != nil,
	}
	if data := co.local.Load(name); data != nil {
		// malformed local data resolves to an empty collection
		_ = json.Unmarshal(data, &c.items)
	}
	co.add(c)
	go c.flushLoop()
	return c
}

func (c *Collection[T]) collectionName() string { return c.name }

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SkippedDocuments counts remote documents dropped because they failed
// to decode. Exposed for diagnostics.
func (c *Collection[T]) SkippedDocuments() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skipped
}

// PendingMutations reports how many local mutations still await a
// remote push.
func (c *Collection[T]) PendingMutations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.len()
}

// All returns the current cached snapshot. The slice is replaced, never
// mutated, on every update; callers must treat it as read-only.
func (c *Collection[T]) All() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.EntityID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Filter returns the items satisfying pred, in cache order.
func (c *Collection[T]) Filter(pred func(T) bool) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []T
	for _, it := range c.items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

// Upsert applies the mutation optimistically: memory and local store
// first, remote push immediately when syncing, queued otherwise. A
// LocalPersistError return means the change is live in memory but may
// not survive a restart.
func (c *Collection[T]) Upsert(item T) error {
	doc, err := encodeDoc(item)
	if err != nil {
		return errors.Wrapf(err, "encoding %s document", c.name)
	}

	c.mu.Lock()
	next := make([]T, 0, len(c.items)+1)
	var replaced bool
	for _, it := range c.items {
		if it.EntityID() == item.EntityID() {
			next = append(next, item)
			replaced = true
		} else {
			next = append(next, it)
		}
	}
	if !replaced {
		next = append(next, item)
	}
	c.items = next

	warn := c.persistLocked()
	_, qErr := c.queue.append(operation{Kind: opUpsert, Doc: doc, ID: doc.ID})
	c.mu.Unlock()

	c.signalFlush()
	if warn != nil {
		return warn
	}
	if qErr != nil {
		return &LocalPersistError{Collection: c.name, Err: qErr}
	}
	return nil
}

// Delete hard-removes the entity. Unknown ids are a no-op.
func (c *Collection[T]) Delete(id string) error {
	c.mu.Lock()
	next := make([]T, 0, len(c.items))
	var found bool
	for _, it := range c.items {
		if it.EntityID() == id {
			found = true
			continue
		}
		next = append(next, it)
	}
	if !found {
		c.mu.Unlock()
		return nil
	}
	c.items = next

	warn := c.persistLocked()
	_, qErr := c.queue.append(operation{Kind: opDelete, ID: id})
	c.mu.Unlock()

	c.signalFlush()
	if warn != nil {
		return warn
	}
	if qErr != nil {
		return &LocalPersistError{Collection: c.name, Err: qErr}
	}
	return nil
}

// signalFlush nudges the flusher. The channel is buffered so a signal
// is never lost and never blocks the caller.
func (c *Collection[T]) signalFlush() {
	select {
	case c.flushCh <- struct{}{}:
	default:
	}
}

// flushLoop is the single goroutine pushing this collection's queued
// mutations to the remote. One flusher per collection keeps cross-batch
// ordering: a later write never reaches the remote before an earlier one.
func (c *Collection[T]) flushLoop() {
	for {
		select {
		case <-c.co.ctx.Done():
			return
		case <-c.flushCh:
		}
		c.flush()
	}
}

// flush drains the queue head-first while syncing. On failure the
// operation stays queued and the collection steps back to LOCAL_ONLY
// until the next reconnect.
func (c *Collection[T]) flush() {
	for {
		c.mu.Lock()
		if c.state != StateSyncing {
			c.mu.Unlock()
			return
		}
		op, ok := c.queue.head()
		c.mu.Unlock()
		if !ok {
			return
		}

		var err error
		switch op.Kind {
		case opUpsert:
			err = c.co.remote.UpsertBatch(c.co.ctx, c.name, []Document{op.Doc})
		case opDelete:
			err = c.co.remote.Delete(c.co.ctx, c.name, op.ID)
		}

		c.mu.Lock()
		if err != nil {
			c.co.log.Warn("remote push failed, keeping mutation queued",
				map[string]interface{}{"collection": c.name, "op": string(op.Kind), "id": op.ID, "error": err.Error()})
			c.stopSyncLocked()
			c.mu.Unlock()
			return
		}
		_ = c.queue.remove(op.Seq)
		c.mu.Unlock()
	}
}

// reconcile pushes the mutation log in submission order, then (re)subscribes.
// Any remote failure leaves the collection LOCAL_ONLY; the next
// connectivity event retries.
func (c *Collection[T]) reconcile(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateLocalOnly {
		c.mu.Unlock()
		return
	}
	c.state = StateReconciling
	var seed []Document
	if !c.seeded && c.queue.len() == 0 {
		// first sync of a device carrying pre-existing local data:
		// without a mutation log the whole collection goes up
		seed = c.docsLocked()
	}
	c.mu.Unlock()

	fail := func(err error) {
		c.co.log.Warn("reconcile failed, staying local-only",
			map[string]interface{}{"collection": c.name, "error": err.Error()})
		c.mu.Lock()
		if c.state == StateReconciling {
			c.state = StateLocalOnly
		}
		c.mu.Unlock()
	}

	// queued mutations go out before any remote snapshot is trusted.
	// The head is re-read every round so writes landing mid-flush drain
	// too; the queue is verifiably empty before subscribing.
	for {
		c.mu.Lock()
		op, ok := c.queue.head()
		c.mu.Unlock()
		if !ok {
			break
		}
		var err error
		switch op.Kind {
		case opUpsert:
			err = c.co.remote.UpsertBatch(ctx, c.name, []Document{op.Doc})
		case opDelete:
			err = c.co.remote.Delete(ctx, c.name, op.ID)
		}
		if err != nil {
			fail(err)
			return
		}
		c.mu.Lock()
		_ = c.queue.remove(op.Seq)
		c.mu.Unlock()
	}

	if len(seed) > 0 {
		if err := c.co.remote.UpsertBatch(ctx, c.name, seed); err != nil {
			fail(err)
			return
		}
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	unsub, err := c.co.remote.Subscribe(ctx, c.name, func(docs []Document) {
		c.adopt(gen, docs)
	})
	if err != nil {
		fail(err)
		return
	}

	c.mu.Lock()
	if c.state != StateReconciling || gen != c.gen {
		// went offline while subscribing
		c.mu.Unlock()
		unsub()
		return
	}
	c.unsub = unsub
	c.state = StateSyncing
	if !c.seeded {
		c.seeded = true
		_ = c.co.local.Save(c.name+".seeded", []byte("1"))
	}
	c.mu.Unlock()

	// anything queued while subscribing goes out now
	c.signalFlush()
}

// adopt replaces the cache with a remote snapshot and persists it,
// keeping any still-queued local mutations applied on top so an
// unpushed write never vanishes from the cache. The mutex serializes
// snapshot application: one callback is processed fully before the next
// starts. Malformed documents are skipped and counted, never abort the
// rest of the snapshot.
func (c *Collection[T]) adopt(gen int, docs []Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state == StateLocalOnly {
		// late snapshot from a dead subscription
		return
	}
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := json.Unmarshal(doc.Data, &item); err != nil {
			c.skipped++
			c.co.log.Warn("skipping malformed remote document",
				map[string]interface{}{"collection": c.name, "id": doc.ID, "error": err.Error()})
			continue
		}
		items = append(items, item)
	}

	// queued mutations not yet pushed win over the snapshot: they are
	// already on their way to the remote and will appear in a later one
	for _, op := range c.queue.all() {
		switch op.Kind {
		case opUpsert:
			var item T
			if err := json.Unmarshal(op.Doc.Data, &item); err != nil {
				continue
			}
			var replaced bool
			for i := range items {
				if items[i].EntityID() == item.EntityID() {
					items[i] = item
					replaced = true
					break
				}
			}
			if !replaced {
				items = append(items, item)
			}
		case opDelete:
			for i := range items {
				if items[i].EntityID() == op.ID {
					items = append(items[:i], items[i+1:]...)
					break
				}
			}
		}
	}

	c.items = items
	if warn := c.persistLocked(); warn != nil {
		c.co.log.Warn(warn.Error())
	}
}

// goOffline drops the remote subscription synchronously and keeps the
// in-memory/local state as the source of truth.
func (c *Collection[T]) goOffline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopSyncLocked()
}

func (c *Collection[T]) close() { c.goOffline() }

func (c *Collection[T]) stopSyncLocked() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	c.gen++
	c.state = StateLocalOnly
}

func (c *Collection[T]) persistLocked() error {
	data, err := json.Marshal(c.items)
	if err == nil {
		err = c.co.local.Save(c.name, data)
	}
	if err != nil {
		return &LocalPersistError{Collection: c.name, Err: err}
	}
	return nil
}

func (c *Collection[T]) docsLocked() []Document {
	docs := make([]Document, 0, len(c.items))
	for _, it := range c.items {
		if doc, err := encodeDoc(it); err == nil {
			docs = append(docs, doc)
		}
	}
	return docs
}

func encodeDoc[T Entity](item T) (Document, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: item.EntityID(), Data: data, UpdatedAt: time.Now().UTC()}, nil
}
