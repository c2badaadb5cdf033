package sync

import (
	"context"
	stdsync "sync"

	"github.com/bebohany644546654/physica/core"
)

// syncable is the untyped face of a Collection[T], letting the
// coordinator drive collections of different entity types.
type syncable interface {
	collectionName() string
	reconcile(ctx context.Context)
	goOffline()
	close()

	State() State
	PendingMutations() int
	SkippedDocuments() int
}

// Coordinator owns the connectivity subscription and drives the state
// machine of every registered collection. It is explicitly constructed
// and injected; there is no package-level mutable state.
type Coordinator struct {
	local   LocalStore
	remote  RemoteStore
	monitor NetworkMonitor
	log     core.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu            stdsync.Mutex
	cols          []syncable
	removeMonitor func()
	started       bool
}

func NewCoordinator(local LocalStore, remote RemoteStore, monitor NetworkMonitor, log core.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		local:   local,
		remote:  remote,
		monitor: monitor,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (co *Coordinator) add(c syncable) {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.cols = append(co.cols, c)
}

func (co *Coordinator) collections() []syncable {
	co.mu.Lock()
	defer co.mu.Unlock()
	cols := make([]syncable, len(co.cols))
	copy(cols, co.cols)
	return cols
}

// Start queries the monitor once, and that first status is authoritative
// for the initial subscribe decision. It then reacts to transitions.
// Collections must be registered before Start.
func (co *Coordinator) Start() {
	co.mu.Lock()
	if co.started {
		co.mu.Unlock()
		return
	}
	co.started = true
	co.mu.Unlock()

	if co.monitor.Status() {
		co.reconcileAll()
	}

	remove := co.monitor.OnChange(func(connected bool) {
		if connected {
			co.log.Info("connectivity restored, reconciling")
			co.reconcileAll()
		} else {
			co.log.Info("connectivity lost, falling back to local store")
			co.offlineAll()
		}
	})

	co.mu.Lock()
	co.removeMonitor = remove
	co.mu.Unlock()
}

// Stop tears everything down. Remote listeners are removed synchronously
// so late-arriving snapshots cannot resurrect state after shutdown.
func (co *Coordinator) Stop() {
	co.mu.Lock()
	remove := co.removeMonitor
	co.removeMonitor = nil
	co.mu.Unlock()

	if remove != nil {
		remove()
	}
	co.cancel()
	for _, c := range co.collections() {
		c.close()
	}
}

// Sync forces an immediate reconcile pass over every collection, the
// app's manual "sync now" action.
func (co *Coordinator) Sync() {
	co.reconcileAll()
}

// CollectionStatus is a point-in-time view of one collection's
// replication machine.
type CollectionStatus struct {
	Collection string `json:"collection"`
	State      string `json:"state"`
	Pending    int    `json:"pendingMutations"`
	Skipped    int    `json:"skippedDocuments"`
}

// Report returns the status of every registered collection.
func (co *Coordinator) Report() []CollectionStatus {
	cols := co.collections()
	statuses := make([]CollectionStatus, 0, len(cols))
	for _, c := range cols {
		statuses = append(statuses, CollectionStatus{
			Collection: c.collectionName(),
			State:      c.State().String(),
			Pending:    c.PendingMutations(),
			Skipped:    c.SkippedDocuments(),
		})
	}
	return statuses
}

func (co *Coordinator) reconcileAll() {
	for _, c := range co.collections() {
		c.reconcile(co.ctx)
	}
}

func (co *Coordinator) offlineAll() {
	for _, c := range co.collections() {
		c.goOffline()
	}
}
