package sync_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bebohany644546654/physica/core"
	localstore "github.com/bebohany644546654/physica/storage/local"
	dummystore "github.com/bebohany644546654/physica/storage/remote/dummy"
	"github.com/bebohany644546654/physica/sync"
)

type note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

func (n note) EntityID() string { return n.ID }

type env struct {
	co      *sync.Coordinator
	remote  *dummystore.Store
	monitor *dummystore.Monitor
	dir     string
}

// newEnv builds a coordinator on a fresh (or given) local dir so tests
// can simulate app restarts by reopening the same dir.
func newEnv(t *testing.T, connected bool, dir string) *env {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	local, err := localstore.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	remote := dummystore.NewStore()
	monitor := dummystore.NewMonitor(connected)
	co := sync.NewCoordinator(local, remote, monitor, core.NopLogger{})
	t.Cleanup(co.Stop)
	return &env{co: co, remote: remote, monitor: monitor, dir: dir}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestOfflineWrites(t *testing.T) {
	e := newEnv(t, false, "")
	notes := sync.Register[note](e.co, "notes")
	e.co.Start()

	if notes.State() != sync.StateLocalOnly {
		t.Fatalf("State() = %s; want local-only", notes.State())
	}

	if err := notes.Upsert(note{ID: "n1", Body: "one"}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := notes.Upsert(note{ID: "n2", Body: "two"}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := notes.Delete("n1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if got := notes.PendingMutations(); got != 3 {
		t.Errorf("PendingMutations() = %d; want 3", got)
	}
	if _, ok := notes.Get("n1"); ok {
		t.Error("Get() returned a deleted entity")
	}
	if n, ok := notes.Get("n2"); !ok || n.Body != "two" {
		t.Errorf("Get(n2) = %+v, %t", n, ok)
	}
	// nothing reached the remote while offline
	if docs := e.remote.Docs("notes"); len(docs) != 0 {
		t.Errorf("remote has %d docs; want 0", len(docs))
	}

	// deleting an unknown id is a no-op, not an error
	if err := notes.Delete("ghost"); err != nil {
		t.Errorf("Delete(ghost) = %v; want nil", err)
	}
	if got := notes.PendingMutations(); got != 3 {
		t.Errorf("PendingMutations() after no-op delete = %d; want 3", got)
	}
}

func TestRestartKeepsDataAndQueue(t *testing.T) {
	e := newEnv(t, false, "")
	notes := sync.Register[note](e.co, "notes")
	e.co.Start()

	if err := notes.Upsert(note{ID: "n1", Body: "one"}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := notes.Upsert(note{ID: "n2", Body: "two"}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	e.co.Stop()

	// reopen the same data dir, as a process restart would
	e2 := newEnv(t, false, e.dir)
	notes2 := sync.Register[note](e2.co, "notes")
	e2.co.Start()

	if got := len(notes2.All()); got != 2 {
		t.Errorf("All() after restart = %d notes; want 2", got)
	}
	if got := notes2.PendingMutations(); got != 2 {
		t.Errorf("PendingMutations() after restart = %d; want 2", got)
	}

	// reconnecting now flushes the queued mutations in order
	e2.monitor.SetConnected(true)
	waitFor(t, func() bool { return notes2.PendingMutations() == 0 }, "queue flush")
	if got := len(e2.remote.Docs("notes")); got != 2 {
		t.Errorf("remote has %d docs; want 2", got)
	}
	if notes2.State() != sync.StateSyncing {
		t.Errorf("State() = %s; want syncing", notes2.State())
	}
}

func TestOnlineWritesPushImmediately(t *testing.T) {
	e := newEnv(t, true, "")
	notes := sync.Register[note](e.co, "notes")
	e.co.Start()

	if notes.State() != sync.StateSyncing {
		t.Fatalf("State() = %s; want syncing", notes.State())
	}

	if err := notes.Upsert(note{ID: "n1", Body: "one"}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	waitFor(t, func() bool { return len(e.remote.Docs("notes")) == 1 }, "remote upsert")
	waitFor(t, func() bool { return notes.PendingMutations() == 0 }, "queue drain")

	if err := notes.Delete("n1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	waitFor(t, func() bool { return len(e.remote.Docs("notes")) == 0 }, "remote delete")
}

func TestSnapshotAdoption(t *testing.T) {
	e := newEnv(t, true, "")
	notes := sync.Register[note](e.co, "notes")
	e.co.Start()

	// another device writes to the shared store
	doc, _ := json.Marshal(note{ID: "r1", Body: "from remote"})
	if err := e.remote.UpsertBatch(context.Background(), "notes", []sync.Document{{ID: "r1", Data: doc}}); err != nil {
		t.Fatalf("UpsertBatch() failed: %v", err)
	}

	waitFor(t, func() bool {
		_, ok := notes.Get("r1")
		return ok
	}, "snapshot adoption")

	// snapshots replace the cache wholesale: a remote delete disappears locally
	if err := e.remote.Delete(context.Background(), "notes", "r1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	waitFor(t, func() bool {
		_, ok := notes.Get("r1")
		return !ok
	}, "remote delete adoption")
}

func TestMalformedDocumentsSkipped(t *testing.T) {
	e := newEnv(t, true, "")
	notes := sync.Register[note](e.co, "notes")
	e.co.Start()

	good, _ := json.Marshal(note{ID: "ok", Body: "fine"})
	docs := []sync.Document{
		{ID: "ok", Data: good},
		{ID: "bad", Data: []byte(`{"id": 42`)},
	}
	if err := e.remote.UpsertBatch(context.Background(), "notes", docs); err != nil {
		t.Fatalf("UpsertBatch() failed: %v", err)
	}

	waitFor(t, func() bool {
		_, ok := notes.Get("ok")
		return ok
	}, "snapshot adoption")
	if _, ok := notes.Get("bad"); ok {
		t.Error("Get() returned the malformed document")
	}
	if got := notes.SkippedDocuments(); got < 1 {
		t.Errorf("SkippedDocuments() = %d; want >= 1", got)
	}
}

func TestDisconnectStopsAdoption(t *testing.T) {
	e := newEnv(t, true, "")
	notes := sync.Register[note](e.co, "notes")
	e.co.Start()

	if err := notes.Upsert(note{ID: "n1", Body: "one"}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	waitFor(t, func() bool { return len(e.remote.Docs("notes")) == 1 }, "remote upsert")

	e.monitor.SetConnected(false)
	if notes.State() != sync.StateLocalOnly {
		t.Fatalf("State() = %s; want local-only after disconnect", notes.State())
	}

	// remote changes made while disconnected must not leak in
	doc, _ := json.Marshal(note{ID: "sneaky", Body: "late"})
	_ = e.remote.UpsertBatch(context.Background(), "notes", []sync.Document{{ID: "sneaky", Data: doc}})
	time.Sleep(20 * time.Millisecond)
	if _, ok := notes.Get("sneaky"); ok {
		t.Error("adopted a snapshot while offline")
	}

	// they arrive on reconnect instead
	e.monitor.SetConnected(true)
	waitFor(t, func() bool {
		_, ok := notes.Get("sneaky")
		return ok
	}, "adoption after reconnect")
}

func TestPushFailureFallsBack(t *testing.T) {
	e := newEnv(t, true, "")
	notes := sync.Register[note](e.co, "notes")
	e.co.Start()

	if notes.State() != sync.StateSyncing {
		t.Fatalf("State() = %s; want syncing", notes.State())
	}

	// the store starts failing while the monitor still reports connected
	e.remote.SetAvailable(false)
	if err := notes.Upsert(note{ID: "n1", Body: "one"}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	waitFor(t, func() bool { return notes.State() == sync.StateLocalOnly }, "fallback to local-only")
	if got := notes.PendingMutations(); got != 1 {
		t.Errorf("PendingMutations() = %d; want the failed op kept", got)
	}

	// a manual sync retries once the store recovers
	e.remote.SetAvailable(true)
	e.co.Sync()
	waitFor(t, func() bool { return notes.PendingMutations() == 0 }, "retry flush")
	if got := len(e.remote.Docs("notes")); got != 1 {
		t.Errorf("remote has %d docs; want 1", got)
	}
	if notes.State() != sync.StateSyncing {
		t.Errorf("State() = %s; want syncing", notes.State())
	}
}

func TestRapidWritesReachRemoteInOrder(t *testing.T) {
	e := newEnv(t, true, "")
	notes := sync.Register[note](e.co, "notes")
	e.co.Start()

	waitFor(t, func() bool { return notes.State() == sync.StateSyncing }, "sync start")

	// stall the first push until the second write is queued behind it
	release := make(chan struct{})
	var stalled bool
	e.remote.SetBeforeUpsert(func(string) {
		if !stalled {
			stalled = true
			<-release
		}
	})

	if err := notes.Upsert(note{ID: "n1", Body: "v1"}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := notes.Upsert(note{ID: "n1", Body: "v2"}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	close(release)

	waitFor(t, func() bool { return notes.PendingMutations() == 0 }, "queue drain")
	docs := e.remote.Docs("notes")
	if len(docs) != 1 {
		t.Fatalf("remote has %d docs; want 1", len(docs))
	}
	var n note
	if err := json.Unmarshal(docs[0].Data, &n); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	// pushes go out in submission order, so the later write wins
	if n.Body != "v2" {
		t.Errorf("remote Body = %q; want v2", n.Body)
	}
}

func TestWritesDuringReconcileAreFlushed(t *testing.T) {
	e := newEnv(t, false, "")
	notes := sync.Register[note](e.co, "notes")
	e.co.Start()

	if err := notes.Upsert(note{ID: "a", Body: "queued offline"}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	// a write lands while the reconnect flush is mid-flight
	var injected bool
	e.remote.SetBeforeUpsert(func(string) {
		if !injected {
			injected = true
			if err := notes.Upsert(note{ID: "b", Body: "mid-flush"}); err != nil {
				t.Errorf("Upsert() during reconcile failed: %v", err)
			}
		}
	})

	e.monitor.SetConnected(true)

	waitFor(t, func() bool { return notes.PendingMutations() == 0 }, "full queue drain")
	if got := len(e.remote.Docs("notes")); got != 2 {
		t.Errorf("remote has %d docs; want 2", got)
	}
	if _, ok := notes.Get("b"); !ok {
		t.Error("Get(b) failed; the mid-flush write vanished after snapshot adoption")
	}
	if notes.State() != sync.StateSyncing {
		t.Errorf("State() = %s; want syncing", notes.State())
	}
}

func TestFirstConnectSeedsLocalData(t *testing.T) {
	dir := t.TempDir()
	local, err := localstore.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	// pre-existing device data with no mutation log, e.g. imported from
	// an older app version
	data, _ := json.Marshal([]note{{ID: "n1", Body: "old"}, {ID: "n2", Body: "older"}})
	if err = local.Save("notes", data); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	e := newEnv(t, true, dir)
	notes := sync.Register[note](e.co, "notes")
	e.co.Start()

	waitFor(t, func() bool { return notes.State() == sync.StateSyncing }, "sync start")
	if got := len(e.remote.Docs("notes")); got != 2 {
		t.Errorf("remote has %d docs after seeding; want 2", got)
	}
	if got := len(notes.All()); got != 2 {
		t.Errorf("All() = %d notes; want 2", got)
	}
}

func TestUpsertReplacesById(t *testing.T) {
	e := newEnv(t, false, "")
	notes := sync.Register[note](e.co, "notes")
	e.co.Start()

	_ = notes.Upsert(note{ID: "n1", Body: "one"})
	_ = notes.Upsert(note{ID: "n1", Body: "one, edited"})

	all := notes.All()
	if len(all) != 1 {
		t.Fatalf("All() = %d notes; want 1", len(all))
	}
	if all[0].Body != "one, edited" {
		t.Errorf("Body = %q; want the edited value", all[0].Body)
	}

	got := notes.Filter(func(n note) bool { return n.Body != "" })
	if len(got) != 1 {
		t.Errorf("Filter() = %d notes; want 1", len(got))
	}
}
