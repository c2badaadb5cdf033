package testutil

import (
	"testing"
	"time"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/student"
	localstore "github.com/bebohany644546654/physica/storage/local"
	dummystore "github.com/bebohany644546654/physica/storage/remote/dummy"
	"github.com/bebohany644546654/physica/sync"
)

// SyncEnv wires a coordinator onto throwaway local and in-memory remote
// stores. Collections must be registered on the returned coordinator
// before calling its Start.
func SyncEnv(t *testing.T, connected bool) (*sync.Coordinator, *dummystore.Store, *dummystore.Monitor) {
	t.Helper()
	local, err := localstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	remote := dummystore.NewStore()
	monitor := dummystore.NewMonitor(connected)
	co := sync.NewCoordinator(local, remote, monitor, core.NopLogger{})
	t.Cleanup(co.Stop)
	return co, remote, monitor
}

// CreateStudent registers a student through the service and fails the
// test on any error.
func CreateStudent(
	t *testing.T,
	svc *student.Service,
	name, phone, parentPhone, group string,
	grade core.GradeLevel,
) student.Student {
	t.Helper()
	stu, _, err := svc.Create(student.NewStudent{
		Name:        name,
		Phone:       phone,
		ParentPhone: parentPhone,
		Group:       group,
		Grade:       grade,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return stu
}

// WaitFor polls cond until it holds or the deadline passes. Pushes and
// snapshot fanouts are asynchronous; assertions on their effects poll.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}
