// Package sync implements local-first replication of entity collections
// between a durable on-device store and a remote document store. Each
// collection runs the same three-state machine: LOCAL_ONLY while offline,
// RECONCILING while queued mutations are being pushed after a reconnect,
// and SYNCING once remote snapshots are being adopted.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Document is the wire shape of one entity inside a remote collection.
// Data holds the JSON-encoded entity; UpdatedAt is the remote write
// timestamp used for last-write-wins resolution.
type Document struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// SnapshotFunc receives the full current state of a collection, not a
// delta. Every call is a total replacement candidate.
type SnapshotFunc func(docs []Document)

type (
	// LocalStore persists raw collection payloads on the device.
	// Load never fails: absent or malformed data yields nil. Save must
	// be all-or-nothing per collection.
	LocalStore interface {
		Save(collection string, data []byte) error
		Load(collection string) []byte
	}

	// RemoteStore wraps the cloud document database.
	// Subscribe delivers full snapshots on every remote change and must
	// not hold internal locks while invoking fn; the returned
	// unsubscribe only deregisters and must not block on in-flight
	// deliveries. UpsertBatch and Delete are not retried here; the
	// coordinator owns retry via its queue.
	RemoteStore interface {
		Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (unsubscribe func(), err error)
		UpsertBatch(ctx context.Context, collection string, docs []Document) error
		Delete(ctx context.Context, collection, id string) error
	}

	// NetworkMonitor reports device connectivity. Change handlers fire
	// at most once per actual transition.
	NetworkMonitor interface {
		Status() bool
		OnChange(fn func(connected bool)) (remove func())
	}
)

// LocalPersistError reports that a mutation was applied in memory but
// could not be written to the device store. The in-memory state is NOT
// rolled back; the caller should warn that the change may not survive a
// restart.
type LocalPersistError struct {
	Collection string
	Err        error
}

func (e *LocalPersistError) Error() string {
	return fmt.Sprintf("persisting %q locally: %v", e.Collection, e.Err)
}

func (e *LocalPersistError) Unwrap() error { return e.Err }

// IsLocalPersist reports whether err (or anything it wraps) is a
// LocalPersistError. Callers treat it as a warning, not a failure.
func IsLocalPersist(err error) bool {
	for err != nil {
		if _, ok := err.(*LocalPersistError); ok {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
