package sync

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type opKind string

const (
	opUpsert opKind = "upsert"
	opDelete opKind = "delete"
)

// operation is one queued local mutation awaiting a remote push.
type operation struct {
	Seq      int64     `json:"seq"`
	Kind     opKind    `json:"kind"`
	Doc      Document  `json:"doc,omitempty"`
	ID       string    `json:"id,omitempty"`
	QueuedAt time.Time `json:"queuedAt"`
}

// opQueue is the persisted mutation log of one collection. It survives
// restarts through the LocalStore under "<collection>.pending" and is
// flushed in submission order on reconnect.
//
// Not safe for concurrent use; callers hold the collection mutex.
type opQueue struct {
	key   string
	local LocalStore
	ops   []operation
	seq   int64
}

func newOpQueue(local LocalStore, collection string) *opQueue {
	q := &opQueue{
		key:   collection + ".pending",
		local: local,
	}
	if data := local.Load(q.key); data != nil {
		// a malformed queue is dropped, not fatal: the entities
		// themselves are still in the local collection file
		_ = json.Unmarshal(data, &q.ops)
	}
	for _, op := range q.ops {
		if op.Seq > q.seq {
			q.seq = op.Seq
		}
	}
	return q
}

func (q *opQueue) append(op operation) (operation, error) {
	q.seq++
	op.Seq = q.seq
	op.QueuedAt = time.Now().UTC()
	q.ops = append(q.ops, op)
	return op, q.persist()
}

// head returns the oldest queued operation.
func (q *opQueue) head() (operation, bool) {
	if len(q.ops) == 0 {
		return operation{}, false
	}
	return q.ops[0], true
}

// all returns the queued operations in submission order.
func (q *opQueue) all() []operation {
	ops := make([]operation, len(q.ops))
	copy(ops, q.ops)
	return ops
}

func (q *opQueue) len() int { return len(q.ops) }

// remove drops the operation with the given sequence number.
func (q *opQueue) remove(seq int64) error {
	for i, op := range q.ops {
		if op.Seq == seq {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			return q.persist()
		}
	}
	return nil
}

func (q *opQueue) persist() error {
	data, err := json.Marshal(q.ops)
	if err != nil {
		return errors.Wrap(err, "marshaling pending queue")
	}
	return q.local.Save(q.key, data)
}
