package remotestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/sync"
)

type pgStore struct {
	db   *sqlx.DB
	poll time.Duration
	log  core.Logger
}

var _ sync.RemoteStore = (*pgStore)(nil)

func NewPgStore(db *sqlx.DB, pollInterval time.Duration, log core.Logger) sync.RemoteStore {
	return &pgStore{db: db, poll: pollInterval, log: log}
}

type docRow struct {
	ID        string    `db:"id"`
	Data      []byte    `db:"data"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UpsertBatch writes all docs in one transaction. updated_at is set by
// the store at write time; that timestamp is the last-write-wins
// granularity for concurrent edits.
func (s *pgStore) UpsertBatch(ctx context.Context, collection string, docs []sync.Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id)
		DO UPDATE SET data = excluded.data, updated_at = now()`
	for _, doc := range docs {
		if _, err = tx.ExecContext(ctx, q, collection, doc.ID, []byte(doc.Data)); err != nil {
			return errors.Wrapf(err, "upserting %s/%s", collection, doc.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "committing upsert batch")
}

func (s *pgStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	return errors.Wrapf(err, "deleting %s/%s", collection, id)
}

// Subscribe polls the collection and delivers a full snapshot whenever
// its contents change. The first snapshot goes out before Subscribe
// returns. Unsubscribing only stops the poll loop; it never blocks on
// an in-flight delivery.
func (s *pgStore) Subscribe(ctx context.Context, collection string, fn sync.SnapshotFunc) (func(), error) {
	docs, sig, err := s.fetch(ctx, collection)
	if err != nil {
		return nil, err
	}
	fn(docs)

	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		lastSig := sig
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
			}
			docs, sig, err := s.fetch(subCtx, collection)
			if err != nil {
				if subCtx.Err() == nil {
					s.log.Warn("snapshot poll failed",
						map[string]interface{}{"collection": collection, "error": err.Error()})
				}
				continue
			}
			if sig == lastSig {
				continue
			}
			lastSig = sig
			fn(docs)
		}
	}()
	return cancel, nil
}

func (s *pgStore) fetch(ctx context.Context, collection string) ([]sync.Document, uint64, error) {
	var rows []docRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, data, updated_at FROM documents WHERE collection = $1 ORDER BY id`, collection)
	if err != nil && err != sql.ErrNoRows {
		return nil, 0, errors.Wrapf(err, "fetching %s", collection)
	}

	docs := make([]sync.Document, 0, len(rows))
	h := fnv.New64a()
	for _, r := range rows {
		docs = append(docs, sync.Document{
			ID:        r.ID,
			Data:      json.RawMessage(r.Data),
			UpdatedAt: r.UpdatedAt,
		})
		_, _ = h.Write([]byte(r.ID))
		_, _ = h.Write([]byte(strconv.FormatInt(r.UpdatedAt.UnixNano(), 10)))
	}
	return docs, h.Sum64(), nil
}
