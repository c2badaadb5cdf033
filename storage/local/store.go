// Package localstore persists collection payloads as JSON files on the
// device, one file per collection.
package localstore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bebohany644546654/physica/sync"
)

type fileStore struct {
	dir string
}

var _ sync.LocalStore = (*fileStore)(nil)

// NewFileStore creates the data dir if needed.
func NewFileStore(dir string) (sync.LocalStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "creating data dir %s", dir)
	}
	return &fileStore{dir: dir}, nil
}

// Save writes via a temp file + rename so a failed write never corrupts
// the previously persisted value.
func (s *fileStore) Save(collection string, data []byte) error {
	path := s.path(collection)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "saving %s", collection)
	}
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "saving %s", collection)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "saving %s", collection)
	}
	return nil
}

// Load never fails: absent or unreadable data resolves to nil.
func (s *fileStore) Load(collection string) []byte {
	data, err := os.ReadFile(s.path(collection))
	if err != nil || len(data) == 0 {
		return nil
	}
	return data
}

func (s *fileStore) path(collection string) string {
	// collection names are code-controlled, but keep the filename tame
	name := strings.ReplaceAll(collection, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, name+".json")
}
