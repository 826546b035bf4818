package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	bolt "go.etcd.io/bbolt"
)

var secretsBucket = []byte("secrets")

// BoltStore keeps secrets in a single bbolt bucket in a 0600 file.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// OpenBoltStore opens or creates the file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: create dir: %v", common.ErrStoreUnavailable, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrStoreUnavailable, path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(secretsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: init bucket: %v", common.ErrStoreUnavailable, err)
	}

	return &BoltStore{db: db, path: path}, nil
}

func (s *BoltStore) Path() string { return s.path }

func (s *BoltStore) Get(_ context.Context, name string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(secretsBucket)
		if b == nil {
			return common.ErrNotFound
		}
		v := b.Get([]byte(name))
		if v == nil {
			return common.ErrNotFound
		}
		// v is only valid inside the transaction.
		out = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get %s: %v", common.ErrStoreUnavailable, name, err)
	}
	return out, nil
}

func (s *BoltStore) Set(_ context.Context, name string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(secretsBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(name), append([]byte{}, value...))
	})
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", common.ErrStoreUnavailable, name, err)
	}
	return nil
}

func (s *BoltStore) Delete(_ context.Context, name string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(secretsBucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", common.ErrStoreUnavailable, name, err)
	}
	return nil
}

func (s *BoltStore) Clear(_ context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(secretsBucket)
		if b == nil {
			return nil
		}

		var keys [][]byte
		if err := b.ForEach(func(k, _ []byte) error {
			keys = append(keys, append([]byte{}, k...))
			return nil
		}); err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: clear: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
