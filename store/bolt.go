package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/alimasry/go-collab-blocks/wire"
)

var (
	docsBucket = []byte("documents")
	opsBucket  = []byte("operations")
)

// boltRecord is the stored form of a DocumentInfo.
type boltRecord struct {
	Snapshot  []byte    `json:"snapshot"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BoltStore keeps documents in a single bbolt file: one record per
// document and a nested bucket of operations keyed by zero-padded index.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens or creates the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(docsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(opsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt store %s: %w", path, err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func getRecord(tx *bolt.Tx, id string) (*boltRecord, error) {
	raw := tx.Bucket(docsBucket).Get([]byte(id))
	if raw == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	var rec boltRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode document %q: %w", id, err)
	}
	return &rec, nil
}

func putRecord(tx *bolt.Tx, id string, rec *boltRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", id, err)
	}
	return tx.Bucket(docsBucket).Put([]byte(id), raw)
}

func (s *BoltStore) Create(_ context.Context, id string, snapshot []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(docsBucket).Get([]byte(id)) != nil {
			return fmt.Errorf("%w: %q", ErrExists, id)
		}
		if _, err := tx.Bucket(opsBucket).CreateBucketIfNotExists([]byte(id)); err != nil {
			return err
		}
		now := time.Now()
		return putRecord(tx, id, &boltRecord{Snapshot: snapshot, CreatedAt: now, UpdatedAt: now})
	})
}

func (s *BoltStore) Get(_ context.Context, id string) (*DocumentInfo, error) {
	var info *DocumentInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		rec, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		info = &DocumentInfo{ID: id, Snapshot: rec.Snapshot, Version: rec.Version, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt}
		return nil
	})
	return info, err
}

// List returns documents in key order, without snapshots.
func (s *BoltStore) List(_ context.Context) ([]DocumentInfo, error) {
	var result []DocumentInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(docsBucket).ForEach(func(k, v []byte) error {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode document %q: %w", k, err)
			}
			result = append(result, DocumentInfo{ID: string(k), Version: rec.Version, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt})
			return nil
		})
	})
	return result, err
}

func (s *BoltStore) UpdateSnapshot(_ context.Context, id string, snapshot []byte, version int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		rec, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		rec.Snapshot = snapshot
		rec.Version = version
		rec.UpdatedAt = time.Now()
		return putRecord(tx, id, rec)
	})
}

func (s *BoltStore) AppendOperation(_ context.Context, id string, op wire.Envelope, version int) error {
	encoded, err := op.Encode()
	if err != nil {
		return fmt.Errorf("encode op %d for %q: %w", version, id, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		ops := tx.Bucket(opsBucket).Bucket([]byte(id))
		if ops == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return ops.Put([]byte(zeroPad(version-1)), encoded)
	})
}

func (s *BoltStore) GetOperations(_ context.Context, id string, fromVersion int) ([]wire.Envelope, error) {
	var result []wire.Envelope
	err := s.db.View(func(tx *bolt.Tx) error {
		ops := tx.Bucket(opsBucket).Bucket([]byte(id))
		if ops == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		c := ops.Cursor()
		for k, v := c.Seek([]byte(zeroPad(fromVersion))); k != nil; k, v = c.Next() {
			op, err := wire.Decode(v)
			if err != nil {
				return fmt.Errorf("operation %s of %q: %w", k, id, err)
			}
			result = append(result, op)
		}
		return nil
	})
	return result, err
}
