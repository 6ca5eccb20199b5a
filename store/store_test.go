package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alimasry/go-collab-blocks/block"
	"github.com/alimasry/go-collab-blocks/contribution"
	"github.com/alimasry/go-collab-blocks/wire"
)

const emptySnapshot = `{"replicaID":0,"blocks":[]}`

// testOp returns a distinguishable envelope for the i-th operation.
func testOp(i int) wire.Envelope {
	return wire.NewBlockSet("line",
		block.VersionEntry{ReplicaID: 1, Nonce: block.Nonce{uint32(i), 0}},
		block.PropsDelta{"COUNT": float64(i)},
		contribution.Stamp{ReplicaID: 1, Timestamp: int64(i)})
}

var docSeq atomic.Int64

// uniqueDocID returns a unique document ID for test isolation.
func uniqueDocID(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("test-%d-%d", time.Now().UnixNano(), docSeq.Add(1))
}

// testDocumentStore runs the behavior every DocumentStore shares.
func testDocumentStore(t *testing.T, s DocumentStore) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		id := uniqueDocID(t)
		if err := s.Create(ctx, id, []byte(emptySnapshot)); err != nil {
			t.Fatal(err)
		}
		info, err := s.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if info.ID != id || info.Version != 0 || string(info.Snapshot) != emptySnapshot {
			t.Errorf("unexpected info: %+v", info)
		}
	})

	t.Run("duplicate create", func(t *testing.T) {
		id := uniqueDocID(t)
		s.Create(ctx, id, []byte(emptySnapshot))
		if err := s.Create(ctx, id, []byte(emptySnapshot)); !errors.Is(err, ErrExists) {
			t.Errorf("got %v, want %v", err, ErrExists)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := s.Get(ctx, "nonexistent-doc-xyz"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get: got %v, want %v", err, ErrNotFound)
		}
		if err := s.UpdateSnapshot(ctx, "nonexistent-doc-xyz", nil, 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateSnapshot: got %v, want %v", err, ErrNotFound)
		}
		if _, err := s.GetOperations(ctx, "nonexistent-doc-xyz", 0); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetOperations: got %v, want %v", err, ErrNotFound)
		}
	})

	t.Run("update snapshot", func(t *testing.T) {
		id := uniqueDocID(t)
		s.Create(ctx, id, []byte(emptySnapshot))
		next := `{"replicaID":0,"blocks":[["note",{},[[0,0,1]],{},false,null,null]]}`
		if err := s.UpdateSnapshot(ctx, id, []byte(next), 3); err != nil {
			t.Fatal(err)
		}
		info, err := s.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if string(info.Snapshot) != next || info.Version != 3 {
			t.Errorf("unexpected: snapshot=%s version=%d", info.Snapshot, info.Version)
		}
	})

	t.Run("operations", func(t *testing.T) {
		id := uniqueDocID(t)
		s.Create(ctx, id, []byte(emptySnapshot))
		for i := 1; i <= 3; i++ {
			if err := s.AppendOperation(ctx, id, testOp(i), i); err != nil {
				t.Fatal(err)
			}
		}

		ops, err := s.GetOperations(ctx, id, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) != 3 {
			t.Fatalf("got %d ops, want 3", len(ops))
		}

		ops, err = s.GetOperations(ctx, id, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) != 2 {
			t.Fatalf("got %d ops, want 2", len(ops))
		}
		if ops[0].Type != wire.BlockSet || ops[0].Props["COUNT"] != float64(2) {
			t.Errorf("first op from version 1 = %+v, want COUNT 2", ops[0])
		}
	})

	t.Run("list", func(t *testing.T) {
		ids := make([]string, 3)
		for i := range ids {
			ids[i] = fmt.Sprintf("%s-%d", uniqueDocID(t), i)
			s.Create(ctx, ids[i], []byte(emptySnapshot))
		}
		docs, err := s.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		found := 0
		for _, d := range docs {
			for _, id := range ids {
				if d.ID == id {
					found++
				}
			}
		}
		if found != 3 {
			t.Errorf("found %d of our 3 docs in list", found)
		}
	})
}
