package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alimasry/go-collab-blocks/wire"
)

// FirestoreStore is a Firestore-backed implementation of DocumentStore.
// Snapshots are stored as bytes on the document; each operation is a
// child document holding the encoded envelope.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a new FirestoreStore using the given Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client:     client,
		collection: "documents",
	}
}

func (s *FirestoreStore) docRef(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

func (s *FirestoreStore) opsCollection(docID string) *firestore.CollectionRef {
	return s.docRef(docID).Collection("operations")
}

func zeroPad(version int) string {
	return fmt.Sprintf("%010d", version)
}

func (s *FirestoreStore) Create(ctx context.Context, id string, snapshot []byte) error {
	now := time.Now()
	_, err := s.docRef(id).Create(ctx, map[string]interface{}{
		"snapshot":  snapshot,
		"version":   0,
		"createdAt": now,
		"updatedAt": now,
	})
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("%w: %q", ErrExists, id)
	}
	return err
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	snap, err := s.docRef(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return snapshotToDocInfo(id, snap, true), nil
}

func snapshotToDocInfo(id string, snap *firestore.DocumentSnapshot, withSnapshot bool) *DocumentInfo {
	data := snap.Data()
	version, _ := data["version"].(int64)
	createdAt, _ := data["createdAt"].(time.Time)
	updatedAt, _ := data["updatedAt"].(time.Time)
	info := &DocumentInfo{
		ID:        id,
		Version:   int(version),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if withSnapshot {
		info.Snapshot, _ = data["snapshot"].([]byte)
	}
	return info
}

func (s *FirestoreStore) List(ctx context.Context) ([]DocumentInfo, error) {
	iter := s.client.Collection(s.collection).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var result []DocumentInfo
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		result = append(result, *snapshotToDocInfo(snap.Ref.ID, snap, false))
	}
	return result, nil
}

func (s *FirestoreStore) UpdateSnapshot(ctx context.Context, id string, snapshot []byte, version int) error {
	_, err := s.docRef(id).Update(ctx, []firestore.Update{
		{Path: "snapshot", Value: snapshot},
		{Path: "version", Value: version},
		{Path: "updatedAt", Value: time.Now()},
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return err
}

func (s *FirestoreStore) AppendOperation(ctx context.Context, id string, op wire.Envelope, version int) error {
	encoded, err := op.Encode()
	if err != nil {
		return fmt.Errorf("encode op %d for %q: %w", version, id, err)
	}

	// Store with 0-based index: version 1 → index 0, matching MemoryStore's
	// history slice semantics where GetOperations(fromVersion) returns history[fromVersion:].
	index := version - 1
	_, err = s.opsCollection(id).Doc(zeroPad(index)).Set(ctx, map[string]interface{}{
		"type":     string(op.Type),
		"blockID":  op.BlockID,
		"envelope": string(encoded),
		"version":  version,
	})
	return err
}

func (s *FirestoreStore) GetOperations(ctx context.Context, id string, fromVersion int) ([]wire.Envelope, error) {
	// Verify document exists.
	_, err := s.docRef(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	iter := s.opsCollection(id).
		OrderBy(firestore.DocumentID, firestore.Asc).
		StartAt(zeroPad(fromVersion)).
		Documents(ctx)
	defer iter.Stop()

	var ops []wire.Envelope
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		op, err := snapshotToOperation(snap)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func snapshotToOperation(snap *firestore.DocumentSnapshot) (wire.Envelope, error) {
	encoded, ok := snap.Data()["envelope"].(string)
	if !ok {
		return wire.Envelope{}, fmt.Errorf("invalid envelope field in operation %s", snap.Ref.ID)
	}
	op, err := wire.Decode([]byte(encoded))
	if err != nil {
		return wire.Envelope{}, fmt.Errorf("operation %s: %w", snap.Ref.ID, err)
	}
	return op, nil
}
