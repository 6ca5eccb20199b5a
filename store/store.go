package store

import (
	"context"
	"errors"
	"time"

	"github.com/alimasry/go-collab-blocks/wire"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrExists   = errors.New("document already exists")
)

// DocumentInfo holds document metadata and its latest replica snapshot.
// Version counts the operations folded into Snapshot.
type DocumentInfo struct {
	ID        string
	Snapshot  []byte
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentStore abstracts document persistence: a snapshot per document
// plus the log of envelopes applied to it.
type DocumentStore interface {
	Create(ctx context.Context, id string, snapshot []byte) error
	Get(ctx context.Context, id string) (*DocumentInfo, error)
	List(ctx context.Context) ([]DocumentInfo, error)
	UpdateSnapshot(ctx context.Context, id string, snapshot []byte, version int) error
	AppendOperation(ctx context.Context, id string, op wire.Envelope, version int) error
	GetOperations(ctx context.Context, id string, fromVersion int) ([]wire.Envelope, error)
}
