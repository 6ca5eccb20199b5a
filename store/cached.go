package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-logr/logr"

	"github.com/alimasry/go-collab-blocks/wire"
)

// dirtyState tracks what needs flushing for a single document.
type dirtyState struct {
	snapshotDirty bool // snapshot/version needs writing to backing store
	flushedOps    int  // number of ops already flushed (index into history)
	created       bool // doc created locally but not yet in backing store
}

// CachedStore wraps a backing DocumentStore with an in-memory cache.
// All reads and writes are served from the cache. Dirty documents are
// flushed to the backing store periodically in the background, each write
// retried with exponential backoff before it is left for the next cycle.
type CachedStore struct {
	cache         *MemoryStore
	backing       DocumentStore
	log           logr.Logger
	mu            sync.Mutex
	dirty         map[string]*dirtyState
	flushInterval time.Duration
	newBackOff    func() backoff.BackOff
	stop          chan struct{}
	done          chan struct{}
}

// NewCachedStore creates a CachedStore that caches in memory and flushes
// dirty documents to the backing store every flushInterval.
func NewCachedStore(backing DocumentStore, flushInterval time.Duration, log logr.Logger) *CachedStore {
	return newCachedStore(backing, flushInterval, log, func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 100 * time.Millisecond
		b.MaxElapsedTime = flushInterval
		return backoff.WithMaxRetries(b, 3)
	})
}

func newCachedStore(backing DocumentStore, flushInterval time.Duration, log logr.Logger, newBackOff func() backoff.BackOff) *CachedStore {
	cs := &CachedStore{
		cache:         NewMemoryStore(),
		backing:       backing,
		log:           log.WithName("cached-store"),
		dirty:         make(map[string]*dirtyState),
		flushInterval: flushInterval,
		newBackOff:    newBackOff,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go cs.flushLoop()
	return cs
}

func (cs *CachedStore) Create(ctx context.Context, id string, snapshot []byte) error {
	if _, err := cs.backing.Get(ctx, id); err == nil {
		return fmt.Errorf("%w: %q", ErrExists, id)
	}
	if err := cs.cache.Create(ctx, id, snapshot); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.dirty[id] = &dirtyState{snapshotDirty: true, created: true}
	cs.mu.Unlock()
	return nil
}

func (cs *CachedStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	info, err := cs.cache.Get(ctx, id)
	if err == nil {
		return info, nil
	}
	// Cache miss: load from backing store.
	if err := cs.loadFromBacking(ctx, id); err != nil {
		return nil, err
	}
	return cs.cache.Get(ctx, id)
}

// List reports the backing store's documents plus those not yet flushed.
func (cs *CachedStore) List(ctx context.Context) ([]DocumentInfo, error) {
	docs, err := cs.backing.List(ctx)
	if err != nil {
		return nil, err
	}
	listed := make(map[string]bool, len(docs))
	for _, doc := range docs {
		listed[doc.ID] = true
	}
	cached, err := cs.cache.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, doc := range cached {
		if !listed[doc.ID] {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (cs *CachedStore) UpdateSnapshot(ctx context.Context, id string, snapshot []byte, version int) error {
	// Ensure doc is in cache.
	if _, err := cs.Get(ctx, id); err != nil {
		return err
	}
	if err := cs.cache.UpdateSnapshot(ctx, id, snapshot, version); err != nil {
		return err
	}
	cs.mu.Lock()
	ds := cs.dirty[id]
	if ds == nil {
		cs.cache.mu.RLock()
		flushed := len(cs.cache.docs[id].history)
		cs.cache.mu.RUnlock()
		ds = &dirtyState{flushedOps: flushed}
		cs.dirty[id] = ds
	}
	ds.snapshotDirty = true
	cs.mu.Unlock()
	return nil
}

func (cs *CachedStore) AppendOperation(ctx context.Context, id string, op wire.Envelope, version int) error {
	// Ensure doc is in cache.
	if _, err := cs.Get(ctx, id); err != nil {
		return err
	}

	// Snapshot history length before append so we know how many ops were
	// already flushed if this doc was previously clean (removed from dirty map).
	cs.cache.mu.RLock()
	prevLen := len(cs.cache.docs[id].history)
	cs.cache.mu.RUnlock()

	if err := cs.cache.AppendOperation(ctx, id, op, version); err != nil {
		return err
	}
	cs.mu.Lock()
	if cs.dirty[id] == nil {
		cs.dirty[id] = &dirtyState{flushedOps: prevLen}
	}
	cs.mu.Unlock()
	return nil
}

func (cs *CachedStore) GetOperations(ctx context.Context, id string, fromVersion int) ([]wire.Envelope, error) {
	// Ensure doc is in cache.
	if _, err := cs.Get(ctx, id); err != nil {
		return nil, err
	}
	return cs.cache.GetOperations(ctx, id, fromVersion)
}

// loadFromBacking loads a document and its operations from the backing store
// into the cache. It sets flushedOps so that already-persisted ops are not
// re-flushed.
func (cs *CachedStore) loadFromBacking(ctx context.Context, id string) error {
	info, err := cs.backing.Get(ctx, id)
	if err != nil {
		return err
	}
	ops, err := cs.backing.GetOperations(ctx, id, 0)
	if err != nil {
		return err
	}

	cs.cache.mu.Lock()
	if _, exists := cs.cache.docs[id]; !exists {
		cs.cache.docs[id] = &docRecord{info: *info, history: ops}
	}
	cs.cache.mu.Unlock()

	cs.mu.Lock()
	if cs.dirty[id] == nil {
		cs.dirty[id] = &dirtyState{flushedOps: len(ops)}
	}
	cs.mu.Unlock()

	return nil
}

func (cs *CachedStore) flushLoop() {
	ticker := time.NewTicker(cs.flushInterval)
	defer ticker.Stop()
	defer close(cs.done)

	for {
		select {
		case <-ticker.C:
			cs.flush()
		case <-cs.stop:
			cs.flush()
			return
		}
	}
}

func (cs *CachedStore) retry(ctx context.Context, write func() error) error {
	return backoff.Retry(write, backoff.WithContext(cs.newBackOff(), ctx))
}

// flush writes all dirty documents to the backing store.
func (cs *CachedStore) flush() {
	cs.mu.Lock()
	// Snapshot the dirty map and work on a copy.
	snapshot := make(map[string]*dirtyState, len(cs.dirty))
	for id, ds := range cs.dirty {
		cp := *ds
		snapshot[id] = &cp
	}
	cs.mu.Unlock()

	ctx := context.Background()

	for id, ds := range snapshot {
		log := cs.log.WithValues("doc", id)

		// Read current state from cache.
		cs.cache.mu.RLock()
		rec, ok := cs.cache.docs[id]
		if !ok {
			cs.cache.mu.RUnlock()
			continue
		}
		info := rec.info
		totalOps := len(rec.history)
		var newOps []wire.Envelope
		if ds.flushedOps < totalOps {
			newOps = make([]wire.Envelope, totalOps-ds.flushedOps)
			copy(newOps, rec.history[ds.flushedOps:])
		}
		cs.cache.mu.RUnlock()

		// 1. Create doc in backing store if needed.
		if ds.created {
			err := cs.retry(ctx, func() error {
				if err := cs.backing.Create(ctx, id, info.Snapshot); err != nil && !errors.Is(err, ErrExists) {
					return err
				}
				return nil
			})
			if err != nil {
				log.Error(err, "failed to create doc in backing store")
				continue
			}
			ds.created = false
		}

		// 2. Flush new ops (before the snapshot, so crash-recovery can replay).
		for i, op := range newOps {
			version := ds.flushedOps + 1
			if err := cs.retry(ctx, func() error { return cs.backing.AppendOperation(ctx, id, op, version) }); err != nil {
				log.Error(err, "failed to flush op", "op", i, "version", version)
				// Stop flushing this doc; the next cycle retries.
				break
			}
			ds.flushedOps++
		}

		// 3. Flush snapshot if dirty.
		if ds.snapshotDirty {
			if err := cs.retry(ctx, func() error { return cs.backing.UpdateSnapshot(ctx, id, info.Snapshot, info.Version) }); err != nil {
				log.Error(err, "failed to flush snapshot", "version", info.Version)
			} else {
				ds.snapshotDirty = false
				log.V(2).Info("flushed snapshot", "version", info.Version)
			}
		}

		// Update the authoritative dirty state.
		cs.mu.Lock()
		cur := cs.dirty[id]
		if cur != nil {
			cur.flushedOps = ds.flushedOps
			cur.created = ds.created
			// Only clear snapshotDirty if no new writes happened since snapshot.
			if !ds.snapshotDirty && cur.snapshotDirty && !cs.snapshotChanged(id, info) {
				cur.snapshotDirty = false
			}
			// Remove from dirty map if fully clean.
			if !cur.snapshotDirty && !cur.created && cur.flushedOps >= totalOps {
				// Re-check current totalOps: new ops may have arrived.
				cs.cache.mu.RLock()
				if r, ok := cs.cache.docs[id]; ok && cur.flushedOps >= len(r.history) {
					delete(cs.dirty, id)
				}
				cs.cache.mu.RUnlock()
			}
		}
		cs.mu.Unlock()
	}
}

// snapshotChanged reports whether the cached snapshot moved past flushed.
func (cs *CachedStore) snapshotChanged(id string, flushed DocumentInfo) bool {
	cs.cache.mu.RLock()
	defer cs.cache.mu.RUnlock()
	rec, ok := cs.cache.docs[id]
	return ok && !rec.info.UpdatedAt.Equal(flushed.UpdatedAt)
}

// Close signals the flush loop to perform a final flush and waits for it
// to complete.
func (cs *CachedStore) Close() {
	close(cs.stop)
	<-cs.done
}
