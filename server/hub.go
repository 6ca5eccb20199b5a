package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/alimasry/go-collab-blocks/contribution"
	"github.com/alimasry/go-collab-blocks/replica"
	"github.com/alimasry/go-collab-blocks/store"
	"github.com/alimasry/go-collab-blocks/wire"
)

type joinRequest struct {
	client *Client
	docID  string
}

// Hub manages document sessions and routes clients to the right session.
type Hub struct {
	store     store.DocumentStore
	relay     Relay
	replicaID uint32
	inst      instruments
	log       logr.Logger
	sessions  map[string]*Session
	mu        sync.RWMutex

	joinDoc chan joinRequest
}

// NewHub creates a hub whose new documents are replicas owned by
// replicaID. A nil relay keeps the hub to this node.
func NewHub(st store.DocumentStore, relay Relay, replicaID uint32, log logr.Logger) *Hub {
	if relay == nil {
		relay = NopRelay{}
	}
	log = log.WithName("hub")
	inst, err := newInstruments()
	if err != nil {
		log.Error(err, "metrics disabled")
	}
	return &Hub{
		store:     st,
		relay:     relay,
		replicaID: replicaID,
		inst:      inst,
		log:       log,
		sessions:  make(map[string]*Session),
		joinDoc:   make(chan joinRequest, 64),
	}
}

// Run is the hub's main loop. It stops every session when ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case req := <-h.joinDoc:
			h.handleJoinDoc(ctx, req)
		case <-ctx.Done():
			h.stopSessions()
			return nil
		}
	}
}

func (h *Hub) handleJoinDoc(ctx context.Context, req joinRequest) {
	h.mu.Lock()
	s, ok := h.sessions[req.docID]
	if !ok {
		doc, err := h.loadDocument(ctx, req.docID)
		if err != nil {
			h.log.Error(err, "failed to load doc", "doc", req.docID)
			h.mu.Unlock()
			req.client.resetJoin()
			req.client.sendError("failed to load document")
			return
		}

		s = newSession(req.docID, doc, h.store, h.relay, h.inst, h.log)
		h.sessions[req.docID] = s
		go s.Run()
	}
	h.mu.Unlock()

	s.join <- req.client
}

// loadDocument restores a document from its snapshot and the operations
// logged after it, creating an empty one when the store has none.
func (h *Hub) loadDocument(ctx context.Context, docID string) (*wire.Document, error) {
	info, err := h.store.Get(ctx, docID)
	if errors.Is(err, store.ErrNotFound) {
		r := replica.New(contribution.NewContributor(h.replicaID, 0), nil)
		snapshot, err := r.Encode()
		if err != nil {
			return nil, err
		}
		if err := h.store.Create(ctx, docID, snapshot); err != nil {
			return nil, fmt.Errorf("create %s: %w", docID, err)
		}
		h.log.Info("created document", "doc", docID)
		return wire.NewDocument(r, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", docID, err)
	}

	r, err := replica.Decode(info.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", docID, err)
	}
	ops, err := h.store.GetOperations(ctx, docID, info.Version)
	if err != nil {
		return nil, fmt.Errorf("get %s operations: %w", docID, err)
	}
	for i, op := range ops {
		if _, err := wire.Apply(r, op); err != nil {
			h.log.Error(err, "skipping logged op", "doc", docID, "version", info.Version+i+1)
		}
	}
	if len(ops) > 0 {
		h.log.V(1).Info("replayed ops", "doc", docID, "from", info.Version, "count", len(ops))
	}
	return wire.NewDocument(r, info.Version+len(ops)), nil
}

// GetSession returns the session for a document, if active.
func (h *Hub) GetSession(docID string) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[docID]
}

func (h *Hub) stopSessions() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.sessions {
		close(s.stop)
		delete(h.sessions, id)
	}
}
