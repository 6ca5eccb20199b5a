package server

import (
	"context"
	"encoding/json"

	"github.com/go-logr/logr"
	"github.com/wI2L/jsondiff"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/alimasry/go-collab-blocks/store"
	"github.com/alimasry/go-collab-blocks/wire"
)

type opMessage struct {
	client *Client
	msg    ClientMessage
}

// Session manages collaboration for a single document.
// All operations are serialized through a single goroutine.
type Session struct {
	docID   string
	doc     *wire.Document
	store   store.DocumentStore
	relay   Relay
	inst    instruments
	log     logr.Logger
	clients map[*Client]bool

	incoming chan opMessage
	remote   chan wire.Envelope
	join     chan *Client
	leave    chan *Client
	stop     chan struct{}
}

func newSession(docID string, doc *wire.Document, st store.DocumentStore, relay Relay, inst instruments, log logr.Logger) *Session {
	return &Session{
		docID:    docID,
		doc:      doc,
		store:    st,
		relay:    relay,
		inst:     inst,
		log:      log.WithName("session").WithValues("doc", docID),
		clients:  make(map[*Client]bool),
		incoming: make(chan opMessage, 64),
		remote:   make(chan wire.Envelope, 64),
		join:     make(chan *Client, 16),
		leave:    make(chan *Client, 16),
		stop:     make(chan struct{}),
	}
}

// Run is the session's main loop. It serializes all operations, local
// and relayed, until the session is stopped.
func (s *Session) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.relay.Subscribe(ctx, s.docID, s.deliver); err != nil {
		s.log.Error(err, "relay subscription failed, serving local clients only")
	}

	for {
		select {
		case c := <-s.join:
			s.handleJoin(c)
		case c := <-s.leave:
			s.handleLeave(c)
		case om := <-s.incoming:
			s.handleOp(om)
		case e := <-s.remote:
			s.commit(e, nil, 0)
		case <-s.stop:
			return
		}
	}
}

// deliver hands a relayed operation to the session goroutine.
func (s *Session) deliver(e wire.Envelope) {
	select {
	case s.remote <- e:
	case <-s.stop:
	}
}

func (s *Session) handleJoin(c *Client) {
	snapshot, err := s.doc.Replica.Encode()
	if err != nil {
		s.log.Error(err, "failed to encode document")
		c.resetJoin()
		c.sendError("failed to encode document")
		return
	}

	s.clients[c] = true
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	// Send current document state to the joining client.
	c.sendMsg(ServerMessage{
		Type:     MsgDoc,
		DocID:    s.docID,
		Snapshot: snapshot,
		Revision: s.doc.Version,
		Clients:  s.clientInfos(),
	})

	// Notify other clients about the new user.
	for other := range s.clients {
		if other != c {
			other.sendMsg(ServerMessage{
				Type:     MsgJoin,
				ClientID: c.ID,
				Name:     c.Name,
				Color:    c.Color,
			})
		}
	}
	s.log.V(1).Info("client joined", "client", c.ID, "mode", c.Mode, "clients", len(s.clients))
}

func (s *Session) handleLeave(c *Client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	close(c.send)

	// Notify others.
	for other := range s.clients {
		other.sendMsg(ServerMessage{
			Type:     MsgLeave,
			ClientID: c.ID,
		})
	}
	s.log.V(1).Info("client left", "client", c.ID, "clients", len(s.clients))
}

func (s *Session) handleOp(om opMessage) {
	if om.msg.Op == nil {
		om.client.sendError("op message without op")
		return
	}
	s.commit(*om.msg.Op, om.client, om.msg.Seq)
}

// commit applies e and fans it out. from is nil for relayed operations,
// which are neither acked nor published again.
func (s *Session) commit(e wire.Envelope, from *Client, seq int) {
	ctx, span := tracer.Start(context.Background(), "session.apply", trace.WithAttributes(
		attribute.String("doc.id", s.docID),
		attribute.String("op.type", string(e.Type)),
		attribute.String("op.block", e.BlockID),
		attribute.Bool("op.relayed", from == nil),
	))
	defer span.End()
	byType := metric.WithAttributes(attribute.String("type", string(e.Type)))

	var before []byte
	if s.hasPatchClients() {
		before = s.encodeBlock(e.BlockID)
	}

	receipt, err := s.doc.Apply(e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply failed")
		s.inst.rejected.Add(ctx, 1, byType)
		s.log.V(1).Info("rejected op", "type", e.Type, "block", e.BlockID, "err", err.Error())
		if from != nil {
			from.sendError(err.Error())
		}
		return
	}
	if receipt == nil {
		span.SetAttributes(attribute.Bool("op.stale", true))
		s.inst.stale.Add(ctx, 1, byType)
		if from != nil {
			from.sendMsg(ServerMessage{Type: MsgAck, DocID: s.docID, Revision: s.doc.Version, Seq: seq, Stale: true})
		}
		return
	}
	s.inst.applied.Add(ctx, 1, byType)

	s.persist(ctx, e)

	var fromID string
	if from != nil {
		fromID = from.ID
		from.sendMsg(ServerMessage{Type: MsgAck, DocID: s.docID, Revision: s.doc.Version, Seq: seq})
	}

	// Broadcast to other CRDT clients.
	for c := range s.clients {
		if c != from && c.Mode != ModePatch {
			c.sendMsg(ServerMessage{
				Type:     MsgOp,
				DocID:    s.docID,
				Revision: s.doc.Version,
				Op:       &e,
				ClientID: fromID,
			})
		}
	}
	if before != nil {
		s.sendPatch(e.BlockID, before)
	}

	if from != nil {
		if err := s.relay.Publish(ctx, s.docID, e); err != nil {
			span.RecordError(err)
			s.log.Error(err, "failed to relay op", "version", s.doc.Version)
		}
	}
}

// persist appends e to the op log before replacing the snapshot, so a
// crash between the two writes is recovered by replay.
func (s *Session) persist(ctx context.Context, e wire.Envelope) {
	if err := s.store.AppendOperation(ctx, s.docID, e, s.doc.Version); err != nil {
		s.log.Error(err, "failed to append op", "version", s.doc.Version)
		return
	}
	snapshot, err := s.doc.Replica.Encode()
	if err != nil {
		s.log.Error(err, "failed to encode snapshot", "version", s.doc.Version)
		return
	}
	if err := s.store.UpdateSnapshot(ctx, s.docID, snapshot, s.doc.Version); err != nil {
		s.log.Error(err, "failed to update snapshot", "version", s.doc.Version)
	}
}

// sendPatch sends patch clients the JSON patch from before to the
// block's current encoding.
func (s *Session) sendPatch(blockID string, before []byte) {
	patch, err := jsondiff.CompareJSON(before, s.encodeBlock(blockID))
	if err != nil {
		s.log.Error(err, "failed to diff block", "block", blockID)
		return
	}
	if len(patch) == 0 {
		return
	}
	for c := range s.clients {
		if c.Mode == ModePatch {
			c.sendMsg(ServerMessage{
				Type:     MsgPatch,
				DocID:    s.docID,
				Revision: s.doc.Version,
				BlockID:  blockID,
				Patch:    patch,
			})
		}
	}
}

// encodeBlock returns the block's JSON, or null when it does not exist.
func (s *Session) encodeBlock(blockID string) []byte {
	b := s.doc.Replica.Block(blockID)
	if b == nil {
		return []byte("null")
	}
	data, err := json.Marshal(b)
	if err != nil {
		s.log.Error(err, "failed to encode block", "block", blockID)
		return []byte("null")
	}
	return data
}

func (s *Session) hasPatchClients() bool {
	for c := range s.clients {
		if c.Mode == ModePatch {
			return true
		}
	}
	return false
}

func (s *Session) clientInfos() []ClientInfo {
	infos := make([]ClientInfo, 0, len(s.clients))
	for c := range s.clients {
		infos = append(infos, c.Info())
	}
	return infos
}
