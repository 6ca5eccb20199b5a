package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alimasry/go-collab-blocks/wire"
)

// Relay fans operations out to the other server nodes that hold sessions
// for the same document.
type Relay interface {
	Publish(ctx context.Context, docID string, op wire.Envelope) error
	// Subscribe delivers operations published by other nodes until ctx
	// is done.
	Subscribe(ctx context.Context, docID string, deliver func(wire.Envelope)) error
	Close() error
}

// NopRelay is the relay of a single-node deployment.
type NopRelay struct{}

func (NopRelay) Publish(context.Context, string, wire.Envelope) error { return nil }

func (NopRelay) Subscribe(context.Context, string, func(wire.Envelope)) error { return nil }

func (NopRelay) Close() error { return nil }

const relayChannelPrefix = "blocktext:doc:"

type relayMessage struct {
	Node string        `json:"node"`
	Op   wire.Envelope `json:"op"`
}

// RedisRelay publishes operations on one Redis pub/sub channel per
// document. Each node tags what it publishes and ignores its own echoes.
type RedisRelay struct {
	client *redis.Client
	node   string
	log    logr.Logger
}

// NewRedisRelay connects to the Redis server at addr.
func NewRedisRelay(ctx context.Context, addr string, log logr.Logger) (*RedisRelay, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	node := uuid.NewString()
	return &RedisRelay{client: client, node: node, log: log.WithName("relay").WithValues("node", node)}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, docID string, op wire.Envelope) error {
	data, err := json.Marshal(relayMessage{Node: r.node, Op: op})
	if err != nil {
		return fmt.Errorf("encode relay message: %w", err)
	}
	if err := r.client.Publish(ctx, relayChannelPrefix+docID, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", docID, err)
	}
	return nil
}

func (r *RedisRelay) Subscribe(ctx context.Context, docID string, deliver func(wire.Envelope)) error {
	pubsub := r.client.Subscribe(ctx, relayChannelPrefix+docID)
	// Wait for the subscription so nothing published after Subscribe
	// returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe to %s: %w", docID, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var m relayMessage
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					r.log.Error(err, "dropping malformed relay message", "doc", docID)
					continue
				}
				if m.Node == r.node {
					continue
				}
				deliver(m.Op)
			}
		}
	}()
	return nil
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
