package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"supply_chat_service/internal/chat/domain"
	"supply_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RoomTransport is the fan-out layer between room logic and whatever carries
// frames across nodes. Every publish for a room - including the publishing
// node's own - comes back through Subscribe, so all nodes observe the same
// channel order and there is exactly one delivery path.
type RoomTransport interface {
	// Publish sends an envelope to every subscriber of env.RoomKey.
	Publish(ctx context.Context, env domain.RoomEnvelope) error
	// Subscribe registers handler for a room until ctx is cancelled.
	Subscribe(ctx context.Context, roomKey string, handler func(env domain.RoomEnvelope)) error
}

// RedisPubSub is the RoomTransport over redis pub/sub channels, one channel
// per room key.
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

func roomChannel(roomKey string) string {
	return "chat:room:" + roomKey
}

// Publish marshals the envelope and publishes it to the room channel.
func (r *RedisPubSub) Publish(ctx context.Context, env domain.RoomEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, roomChannel(env.RoomKey), data).Err()
}

// Subscribe listens on the room channel and hands each envelope to handler
// until ctx is cancelled.
func (r *RedisPubSub) Subscribe(ctx context.Context, roomKey string, handler func(env domain.RoomEnvelope)) error {
	sub := r.client.Subscribe(ctx, roomChannel(roomKey))
	go func() {
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				var env domain.RoomEnvelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					logger.Log.Error("room transport decode failed",
						zap.String("roomKey", roomKey), zap.Error(err))
					continue
				}
				handler(env)
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s sub close", roomChannel(roomKey)))
				sub.Close()
				return
			}
		}
	}()
	return nil
}

// LocalRoomTransport is the in-process RoomTransport used for single-node
// runs and tests. Publishes are delivered synchronously, which also makes the
// per-room ordering trivial to assert in tests.
type LocalRoomTransport struct {
	mu       sync.RWMutex
	handlers map[string][]localSub
}

type localSub struct {
	ctx     context.Context
	handler func(env domain.RoomEnvelope)
}

// NewLocalRoomTransport create LocalRoomTransport
func NewLocalRoomTransport() *LocalRoomTransport {
	return &LocalRoomTransport{handlers: make(map[string][]localSub)}
}

// Publish delivers the envelope to all live subscribers of the room.
func (t *LocalRoomTransport) Publish(_ context.Context, env domain.RoomEnvelope) error {
	t.mu.RLock()
	subs := append([]localSub(nil), t.handlers[env.RoomKey]...)
	t.mu.RUnlock()

	for _, s := range subs {
		if s.ctx.Err() != nil {
			continue
		}
		s.handler(env)
	}
	return nil
}

// Subscribe registers handler for the room; the subscription dies with ctx.
func (t *LocalRoomTransport) Subscribe(ctx context.Context, roomKey string, handler func(env domain.RoomEnvelope)) error {
	t.mu.Lock()
	t.handlers[roomKey] = append(t.handlers[roomKey], localSub{ctx: ctx, handler: handler})
	t.mu.Unlock()
	return nil
}
