package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/skymirror/skymirror"
)

const signalChannel = "skymirror:signal"

// socketWriteTimeout bounds how long one stalled client can hold up
// fan-out, since deliveries are serialized per service.
const socketWriteTimeout = 10 * time.Second

// signalMessage is the fan-out payload between nodes. An empty did
// list means broadcast to everyone.
type signalMessage struct {
	DIDs []string `json:"dids,omitempty"`
}

// SignalService pushes refresh events to realtime clients. Sockets are
// registered per identity on this node; redis publish/subscribe fans
// the signal out so every node delivers to its own sockets. Without a
// redis client it degrades to local-only delivery.
type SignalService struct {
	rdb *redis.Client

	mu      sync.RWMutex
	sockets map[string]map[*websocket.Conn]struct{}
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb:     redisClient,
		sockets: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// AddSocket registers a client socket under its identity.
func (s *SignalService) AddSocket(did string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sockets[did] == nil {
		s.sockets[did] = make(map[*websocket.Conn]struct{})
	}
	s.sockets[did][conn] = struct{}{}
}

// RemoveSocket drops a client socket. Safe to call for sockets that
// were never registered.
func (s *SignalService) RemoveSocket(did string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conns, ok := s.sockets[did]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(s.sockets, did)
		}
	}
}

// NotifyMentioned signals the given identities.
func (s *SignalService) NotifyMentioned(ctx context.Context, dids []string) error {
	if len(dids) == 0 {
		return nil
	}
	return s.publish(ctx, signalMessage{DIDs: dids})
}

// Broadcast signals every connected client.
func (s *SignalService) Broadcast(ctx context.Context) error {
	return s.publish(ctx, signalMessage{})
}

func (s *SignalService) publish(ctx context.Context, msg signalMessage) error {
	if s.rdb == nil {
		s.deliver(msg)
		return nil
	}
	jsonstr, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, signalChannel, jsonstr).Err()
}

// Listen consumes the fan-out channel and delivers to local sockets.
// Blocks until ctx is cancelled.
func (s *SignalService) Listen(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	pubsub := s.rdb.Subscribe(ctx, signalChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg signalMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				slog.Error("decoding signal message",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			s.deliver(msg)
		}
	}
}

func (s *SignalService) deliver(msg signalMessage) {
	event := skymirror.Event{Type: skymirror.EventRefreshNotifications}

	// Full lock so concurrent deliveries never interleave writes on
	// the same socket.
	s.mu.Lock()
	defer s.mu.Unlock()

	var conns []*websocket.Conn
	if len(msg.DIDs) == 0 {
		for _, set := range s.sockets {
			for conn := range set {
				conns = append(conns, conn)
			}
		}
	} else {
		for _, did := range msg.DIDs {
			for conn := range s.sockets[did] {
				conns = append(conns, conn)
			}
		}
	}

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
		if err := conn.WriteJSON(event); err != nil {
			slog.Debug("writing signal to socket",
				slog.String("error", err.Error()),
				slog.String("module", "signal"),
			)
		}
	}
}
