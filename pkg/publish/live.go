package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/ngohuy/hlspacker/pkg/live"
	"github.com/ngohuy/hlspacker/pkg/logger"
)

// LiveEventMessage is the JSON payload relayed to websocket viewers and,
// when configured, published on the Redis fan-out channel.
type LiveEventMessage struct {
	Kind         string  `json:"kind"`
	SegmentIndex uint64  `json:"segment_index"`
	PartialIndex int     `json:"partial_index,omitempty"`
	URI          string  `json:"uri,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
}

// LiveEventPublisher relays LiveCore's PartialAdded/SegmentCompleted events
// to connected websocket viewers and, when Redis is configured, onto a
// pub/sub channel so multiple LL-HLS edge processes serving the same
// stream stay in sync without sharing a filesystem.
type LiveEventPublisher struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	redisClient *redis.Client
	redisChan   string

	logger logger.Logger
}

// NewLiveEventPublisher constructs a publisher. redisClient may be nil to
// disable cross-process fan-out.
func NewLiveEventPublisher(redisClient *redis.Client, redisChannel string, log logger.Logger) *LiveEventPublisher {
	if log == nil {
		log = logger.NewDefaultLogger(logger.InfoLevel, "text")
	}
	return &LiveEventPublisher{
		upgrader:    websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:     make(map[*websocket.Conn]struct{}),
		redisClient: redisClient,
		redisChan:   redisChannel,
		logger:      log,
	}
}

// ServeWS upgrades an HTTP connection to a websocket and registers it as a
// viewer of live events until the connection closes.
func (p *LiveEventPublisher) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.clients[conn] = struct{}{}
	p.mu.Unlock()

	go func() {
		defer p.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}

func (p *LiveEventPublisher) removeClient(conn *websocket.Conn) {
	p.mu.Lock()
	delete(p.clients, conn)
	p.mu.Unlock()
	conn.Close()
}

// Run drains events from core until ctx is cancelled, broadcasting each
// to connected viewers. It also returns if the event channel is closed,
// which LiveCore itself never does. Intended to run in its own goroutine.
func (p *LiveEventPublisher) Run(ctx context.Context, core *live.LiveCore) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-core.Events():
			if !ok {
				return
			}
			p.broadcast(ctx, ev)
		}
	}
}

func (p *LiveEventPublisher) broadcast(ctx context.Context, ev live.Event) {
	msg := LiveEventMessage{
		SegmentIndex: ev.SegmentIndex,
		PartialIndex: ev.PartialIndex,
		URI:          ev.URI,
		Duration:     ev.Duration,
	}
	switch ev.Kind {
	case live.EventPartialAdded:
		msg.Kind = "partial_added"
	case live.EventSegmentCompleted:
		msg.Kind = "segment_completed"
	case live.EventStreamEnded:
		msg.Kind = "stream_ended"
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("failed to marshal live event", logger.Err(err))
		return
	}

	p.mu.Lock()
	for conn := range p.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			go p.removeClient(conn)
		}
	}
	p.mu.Unlock()

	if p.redisClient != nil {
		if err := p.redisClient.Publish(ctx, p.redisChan, payload).Err(); err != nil {
			p.logger.Warn("failed to publish live event to redis", logger.Err(err))
		}
	}
}

// Close disconnects all connected viewers.
func (p *LiveEventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for conn := range p.clients {
		conn.Close()
		delete(p.clients, conn)
	}
	return nil
}
