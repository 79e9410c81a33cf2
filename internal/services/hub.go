package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"threadloom/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Pusher delivers the lightweight "you have a new notification" signal.
// Absence of a live connection is a no-op, never an error.
type Pusher interface {
	Push(userID uint, unread int64)
}

const (
	pushChannel = "threadloom:notify"
	presenceTTL = 2 * time.Minute
)

type pushSignal struct {
	UserID uint  `json:"user_id"`
	Unread int64 `json:"unread"`
}

// pushFrame is what actually goes down the websocket.
type pushFrame struct {
	Event  string `json:"event"`
	Unread int64  `json:"unread"`
}

// Hub tracks live notification connections per user. Signals are relayed
// through a redis channel so every process forwards to its own local
// connections; without redis the hub degrades to single-process delivery.
type Hub struct {
	db     *gorm.DB
	rdb    *redis.Client // nil means local-only
	logger *zap.Logger

	mu    sync.RWMutex
	conns map[uint]map[*websocket.Conn]struct{}
}

func NewHub(db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		db:     db,
		rdb:    rdb,
		logger: logger,
		conns:  make(map[uint]map[*websocket.Conn]struct{}),
	}
}

// Run subscribes to the push channel and forwards signals to local
// connections until ctx is done. No-op without redis.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}
	sub := h.rdb.Subscribe(ctx, pushChannel)
	go func() {
		defer sub.Close()
		for msg := range sub.Channel() {
			var sig pushSignal
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				h.logger.Warn("bad push payload", zap.Error(err))
				continue
			}
			h.deliver(sig.UserID, sig.Unread)
		}
	}()
}

// Push publishes a signal for userID. Best-effort: failures are logged,
// never returned to the write path that triggered them.
func (h *Hub) Push(userID uint, unread int64) {
	if h.rdb == nil {
		h.deliver(userID, unread)
		return
	}
	payload, _ := json.Marshal(pushSignal{UserID: userID, Unread: unread})
	if err := h.rdb.Publish(context.Background(), pushChannel, payload).Err(); err != nil {
		h.logger.Warn("push publish failed, delivering locally", zap.Error(err))
		h.deliver(userID, unread)
	}
}

func (h *Hub) deliver(userID uint, unread int64) {
	frame := pushFrame{Event: "notification", Unread: unread}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteJSON(frame); err != nil {
			// Dead connection, drop it
			h.Unregister(context.Background(), userID, c)
		}
	}
}

// Register attaches a live connection and marks the user present.
func (h *Hub) Register(ctx context.Context, userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
	h.mu.Unlock()

	h.touchPresence(ctx, userID)
	now := time.Now()
	if err := h.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"is_online": true, "last_seen_at": &now}).Error; err != nil {
		h.logger.Warn("presence update failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// Unregister detaches a connection; when it was the user's last one the
// presence key is cleared and the user goes offline.
func (h *Hub) Unregister(ctx context.Context, userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns[userID], conn)
	last := len(h.conns[userID]) == 0
	if last {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
	conn.Close()

	if !last {
		return
	}
	if h.rdb != nil {
		if err := h.rdb.Del(ctx, presenceKey(userID)).Err(); err != nil {
			h.logger.Warn("presence key delete failed", zap.Error(err))
		}
	}
	now := time.Now()
	if err := h.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"is_online": false, "last_seen_at": &now}).Error; err != nil {
		h.logger.Warn("presence update failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// Touch refreshes the presence TTL; the websocket read loop calls this on
// every inbound frame.
func (h *Hub) Touch(ctx context.Context, userID uint) {
	h.touchPresence(ctx, userID)
}

func (h *Hub) touchPresence(ctx context.Context, userID uint) {
	if h.rdb == nil {
		return
	}
	if err := h.rdb.Set(ctx, presenceKey(userID), "1", presenceTTL).Err(); err != nil {
		h.logger.Warn("presence key set failed", zap.Error(err))
	}
}

func presenceKey(userID uint) string {
	return fmt.Sprintf("presence:%d", userID)
}

// InitRedis connects the shared redis client. REDIS_ADDR empty means the
// deployment runs without redis and the hub stays local-only.
func InitRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	return rdb, nil
}
