package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Stage - 생성 파이프라인 단계
type Stage string

const (
	StageReceived    Stage = "received"
	StagePromptBuilt Stage = "prompt_built"
	StageGenerating  Stage = "generating"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// Event - 클라이언트로 보내는 진행 메시지
type Event struct {
	Type              string    `json:"type"`
	SessionID         string    `json:"sessionId"`
	Stage             Stage     `json:"stage"`
	Message           string    `json:"message,omitempty"`
	GeneratedImageURL string    `json:"generatedImageUrl,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Reporter - 진행 상황 발행 인터페이스
type Reporter interface {
	Publish(ctx context.Context, ev Event)
}

type sessionKey struct{}

// WithSession - ctx 에 세션 ID 저장
func WithSession(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionFrom - ctx 의 세션 ID (없으면 "")
func SessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// client - 연결된 WebSocket 클라이언트
type client struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
}

// Hub - 세션별 WebSocket 클라이언트 관리
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*client]struct{}
	upgrader websocket.Upgrader
}

// NewHub - 허용 origin 목록으로 허브 생성 (비어있으면 모두 허용)
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &Hub{
		sessions: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Publish - ctx 세션의 모든 클라이언트에게 이벤트 전송
func (h *Hub) Publish(ctx context.Context, ev Event) {
	sessionID := SessionFrom(ctx)
	if sessionID == "" {
		return
	}

	ev.Type = "generation_progress"
	ev.SessionID = sessionID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("[Progress] Error marshaling event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.sessions[sessionID] {
		select {
		case c.send <- data:
		default:
			// 느린 클라이언트는 이벤트를 잃는다
			log.Warn().Str("session", sessionID).Msg("⚠️  [Progress] Client send buffer full, dropping event")
		}
	}
}

// ClientCount - 세션의 연결 수
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[c.sessionID]
	if !ok {
		clients = make(map[*client]struct{})
		h.sessions[c.sessionID] = clients
	}
	clients[c] = struct{}{}

	log.Info().Msgf("👤 [Progress] Client joined session %s (clients: %d)", c.sessionID, len(clients))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[c.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)

	// 빈 세션 정리
	if len(clients) == 0 {
		delete(h.sessions, c.sessionID)
		log.Info().Msgf("🧹 [Progress] Cleaned up empty session: %s", c.sessionID)
	}
}

// ServeWS - GET /api/ws?session=<id>
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session parameter", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[Progress] WebSocket upgrade failed")
		return
	}

	c := &client{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, 16),
	}
	h.add(c)

	go c.writePump()
	go c.readPump(h)
}

// readPump - 클라이언트 메시지는 무시하고 연결 종료만 감지
func (c *client) readPump(h *Hub) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("[Progress] WebSocket error")
			}
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Warn().Err(err).Msg("[Progress] WebSocket write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
