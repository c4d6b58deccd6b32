package websocket

import (
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/pkg/metrics"
)

// Relay доставляет сообщения пользователям, подключенным к другим инстансам
type Relay interface {
	PublishDirect(userID string, payload []byte) error
	PublishDisconnect(sessionID string, payload []byte) error
}

// Hub хранит подключения пользователей. У одного пользователя может быть
// несколько подключений (вкладки, устройства).
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	relay Relay
}

// NewHub создает хаб
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// SetRelay подключает доставку через кластер
func (h *Hub) SetRelay(relay Relay) {
	h.mu.Lock()
	h.relay = relay
	h.mu.Unlock()
}

// Register добавляет подключение
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	conns, ok := h.clients[c.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[c.UserID] = conns
	}
	conns[c] = struct{}{}
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	log.Debugf("[WSHub] Registered user=%s conn=%s", c.UserID, c.ConnectionID)
}

// Unregister удаляет подключение и закрывает его канал отправки
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	removed := false
	if conns, ok := h.clients[c.UserID]; ok {
		if _, ok := conns[c]; ok {
			delete(conns, c)
			removed = true
		}
		if len(conns) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()

	if removed {
		c.CloseSend()
		metrics.WSConnections.Dec()
	}
}

// ClientCount возвращает число подключений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

// SendToUser отправляет событие всем подключениям пользователя, в том числе на других инстансах
func (h *Hub) SendToUser(userID string, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Errorf("[WSHub] Failed to marshal %s for user %s: %v", eventType, userID, err)
		return
	}
	h.deliverLocal(userID, payload)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		if err := relay.PublishDirect(userID, payload); err != nil {
			log.Warnf("[WSHub] Failed to relay %s for user %s: %v", eventType, userID, err)
		}
	}
}

// DisconnectSession отправляет подключениям сессии событие и закрывает их
func (h *Hub) DisconnectSession(sessionID string, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Errorf("[WSHub] Failed to marshal %s: %v", eventType, err)
		return
	}
	h.disconnectLocal(sessionID, payload)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		if err := relay.PublishDisconnect(sessionID, payload); err != nil {
			log.Warnf("[WSHub] Failed to relay disconnect for session %s: %v", sessionID, err)
		}
	}
}

func (h *Hub) deliverLocal(userID string, payload []byte) int {
	h.mu.RLock()
	conns := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range conns {
		if c.enqueue(payload) {
			delivered++
			continue
		}
		// Медленный клиент теряет подключение, клиент переподключится и запросит состояние
		log.Warnf("[WSHub] Send buffer full for user=%s conn=%s, disconnecting", c.UserID, c.ConnectionID)
		h.Unregister(c)
	}
	return delivered
}

func (h *Hub) disconnectLocal(sessionID string, payload []byte) int {
	h.mu.RLock()
	var targets []*Client
	for _, conns := range h.clients {
		for c := range conns {
			if c.SessionID == sessionID {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(payload)
		h.Unregister(c)
	}
	return len(targets)
}

// Close закрывает все подключения
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Client
	for _, conns := range h.clients {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.Unregister(c)
	}
}
