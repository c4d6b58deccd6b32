package websocket

import (
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// MessageHandler обрабатывает поле data входящего сообщения.
// Возвращенная ошибка закрывает соединение.
type MessageHandler func(data json.RawMessage, client *Client) error

// Manager маршрутизирует входящие WebSocket сообщения по типам
type Manager struct {
	hub *Hub

	mu       sync.RWMutex
	handlers map[string]MessageHandler
}

// NewManager создает новый менеджер WebSocket
func NewManager(hub *Hub) *Manager {
	return &Manager{
		hub:      hub,
		handlers: make(map[string]MessageHandler),
	}
}

// Hub возвращает хаб менеджера
func (m *Manager) Hub() *Hub {
	return m.hub
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений
func (m *Manager) RegisterHandler(eventType string, handler MessageHandler) {
	m.mu.Lock()
	m.handlers[eventType] = handler
	m.mu.Unlock()
	log.Debugf("[WebSocketManager] Registered handler for %s", eventType)
}

type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если обработка не удалась и соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event inboundEvent
	if err := json.Unmarshal(message, &event); err != nil {
		log.Warnf("[WebSocketManager] Failed to unmarshal message from %s: %v", client.UserID, err)
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err
	}

	m.mu.RLock()
	handler, ok := m.handlers[event.Type]
	m.mu.RUnlock()
	if !ok {
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}

	return handler(event.Data, client)
}

// SendErrorToClient отправляет ошибку только в то подключение, которое ее вызвало.
// Соединение не закрывается.
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	payload, err := json.Marshal(Event{
		Type: ServerError,
		Data: map[string]string{
			"code":    code,
			"message": message,
		},
	})
	if err != nil {
		return
	}
	if !client.enqueue(payload) {
		log.Warnf("[WebSocketManager] Could not deliver error %s to user=%s conn=%s", code, client.UserID, client.ConnectionID)
	}
}

// SendToClient отправляет событие одному подключению
func (m *Manager) SendToClient(client *Client, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Errorf("[WebSocketManager] Failed to marshal %s: %v", eventType, err)
		return
	}
	client.enqueue(payload)
}
