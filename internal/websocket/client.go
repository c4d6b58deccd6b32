package websocket

import (
	"bytes"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 1024

	// Размер буфера канала исходящих сообщений
	defaultClientBufferSize = 64
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Client является посредником между WebSocket соединением и hub.
type Client struct {
	UserID       string
	SessionID    string
	ConnectionID string

	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал для исходящих сообщений
	send chan []byte

	// Флаг, указывающий что канал send закрыт (для предотвращения panic)
	sendClosed atomic.Bool
}

// NewClient создает нового клиента
func NewClient(hub *Hub, conn *websocket.Conn, userID, sessionID string) *Client {
	return &Client{
		UserID:       userID,
		SessionID:    sessionID,
		ConnectionID: uuid.NewString(),
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, defaultClientBufferSize),
	}
}

// enqueue ставит сообщение в очередь. При переполненном буфере возвращает false.
func (c *Client) enqueue(message []byte) (ok bool) {
	if c.sendClosed.Load() {
		return false
	}
	defer func() {
		// send мог закрыться между проверкой и записью
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// CloseSend безопасно закрывает канал send (только один раз)
func (c *Client) CloseSend() bool {
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
		return true
	}
	return false
}

// readPump читает сообщения от клиента и передает их обработчику
func (c *Client) readPump(messageHandler func(message []byte, client *Client) error) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		log.Debugf("[WSClient] Read pump stopped user=%s conn=%s", c.UserID, c.ConnectionID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warnf("[WSClient] Read error user=%s conn=%s: %v", c.UserID, c.ConnectionID, err)
			}
			return
		}

		if handlerErr := safeHandleMessage(message, c, messageHandler); handlerErr != nil {
			// Ошибка обработчика фатальна для соединения
			log.Warnf("[WSClient] Handler error user=%s conn=%s: %v. Closing connection", c.UserID, c.ConnectionID, handlerErr)
			return
		}
	}
}

// safeHandleMessage вызывает обработчик с recover
func safeHandleMessage(message []byte, client *Client, messageHandler func(message []byte, client *Client) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[WSClient] PANIC in message handler user=%s conn=%s: %v\n%s",
				client.UserID, client.ConnectionID, r, string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
	if messageHandler == nil {
		return nil
	}
	return messageHandler(message, client)
}

// writePump отправляет сообщения клиенту из канала send
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		log.Debugf("[WSClient] Write pump stopped user=%s conn=%s", c.UserID, c.ConnectionID)
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Хаб закрыл канал клиента
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warnf("[WSClient] Write error user=%s conn=%s: %v", c.UserID, c.ConnectionID, err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// StartPumps регистрирует клиента в хабе и запускает горутины чтения и записи
func (c *Client) StartPumps(messageHandler func(message []byte, client *Client) error) {
	if c.UserID == "" {
		log.Warn("[WSClient] Client has no UserID, closing connection")
		c.conn.Close()
		return
	}
	c.hub.Register(c)

	go c.writePump()
	go c.readPump(messageHandler)
}
