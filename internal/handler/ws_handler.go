package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
	"github.com/yourusername/quiz-reward-api/internal/service/attempt"
	"github.com/yourusername/quiz-reward-api/internal/websocket"
)

// TicketAuthenticator проверяет WS-тикет и отмечает активность
type TicketAuthenticator interface {
	AuthenticateTicket(ctx context.Context, ticket string) (*entity.Session, error)
	Touch(ctx context.Context, sessionID string) error
}

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	sessions  TicketAuthenticator
	engine    AttemptEngine
	wsManager *websocket.Manager
	upgrader  gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket. Пустой allowedOrigins разрешает любой origin.
func NewWSHandler(sessions TicketAuthenticator, engine AttemptEngine, wsManager *websocket.Manager, allowedOrigins []string) *WSHandler {
	h := &WSHandler{
		sessions:  sessions,
		engine:    engine,
		wsManager: wsManager,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}

	// Регистрируем обработчики сообщений один раз при создании обработчика
	h.registerMessageHandlers()
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Не браузерный клиент
		if origin == "" || len(set) == 0 {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		log.Warnf("[WSHandler] Rejected origin: %s", origin)
		return false
	}
}

// HandleConnection обрабатывает входящее WebSocket соединение (?ticket=...)
func (h *WSHandler) HandleConnection(c *gin.Context) {
	// НЕ логируем тикет - это секретные данные аутентификации
	ticket := c.Query("ticket")
	if ticket == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication ticket parameter"})
		return
	}

	session, err := h.sessions.AuthenticateTicket(c.Request.Context(), ticket)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired ticket"})
			return
		}
		handleError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		log.Warnf("[WSHandler] Upgrade failed for user %s: %v", session.UserID, err)
		return
	}

	client := websocket.NewClient(h.wsManager.Hub(), conn, session.UserID, session.ID)
	client.StartPumps(h.wsManager.HandleMessage)
	log.WithFields(log.Fields{"user_id": session.UserID, "conn_id": client.ConnectionID}).Debug("[WSHandler] Client connected")

	// Переподключившийся клиент получает текущий вопрос сразу
	if snapshot := h.engine.State(c.Request.Context(), session.UserID); snapshot.Question != nil {
		h.wsManager.SendToClient(client, attempt.EventQuestion, snapshot.Question)
	}
}

type wsAnswerEvent struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

// registerMessageHandlers регистрирует обработчики для различных типов сообщений
func (h *WSHandler) registerMessageHandlers() {
	h.wsManager.RegisterHandler(websocket.UserAnswer, func(data json.RawMessage, client *websocket.Client) error {
		var event wsAnswerEvent
		if err := json.Unmarshal(data, &event); err != nil || event.OptionID == "" {
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse user:answer event")
			return nil
		}
		h.touch(client)

		// Результат доставит движок через хаб всем подключениям пользователя
		if _, err := h.engine.Submit(context.Background(), client.UserID, event.QuestionID, event.OptionID); err != nil {
			h.wsManager.SendErrorToClient(client, errorCode(err), err.Error())
		}
		return nil
	})

	h.wsManager.RegisterHandler(websocket.UserActivity, func(data json.RawMessage, client *websocket.Client) error {
		h.touch(client)
		return nil
	})

	h.wsManager.RegisterHandler(websocket.UserHeartbeat, func(data json.RawMessage, client *websocket.Client) error {
		h.wsManager.SendToClient(client, websocket.ServerHeartbeat, gin.H{"status": "ok"})
		return nil
	})
}

// touch отмечает активность сессии. Закрытая сессия закроет соединение через IdleDetector.
func (h *WSHandler) touch(client *websocket.Client) {
	if err := h.sessions.Touch(context.Background(), client.SessionID); err != nil {
		log.Debugf("[WSHandler] Touch failed for session %s: %v", client.SessionID, err)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
