package websocket

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Типы сообщений, связанные с сессией
const (
	// SESSION_EXPIRED сообщает о выходе из-за бездействия
	SESSION_EXPIRED = "SESSION_EXPIRED"

	// SIGNED_OUT сообщает о выходе пользователя на другом устройстве или вкладке
	SIGNED_OUT = "SIGNED_OUT"
)

// Служебные сообщения
const (
	ServerError     = "server:error"
	ServerHeartbeat = "server:heartbeat"

	UserHeartbeat = "user:heartbeat"
	UserActivity  = "user:activity"
	UserAnswer    = "user:answer"
)
