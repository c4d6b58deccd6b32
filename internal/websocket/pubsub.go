package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultRelayChannel - канал Redis для сообщений между инстансами
const DefaultRelayChannel = "ws:direct"

const (
	relayKindDirect     = "direct"
	relayKindDisconnect = "disconnect"
)

// ClusterMessage представляет сообщение, передаваемое между экземплярами API
type ClusterMessage struct {
	// Kind: direct - событие для пользователя, disconnect - закрытие подключений сессии
	Kind string `json:"kind"`

	// InstanceID содержит ID отправителя для избежания дублирования
	InstanceID string `json:"instance_id"`

	RecipientID string `json:"recipient_id,omitempty"`
	SessionID   string `json:"session_id,omitempty"`

	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// RedisRelay пересылает события пользователям, подключенным к другим инстансам
type RedisRelay struct {
	client     redis.UniversalClient
	hub        *Hub
	channel    string
	instanceID string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisRelay создает relay и подключает его к хабу
func NewRedisRelay(client redis.UniversalClient, hub *Hub, channel string) (*RedisRelay, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil for RedisRelay")
	}
	if channel == "" {
		channel = DefaultRelayChannel
	}
	r := &RedisRelay{
		client:     client,
		hub:        hub,
		channel:    channel,
		instanceID: uuid.NewString(),
	}
	hub.SetRelay(r)
	return r, nil
}

// InstanceID возвращает ID этого инстанса
func (r *RedisRelay) InstanceID() string {
	return r.instanceID
}

// PublishDirect публикует событие для пользователя
func (r *RedisRelay) PublishDirect(userID string, payload []byte) error {
	return r.publish(ClusterMessage{Kind: relayKindDirect, RecipientID: userID, Payload: payload})
}

// PublishDisconnect публикует закрытие подключений сессии
func (r *RedisRelay) PublishDisconnect(sessionID string, payload []byte) error {
	return r.publish(ClusterMessage{Kind: relayKindDisconnect, SessionID: sessionID, Payload: payload})
}

func (r *RedisRelay) publish(msg ClusterMessage) error {
	msg.InstanceID = r.instanceID
	msg.Timestamp = time.Now().UTC()
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal cluster message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", r.channel, err)
	}
	return nil
}

// Start подписывается на канал и доставляет полученные сообщения локальным подключениям.
// Возвращается после подтверждения подписки.
func (r *RedisRelay) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		_ = sub.Close()
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	r.cancel = cancel
	log.Infof("[WSRelay] Subscribed to %s as instance %s", r.channel, r.instanceID)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					log.Warnf("[WSRelay] Channel %s closed", r.channel)
					return
				}
				r.handle([]byte(msg.Payload))
			}
		}
	}()
	return nil
}

func (r *RedisRelay) handle(data []byte) {
	var msg ClusterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warnf("[WSRelay] Failed to decode cluster message: %v", err)
		return
	}
	// Свои сообщения уже доставлены локально
	if msg.InstanceID == r.instanceID {
		return
	}

	switch msg.Kind {
	case relayKindDirect:
		if msg.RecipientID != "" {
			r.hub.deliverLocal(msg.RecipientID, msg.Payload)
		}
	case relayKindDisconnect:
		if msg.SessionID != "" {
			r.hub.disconnectLocal(msg.SessionID, msg.Payload)
		}
	default:
		log.Warnf("[WSRelay] Unknown cluster message kind %q from %s", msg.Kind, msg.InstanceID)
	}
}

// Stop останавливает подписку
func (r *RedisRelay) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}
