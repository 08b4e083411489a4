package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/bidhaus/auction-engine/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// dedupTTL bounds how long a notification's dedup key suppresses re-sends.
// Delivery stays at-least-once; this only trims the duplicate volume.
const dedupTTL = 48 * time.Hour

// Envelope is the wire format published to Kafka.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	UserID     string          `json:"user_id"`
	Payload    json.RawMessage `json:"payload"`
}

// EventPayload is the notification body.
type EventPayload struct {
	AuctionID string `json:"auction_id"`
	Amount    string `json:"amount"`
	DedupKey  string `json:"dedup_key"`
}

// KafkaNotifier implements domain.Notifier by publishing notification events
// to per-event Kafka topics, with best-effort duplicate suppression through
// Redis SETNX keys. Consumers must still deduplicate on DedupKey.
type KafkaNotifier struct {
	writer  *kafka.Writer
	rdb     *redis.Client
	service string
}

func NewKafkaNotifier(brokers []string, rdb *redis.Client, service string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		rdb:     rdb,
		service: service,
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, userID uuid.UUID, event domain.Event) error {
	topic := topicFor(event.Type)
	if topic == "" {
		return fmt.Errorf("notify: unknown event type %q", event.Type)
	}

	if n.alreadySent(ctx, event) {
		log.Debug("notification suppressed as duplicate",
			zap.String("dedupKey", event.DedupKey),
			zap.String("event", string(event.Type)),
		)
		return nil
	}

	payload, err := json.Marshal(EventPayload{
		AuctionID: event.AuctionID.String(),
		Amount:    event.Amount.String(),
		DedupKey:  event.DedupKey,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}
	value, err := json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		EventType:  string(event.Type),
		OccurredAt: time.Now().UTC(),
		Producer:   n.service,
		UserID:     userID.String(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal envelope: %w", err)
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   PartitionKey(event.AuctionID.String()),
		Value: value,
	})
	if err != nil {
		// The key was claimed but the publish failed; release it so a retry
		// is not suppressed.
		n.releaseDedup(ctx, event)
		return fmt.Errorf("notify: publish %s: %w", topic, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func (n *KafkaNotifier) alreadySent(ctx context.Context, event domain.Event) bool {
	if n.rdb == nil || event.DedupKey == "" {
		return false
	}
	ok, err := n.rdb.SetNX(ctx, dedupKey(event), 1, dedupTTL).Result()
	if err != nil {
		// Redis being down never blocks a notification.
		log.Warn("notification dedup check failed", zap.Error(err))
		return false
	}
	return !ok
}

func (n *KafkaNotifier) releaseDedup(ctx context.Context, event domain.Event) {
	if n.rdb == nil || event.DedupKey == "" {
		return
	}
	if err := n.rdb.Del(ctx, dedupKey(event)).Err(); err != nil {
		log.Warn("failed to release dedup key", zap.Error(err))
	}
}

func dedupKey(event domain.Event) string {
	return fmt.Sprintf("dedup:notify:%s:%s", event.Type, event.DedupKey)
}
