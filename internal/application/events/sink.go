package events

import (
	"context"
	"encoding/json"
	"time"

	"harvest-backend/internal/domain"
	"harvest-backend/internal/infrastructure/database"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultChannel is the Redis pub/sub channel dashboards subscribe to.
const DefaultChannel = "harvest:events"

// Message is the wire shape published for each committed ledger event.
type Message struct {
	EventID   string          `json:"event_id"`
	Seq       int64           `json:"seq"`
	EventType string          `json:"event_type"`
	Subject   string          `json:"subject"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewMessage converts an audit row into its published form.
func NewMessage(evt domain.LedgerEvent) Message {
	data := json.RawMessage(evt.EventData)
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	return Message{
		EventID:   evt.EventID.String(),
		Seq:       evt.Seq,
		EventType: evt.EventType,
		Subject:   evt.Subject,
		Data:      data,
		CreatedAt: evt.CreatedAt,
	}
}

// RedisPublisher publishes committed events on a Redis channel. Failures are
// logged and dropped; the audit table remains the source of truth.
type RedisPublisher struct {
	Rdb     *redis.Client
	Channel string
}

func (p *RedisPublisher) Publish(ctx context.Context, events []domain.LedgerEvent) {
	if p == nil || p.Rdb == nil {
		return
	}
	channel := p.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	for _, evt := range events {
		b, err := json.Marshal(NewMessage(evt))
		if err != nil {
			log.Warn().Err(err).Str("event_type", evt.EventType).Msg("Event encode failed")
			continue
		}
		if err := p.Rdb.Publish(ctx, channel, b).Err(); err != nil {
			log.Warn().Err(err).Str("event_type", evt.EventType).Int64("seq", evt.Seq).Msg("Event publish failed")
		}
	}
}

// LogSink writes committed events to the structured log.
type LogSink struct{}

func (LogSink) Publish(ctx context.Context, events []domain.LedgerEvent) {
	for _, evt := range events {
		log.Info().
			Int64("seq", evt.Seq).
			Str("event_type", evt.EventType).
			Str("subject", evt.Subject).
			RawJSON("data", []byte(evt.EventData)).
			Msg("Ledger event")
	}
}

// Fanout forwards events to every sink in order.
type Fanout []database.EventSink

func (f Fanout) Publish(ctx context.Context, events []domain.LedgerEvent) {
	for _, s := range f {
		if s != nil {
			s.Publish(ctx, events)
		}
	}
}
