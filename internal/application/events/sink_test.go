package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"harvest-backend/internal/domain"
	"harvest-backend/internal/infrastructure/database"
	"harvest-backend/internal/pkg/apperr"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type recordingSink struct {
	got []domain.LedgerEvent
}

func (r *recordingSink) Publish(_ context.Context, events []domain.LedgerEvent) {
	r.got = append(r.got, events...)
}

func sampleEvent(seq int64) domain.LedgerEvent {
	return domain.LedgerEvent{
		EventID:   uuid.New(),
		Seq:       seq,
		EventType: "BID_PLACED",
		Subject:   "0xabc",
		EventData: datatypes.JSON(`{"amount":11000}`),
		CreatedAt: time.Unix(1722470400, 0).UTC(),
	}
}

func TestNewMessage_EmptyPayload(t *testing.T) {
	evt := sampleEvent(1)
	evt.EventData = nil
	msg := NewMessage(evt)
	assert.JSONEq(t, `{}`, string(msg.Data))
	assert.Equal(t, evt.EventID.String(), msg.EventID)
}

func TestRedisPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "test:events")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := &RedisPublisher{Rdb: rdb, Channel: "test:events"}
	pub.Publish(ctx, []domain.LedgerEvent{sampleEvent(7)})

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	raw, err := sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw.Payload), &msg))
	assert.Equal(t, int64(7), msg.Seq)
	assert.Equal(t, "BID_PLACED", msg.EventType)
	assert.JSONEq(t, `{"amount":11000}`, string(msg.Data))
}

func TestRedisPublisher_NilClientIsNoop(t *testing.T) {
	var pub *RedisPublisher
	assert.NotPanics(t, func() { pub.Publish(context.Background(), []domain.LedgerEvent{sampleEvent(1)}) })
}

func TestFanout(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	Fanout{a, nil, LogSink{}, b}.Publish(context.Background(), []domain.LedgerEvent{sampleEvent(1), sampleEvent(2)})
	assert.Len(t, a.got, 2)
	assert.Len(t, b.got, 2)
}

func TestService_Lists(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	sink := &recordingSink{}
	ledger := &database.Ledger{DB: db, Sink: sink}
	svc := &Service{Ledger: ledger}
	ctx := context.Background()

	for _, subject := range []string{"a", "b", "a"} {
		require.NoError(t, ledger.Serialize(ctx, func(ctx context.Context) error {
			return ledger.Emit(ctx, "TEST", subject, map[string]interface{}{"k": subject})
		}))
	}
	assert.Len(t, sink.got, 3)

	got, err := svc.ListBySubject(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Seq)
	assert.Equal(t, int64(3), got[1].Seq)

	_, err = svc.ListBySubject(ctx, "")
	assert.ErrorIs(t, err, ErrSubjectRequired)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	since, err := svc.ListSince(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, "b", since[0].Subject)
}
