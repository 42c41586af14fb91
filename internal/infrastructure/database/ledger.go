package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"harvest-backend/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNoTransaction is returned when an event is emitted outside Serialize.
var ErrNoTransaction = errors.New("ledger event emitted outside a serialized operation")

// EventSink receives committed ledger events. Delivery is the sink's concern;
// the ledger never waits on or retries it.
type EventSink interface {
	Publish(ctx context.Context, events []domain.LedgerEvent)
}

// Ledger serializes every state-changing operation: one process-wide lock and
// one database transaction per top-level call. On Postgres the transaction
// also holds an advisory lock, so keepers and writers in other processes
// queue behind it. Nested calls join the caller's transaction through a
// savepoint, so a failing inner operation rolls back only its own writes.
type Ledger struct {
	DB   *gorm.DB
	Sink EventSink

	mu sync.Mutex
}

// ledgerLockKey identifies the ledger's Postgres advisory lock.
const ledgerLockKey int64 = 0x68617276657374

type txKey struct{}

type txState struct {
	tx     *gorm.DB
	events []domain.LedgerEvent
}

// Serialize runs fn atomically. Events emitted inside fn reach the sink only
// after the outermost transaction commits.
func (l *Ledger) Serialize(ctx context.Context, fn func(ctx context.Context) error) error {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		outer := state.tx
		mark := len(state.events)
		err := outer.Transaction(func(tx *gorm.DB) error {
			state.tx = tx
			return fn(ctx)
		})
		state.tx = outer
		if err != nil {
			state.events = state.events[:mark]
		}
		return err
	}

	state, err := l.commit(ctx, fn)
	if err != nil {
		return err
	}
	if l.Sink != nil && len(state.events) > 0 {
		l.Sink.Publish(ctx, state.events)
	}
	return nil
}

func (l *Ledger) commit(ctx context.Context, fn func(ctx context.Context) error) (*txState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := &txState{}
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if stmt := advisoryLockSQL(tx.Dialector.Name()); stmt != "" {
			if err := tx.Exec(stmt, ledgerLockKey).Error; err != nil {
				return fmt.Errorf("acquire ledger lock: %w", err)
			}
		}
		state.tx = tx
		return fn(context.WithValue(ctx, txKey{}, state))
	})
	return state, err
}

// advisoryLockSQL returns the cross-process lock statement for a dialect, or
// "" when the database already admits a single writer (SQLite).
func advisoryLockSQL(dialect string) string {
	if dialect == "postgres" {
		return "SELECT pg_advisory_xact_lock(?)"
	}
	return ""
}

// Conn returns the transaction bound to ctx, or a plain session for reads
// issued outside Serialize.
func (l *Ledger) Conn(ctx context.Context) *gorm.DB {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.tx
	}
	return l.DB.WithContext(ctx)
}

// Emit appends an audit row for the current operation and queues it for the sink.
func (l *Ledger) Emit(ctx context.Context, eventType, subject string, data map[string]interface{}) error {
	state, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		return ErrNoTransaction
	}
	seq, err := NextSeq(state.tx, &domain.LedgerEvent{})
	if err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	evt := domain.LedgerEvent{
		Seq:       seq,
		EventType: eventType,
		Subject:   subject,
		EventData: datatypes.JSON(payload),
	}
	if err := state.tx.Create(&evt).Error; err != nil {
		return fmt.Errorf("record %s event: %w", eventType, err)
	}
	state.events = append(state.events, evt)
	return nil
}

// NextSeq returns the next insertion sequence for a table with a seq column.
func NextSeq(tx *gorm.DB, model interface{}) (int64, error) {
	var last int64
	if err := tx.Model(model).Select("COALESCE(MAX(seq), 0)").Scan(&last).Error; err != nil {
		return 0, err
	}
	return last + 1, nil
}
