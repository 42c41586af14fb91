package events

import (
	"context"

	"harvest-backend/internal/domain"
	"harvest-backend/internal/infrastructure/database"
)

// Service reads the ledger audit trail.
type Service struct {
	Ledger *database.Ledger
}

// ListBySubject returns the events of one entity, oldest first.
func (s *Service) ListBySubject(ctx context.Context, subject string) ([]domain.LedgerEvent, error) {
	if subject == "" {
		return nil, ErrSubjectRequired
	}
	var out []domain.LedgerEvent
	if err := s.Ledger.Conn(ctx).Where("subject = ?", subject).Order("seq ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListSince returns up to limit events with a sequence greater than after, so
// consumers that missed pub/sub messages can catch up.
func (s *Service) ListSince(ctx context.Context, after int64, limit int) ([]domain.LedgerEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	var out []domain.LedgerEvent
	if err := s.Ledger.Conn(ctx).Where("seq > ?", after).Order("seq ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
