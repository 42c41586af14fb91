package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LedgerEvent is the audit row written for every state-changing operation.
// Subject is the hex form of the primary key the operation touched.
type LedgerEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	Seq       int64          `gorm:"column:seq;not null;uniqueIndex" json:"seq"`
	EventType string         `gorm:"column:event_type;type:varchar(40);not null;index" json:"event_type"`
	Subject   string         `gorm:"column:subject;not null;index" json:"subject"`
	EventData datatypes.JSON `gorm:"column:event_data;not null" json:"event_data"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (LedgerEvent) TableName() string {
	return "LedgerEvents"
}

func (le *LedgerEvent) BeforeCreate(tx *gorm.DB) error {
	if le.EventID == uuid.Nil {
		le.EventID = uuid.New()
	}
	return nil
}
