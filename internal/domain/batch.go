package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Batch is the provenance record of one harvest lot. Only MediaRef and
// LabTestRef change after registration.
type Batch struct {
	ID           common.Hash `gorm:"column:batch_id;primaryKey" json:"batch_id"`
	Seq          int64       `gorm:"column:seq;not null;index" json:"seq"`
	HarvestedAt  int64       `gorm:"column:harvested_at;not null" json:"harvested_at"`
	CropType     string      `gorm:"column:crop_type;not null" json:"crop_type"`
	WeightGrams  uint64      `gorm:"column:weight_grams;not null" json:"weight_grams"`
	QualityGrade uint8       `gorm:"column:quality_grade;not null" json:"quality_grade"`
	FarmerID     common.Hash `gorm:"column:farmer_id;not null;index" json:"farmer_id"`
	Location     string      `gorm:"column:location" json:"location"`
	MediaRef     string      `gorm:"column:media_ref" json:"media_ref"`
	LabTestRef   string      `gorm:"column:lab_test_ref" json:"lab_test_ref"`
	CreatedAt    time.Time   `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt    time.Time   `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Batch) TableName() string {
	return "Batches"
}

// HasLabTest reports whether a lab-test reference was attached.
func (b *Batch) HasLabTest() bool {
	return b.LabTestRef != ""
}
