package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScanStatus represents the lifecycle state of a scan event.
// Transitions: queued -> processing -> completed | failed. Terminal states
// never transition again except through administrative deletion.
type ScanStatus string

const (
	ScanStatusQueued     ScanStatus = "queued"
	ScanStatusProcessing ScanStatus = "processing"
	ScanStatusCompleted  ScanStatus = "completed"
	ScanStatusFailed     ScanStatus = "failed"
)

// ScanEvent is one shelf-scan session: manual item tallies collected while
// queued, then a single image upload + detection pass.
type ScanEvent struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	UserID         string         `json:"userId" gorm:"type:varchar(255);not null;index"`
	Status         ScanStatus     `json:"status" gorm:"type:varchar(20);not null;default:'queued';index"`
	ImageURL       *string        `json:"imageUrl,omitempty" gorm:"column:image_url;type:varchar(512)"`
	ImageStorageID *string        `json:"imageStorageId,omitempty" gorm:"column:image_storage_id;type:varchar(255)"`
	ProcessingMs   *int64         `json:"processingTimeMs,omitempty" gorm:"column:processing_time_ms"`
	Prompts        datatypes.JSON `json:"prompts,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Items   []ScanItem   `json:"items,omitempty" gorm:"foreignKey:ScanEventID"`
	Results []ScanResult `json:"results,omitempty" gorm:"foreignKey:ScanEventID"`
}

func (s *ScanEvent) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ScanItem is a manual tally attached to a queued scan.
type ScanItem struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ScanEventID uuid.UUID `json:"scanEventId" gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	Count       int       `json:"count" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (i *ScanItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ScanResult is one detection returned by the vision provider. Counting is
// not inferred from overlapping boxes: every detection contributes exactly
// one estimated unit.
type ScanResult struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ScanEventID    uuid.UUID `json:"scanEventId" gorm:"type:uuid;not null;index"`
	ProductName    string    `json:"productName" gorm:"type:varchar(255);not null"`
	Confidence     float64   `json:"confidence" gorm:"type:decimal(5,4);not null"`
	BboxX1         float64   `json:"bboxX1" gorm:"column:bbox_x1;not null"`
	BboxY1         float64   `json:"bboxY1" gorm:"column:bbox_y1;not null"`
	BboxX2         float64   `json:"bboxX2" gorm:"column:bbox_x2;not null"`
	BboxY2         float64   `json:"bboxY2" gorm:"column:bbox_y2;not null"`
	EstimatedCount int       `json:"estimatedCount" gorm:"not null;default:1"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (r *ScanResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName implementations
func (ScanEvent) TableName() string {
	return "scan_events"
}

func (ScanItem) TableName() string {
	return "scan_items"
}

func (ScanResult) TableName() string {
	return "scan_results"
}

// Request/Response models

type AddScanItemRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Count     int       `json:"count" binding:"required,gt=0"`
}

// UploadScanRequest carries the shelf photo as base64 plus optional prompt
// overrides for the detection provider.
type UploadScanRequest struct {
	Image   string   `json:"image" binding:"required"`
	Prompts []string `json:"prompts,omitempty"`
}

type ScanEventResponse struct {
	Success bool       `json:"success"`
	Data    *ScanEvent `json:"data,omitempty"`
	Message *string    `json:"message,omitempty"`
}

type ScanEventListResponse struct {
	Success bool        `json:"success"`
	Data    []ScanEvent `json:"data"`
}

type ScanItemResponse struct {
	Success bool      `json:"success"`
	Data    *ScanItem `json:"data,omitempty"`
	Message *string   `json:"message,omitempty"`
}
