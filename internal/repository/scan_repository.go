package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storevision-service/internal/models"
)

// ErrStateConflict is returned when a guarded status transition matched no
// row because the scan was no longer in the expected state.
var ErrStateConflict = errors.New("scan status conflict")

// ScanRepositoryInterface defines the contract for scan data access
type ScanRepositoryInterface interface {
	CreateScanEvent(ctx context.Context, event *models.ScanEvent) error
	GetScanEventByID(ctx context.Context, id uuid.UUID) (*models.ScanEvent, error)
	ListScanEvents(ctx context.Context, userID string) ([]models.ScanEvent, error)
	ListScanEventsByStatus(ctx context.Context, status models.ScanStatus) ([]models.ScanEvent, error)
	ListScanEventsSince(ctx context.Context, userID string, since time.Time) ([]models.ScanEvent, error)
	SumScanItemCountsByStore(ctx context.Context, storeID string) (map[uuid.UUID]int, error)
	CountScanEventsByUser(ctx context.Context, userIDs []string, since time.Time) (map[string]int, error)
	AddScanItem(ctx context.Context, item *models.ScanItem) error
	GetScanItemByID(ctx context.Context, id uuid.UUID) (*models.ScanItem, error)
	DeleteScanItem(ctx context.Context, id uuid.UUID) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.ScanStatus) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ScanStatus) error
	CompleteWithResults(ctx context.Context, id uuid.UUID, imageURL, imageStorageID string, processingMs int64, prompts []byte, results []models.ScanResult) error
	DeleteScanEvent(ctx context.Context, id uuid.UUID) error
}

type ScanRepository struct {
	db *gorm.DB
}

func NewScanRepository(db *gorm.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// CreateScanEvent creates a new scan event
func (r *ScanRepository) CreateScanEvent(ctx context.Context, event *models.ScanEvent) error {
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(event).Error
}

// GetScanEventByID retrieves a scan event with its items and results
func (r *ScanRepository) GetScanEventByID(ctx context.Context, id uuid.UUID) (*models.ScanEvent, error) {
	var event models.ScanEvent
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("Results").
		Where("id = ?", id).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// ListScanEvents retrieves scan events, optionally filtered by user,
// newest first
func (r *ScanRepository) ListScanEvents(ctx context.Context, userID string) ([]models.ScanEvent, error) {
	var events []models.ScanEvent
	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Results")

	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	err := query.Order("created_at DESC").Find(&events).Error
	return events, err
}

// ListScanEventsByStatus retrieves scan events in a given state, oldest
// first so stuck scans surface at the top
func (r *ScanRepository) ListScanEventsByStatus(ctx context.Context, status models.ScanStatus) ([]models.ScanEvent, error) {
	var events []models.ScanEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

// ListScanEventsSince retrieves scan events created after the given time,
// optionally filtered by user
func (r *ScanRepository) ListScanEventsSince(ctx context.Context, userID string, since time.Time) ([]models.ScanEvent, error) {
	var events []models.ScanEvent
	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Results").
		Where("created_at >= ?", since)

	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	err := query.Order("created_at DESC").Find(&events).Error
	return events, err
}

// SumScanItemCountsByStore totals manual tally counts per product across all
// scans, restricted to products of the given store
func (r *ScanRepository) SumScanItemCountsByStore(ctx context.Context, storeID string) (map[uuid.UUID]int, error) {
	var rows []struct {
		ProductID uuid.UUID
		Total     int
	}
	err := r.db.WithContext(ctx).Model(&models.ScanItem{}).
		Select("scan_items.product_id AS product_id, COALESCE(SUM(scan_items.count), 0) AS total").
		Joins("JOIN products ON products.id = scan_items.product_id").
		Where("products.store_id = ?", storeID).
		Group("scan_items.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		totals[row.ProductID] = row.Total
	}
	return totals, nil
}

// CountScanEventsByUser counts scans per user created after the given time
func (r *ScanRepository) CountScanEventsByUser(ctx context.Context, userIDs []string, since time.Time) (map[string]int, error) {
	counts := make(map[string]int, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		UserID string
		Total  int
	}
	err := r.db.WithContext(ctx).Model(&models.ScanEvent{}).
		Select("user_id, COUNT(*) AS total").
		Where("user_id IN ? AND created_at >= ?", userIDs, since).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.UserID] = row.Total
	}
	return counts, nil
}

// AddScanItem appends a manual tally to a scan event
func (r *ScanRepository) AddScanItem(ctx context.Context, item *models.ScanItem) error {
	item.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(item).Error
}

// GetScanItemByID retrieves a scan item
func (r *ScanRepository) GetScanItemByID(ctx context.Context, id uuid.UUID) (*models.ScanItem, error) {
	var item models.ScanItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// DeleteScanItem removes a scan item
func (r *ScanRepository) DeleteScanItem(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ScanItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TransitionStatus moves a scan from one state to another with a guarded
// UPDATE. Zero rows affected means the scan either doesn't exist or is no
// longer in the expected state; the two are distinguished by a follow-up
// read so concurrent callers get a precise error.
func (r *ScanRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.ScanStatus) error {
	result := r.db.WithContext(ctx).Model(&models.ScanEvent{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.ScanEvent{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrStateConflict
	}
	return nil
}

// UpdateStatus sets a scan's status unconditionally (administrative path)
func (r *ScanRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ScanStatus) error {
	result := r.db.WithContext(ctx).Model(&models.ScanEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteWithResults persists the detection outcome and flips the scan to
// completed in one transaction, so a pass that fails partway leaves zero
// result rows behind.
func (r *ScanRepository) CompleteWithResults(ctx context.Context, id uuid.UUID, imageURL, imageStorageID string, processingMs int64, prompts []byte, results []models.ScanResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range results {
			results[i].ScanEventID = id
			results[i].CreatedAt = time.Now()
			if err := tx.Create(&results[i]).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"status":             models.ScanStatusCompleted,
			"image_url":          imageURL,
			"image_storage_id":   imageStorageID,
			"processing_time_ms": processingMs,
			"updated_at":         time.Now(),
		}
		if len(prompts) > 0 {
			updates["prompts"] = prompts
		}

		result := tx.Model(&models.ScanEvent{}).
			Where("id = ?", id).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteScanEvent hard-deletes a scan with its items and results
func (r *ScanRepository) DeleteScanEvent(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scan_event_id = ?", id).Delete(&models.ScanItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("scan_event_id = ?", id).Delete(&models.ScanResult{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.ScanEvent{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
