package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storevision-service/internal/clients"
	"storevision-service/internal/events"
	"storevision-service/internal/metrics"
	"storevision-service/internal/models"
	"storevision-service/internal/repository"
)

// Service-level errors for scan operations
var (
	ErrScanNotFound          = errors.New("scan event not found")
	ErrScanItemNotFound      = errors.New("scan item not found")
	ErrInvalidScanState      = errors.New("invalid scan state")
	ErrImageUploadFailed     = errors.New("image upload failed")
	ErrDetectionFailed       = errors.New("AI detection failed")
	ErrImageStoreUnavailable = errors.New("image store is not configured")
	ErrDetectorUnavailable   = errors.New("detection provider is not configured")
)

const (
	uploadTimeout = 30 * time.Second
	detectTimeout = 60 * time.Second
)

// ImageStore is the capability needed to host scan photos. A nil store
// means the capability is absent and processing refuses up front.
type ImageStore interface {
	Upload(ctx context.Context, image []byte, fileName string) (*clients.ImageUpload, error)
	Delete(ctx context.Context, storageID string) error
}

// Detector is the capability that turns a shelf photo into detections.
type Detector interface {
	Detect(ctx context.Context, image []byte, prompts []string) (*clients.DetectionOutcome, error)
}

// ScanEventPublisher publishes scan lifecycle events
type ScanEventPublisher interface {
	PublishScanCompleted(ctx context.Context, event events.ScanCompletedEvent) error
	PublishScanFailed(ctx context.Context, event events.ScanFailedEvent) error
}

// ScanService owns the scan lifecycle: queued -> processing -> completed | failed
type ScanService struct {
	repo      repository.ScanRepositoryInterface
	images    ImageStore
	detector  Detector
	publisher ScanEventPublisher
	logger    *logrus.Logger
}

// NewScanService creates a new scan service. images, detector and publisher
// may be nil when the corresponding backend isn't configured.
func NewScanService(
	repo repository.ScanRepositoryInterface,
	images ImageStore,
	detector Detector,
	publisher ScanEventPublisher,
	logger *logrus.Logger,
) *ScanService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ScanService{
		repo:      repo,
		images:    images,
		detector:  detector,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateScanEvent starts a new scan session in the queued state
func (s *ScanService) CreateScanEvent(ctx context.Context, userID string) (*models.ScanEvent, error) {
	event := &models.ScanEvent{
		UserID: userID,
		Status: models.ScanStatusQueued,
	}
	if err := s.repo.CreateScanEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create scan event: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"scanEventId": event.ID,
		"userId":      userID,
	}).Info("Scan event created")

	return event, nil
}

// GetScanEvent retrieves a scan with its items and results
func (s *ScanService) GetScanEvent(ctx context.Context, id uuid.UUID) (*models.ScanEvent, error) {
	event, err := s.repo.GetScanEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, err
	}
	return event, nil
}

// ListScanEvents retrieves scans, optionally filtered by user
func (s *ScanService) ListScanEvents(ctx context.Context, userID string) ([]models.ScanEvent, error) {
	return s.repo.ListScanEvents(ctx, userID)
}

// ListScansByStatus lists scans in a given state. Queued and processing
// views back the stuck-scan monitor.
func (s *ScanService) ListScansByStatus(ctx context.Context, status models.ScanStatus) ([]models.ScanEvent, error) {
	return s.repo.ListScanEventsByStatus(ctx, status)
}

// AddItem appends a manual tally to a queued scan. Scans that have started
// processing no longer accept tallies.
func (s *ScanService) AddItem(ctx context.Context, scanEventID, productID uuid.UUID, count int) (*models.ScanItem, error) {
	event, err := s.repo.GetScanEventByID(ctx, scanEventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, err
	}

	if event.Status != models.ScanStatusQueued {
		return nil, fmt.Errorf("%w: cannot add items to scan with status %s", ErrInvalidScanState, event.Status)
	}

	item := &models.ScanItem{
		ScanEventID: scanEventID,
		ProductID:   productID,
		Count:       count,
	}
	if err := s.repo.AddScanItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add scan item: %w", err)
	}

	return item, nil
}

// RemoveItem removes a manual tally. Like AddItem it is guarded to queued
// scans so tallies can't change under a pass that already ran.
func (s *ScanService) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	item, err := s.repo.GetScanItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrScanItemNotFound
		}
		return err
	}

	event, err := s.repo.GetScanEventByID(ctx, item.ScanEventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrScanNotFound
		}
		return err
	}
	if event.Status != models.ScanStatusQueued {
		return fmt.Errorf("%w: cannot remove items from scan with status %s", ErrInvalidScanState, event.Status)
	}

	return s.repo.DeleteScanItem(ctx, itemID)
}

// UploadAndProcess runs the single detection pass of a scan: claim the
// queued scan, upload the photo, call the detection provider, persist
// results. The processing mark is durable before either external call so a
// crash mid-pass leaves the scan visibly stuck rather than silently queued.
// One attempt only; any failure lands the scan in the failed state.
func (s *ScanService) UploadAndProcess(ctx context.Context, scanEventID uuid.UUID, image []byte, prompts []string) (*models.ScanEvent, error) {
	if s.images == nil {
		return nil, ErrImageStoreUnavailable
	}
	if s.detector == nil {
		return nil, ErrDetectorUnavailable
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", ErrImageUploadFailed)
	}

	// Claim the scan. The guarded transition is what makes double
	// processing impossible under concurrent requests.
	if err := s.repo.TransitionStatus(ctx, scanEventID, models.ScanStatusQueued, models.ScanStatusProcessing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScanNotFound
		}
		if errors.Is(err, repository.ErrStateConflict) {
			event, getErr := s.repo.GetScanEventByID(ctx, scanEventID)
			if getErr != nil {
				return nil, fmt.Errorf("%w: scan is not queued", ErrInvalidScanState)
			}
			return nil, fmt.Errorf("%w: cannot process scan with status %s", ErrInvalidScanState, event.Status)
		}
		return nil, err
	}
	metrics.ScansStartedTotal.Inc()

	log := s.logger.WithField("scanEventId", scanEventID)

	uploadCtx, cancelUpload := context.WithTimeout(ctx, uploadTimeout)
	defer cancelUpload()
	upload, err := s.images.Upload(uploadCtx, image, scanEventID.String())
	if err != nil {
		log.WithError(err).Error("Image upload failed")
		s.markFailed(ctx, scanEventID, "image upload failed")
		return nil, fmt.Errorf("%w: %v", ErrImageUploadFailed, err)
	}

	detectCtx, cancelDetect := context.WithTimeout(ctx, detectTimeout)
	defer cancelDetect()
	detectStart := time.Now()
	outcome, err := s.detector.Detect(detectCtx, image, prompts)
	metrics.DetectionDuration.Observe(time.Since(detectStart).Seconds())
	if err != nil {
		log.WithError(err).Error("Detection call failed")
		s.markFailed(ctx, scanEventID, "detection call failed")
		return nil, fmt.Errorf("%w: %v", ErrDetectionFailed, err)
	}

	results, err := buildScanResults(outcome.Results)
	if err != nil {
		log.WithError(err).Warn("Detection returned unusable results")
		s.markFailed(ctx, scanEventID, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrDetectionFailed, err)
	}

	promptsJSON, _ := json.Marshal(resolvePrompts(prompts))
	if err := s.repo.CompleteWithResults(ctx, scanEventID, upload.URL, upload.StorageID, outcome.ProcessingMs, promptsJSON, results); err != nil {
		log.WithError(err).Error("Failed to record scan results")
		s.markFailed(ctx, scanEventID, "failed to record results")
		return nil, fmt.Errorf("failed to record scan results: %w", err)
	}
	metrics.ScansCompletedTotal.Inc()

	log.WithFields(logrus.Fields{
		"resultCount":  len(results),
		"processingMs": outcome.ProcessingMs,
	}).Info("Scan completed")

	event, err := s.repo.GetScanEventByID(ctx, scanEventID)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		go func(ev models.ScanEvent) {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.publisher.PublishScanCompleted(pubCtx, events.ScanCompletedEvent{
				ScanEventID:  ev.ID.String(),
				UserID:       ev.UserID,
				ResultCount:  len(ev.Results),
				ProcessingMs: outcome.ProcessingMs,
			})
		}(*event)
	}

	return event, nil
}

// CompleteScan force-completes a scan regardless of state (administrative)
func (s *ScanService) CompleteScan(ctx context.Context, id uuid.UUID) (*models.ScanEvent, error) {
	if err := s.repo.UpdateStatus(ctx, id, models.ScanStatusCompleted); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, err
	}
	return s.repo.GetScanEventByID(ctx, id)
}

// CancelScan hard-deletes a scan with its items and results. Processing
// scans can't be cancelled: the external pass may still land its outcome.
func (s *ScanService) CancelScan(ctx context.Context, id uuid.UUID) error {
	event, err := s.repo.GetScanEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrScanNotFound
		}
		return err
	}

	if event.Status == models.ScanStatusProcessing {
		return fmt.Errorf("%w: cannot cancel scan with status %s", ErrInvalidScanState, event.Status)
	}

	if err := s.repo.DeleteScanEvent(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrScanNotFound
		}
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"scanEventId": id,
		"status":      event.Status,
	}).Info("Scan event deleted")

	return nil
}

// markFailed lands the scan in the failed state after a pass went wrong.
// Errors here are logged, not returned: the caller already has the real
// failure to report. Uploaded images from failed passes are kept.
func (s *ScanService) markFailed(ctx context.Context, id uuid.UUID, reason string) {
	// The pass may have failed because the caller disconnected. The failed
	// mark must still land, or the scan stays stuck in processing forever.
	ctx = context.WithoutCancel(ctx)

	if err := s.repo.UpdateStatus(ctx, id, models.ScanStatusFailed); err != nil {
		s.logger.WithField("scanEventId", id).WithError(err).Error("Failed to mark scan as failed")
		return
	}
	metrics.ScansFailedTotal.Inc()

	if s.publisher != nil {
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.publisher.PublishScanFailed(pubCtx, events.ScanFailedEvent{
				ScanEventID: id.String(),
				Reason:      reason,
			})
		}()
	}
}

// buildScanResults validates provider detections and maps each one to a
// result row. Zero detections or a malformed detection means the pass
// failed: a successful scan of an empty shelf is indistinguishable from a
// provider that silently gave up, so neither is treated as success.
func buildScanResults(detections []clients.Detection) ([]models.ScanResult, error) {
	if len(detections) == 0 {
		return nil, errors.New("detection provider returned no detections")
	}

	results := make([]models.ScanResult, 0, len(detections))
	for i, d := range detections {
		if d.Name == "" {
			return nil, fmt.Errorf("detection %d has no label", i)
		}
		if d.Confidence < 0 || d.Confidence > 1 {
			return nil, fmt.Errorf("detection %d has confidence %f outside [0,1]", i, d.Confidence)
		}
		if len(d.Bbox) != 4 {
			return nil, fmt.Errorf("detection %d has malformed bounding box", i)
		}

		results = append(results, models.ScanResult{
			ProductName:    d.Name,
			Confidence:     d.Confidence,
			BboxX1:         d.Bbox[0],
			BboxY1:         d.Bbox[1],
			BboxX2:         d.Bbox[2],
			BboxY2:         d.Bbox[3],
			EstimatedCount: 1,
		})
	}
	return results, nil
}

func resolvePrompts(prompts []string) []string {
	if len(prompts) == 0 {
		return clients.DefaultPrompts
	}
	return prompts
}
