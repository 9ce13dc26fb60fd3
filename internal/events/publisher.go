// Package events provides NATS event publishing for storevision-service
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	streamName = "STOREVISION"

	SubjectStockUpdated  = "stock.updated"
	SubjectStockLow      = "stock.low"
	SubjectScanCompleted = "scan.completed"
	SubjectScanFailed    = "scan.failed"
)

// Publisher publishes domain events to NATS JetStream
type Publisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the stream exists
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("NATS URL is required")
	}

	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("storevision-publisher"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"stock.>", "scan.>"},
		Storage:  nats.FileStorage,
	}); err != nil {
		log.WithError(err).Warn("Failed to ensure event stream exists")
	}

	return &Publisher{
		nc:     nc,
		js:     js,
		logger: log.WithField("component", "events"),
	}, nil
}

// StockUpdatedEvent is emitted after every stock reconciliation
type StockUpdatedEvent struct {
	ProductID     string    `json:"productId"`
	SKU           string    `json:"sku"`
	StoreID       string    `json:"storeId"`
	UserID        string    `json:"userId"`
	Delta         int       `json:"delta"`
	Stock         int       `json:"stock"`
	PreviousStock int       `json:"previousStock"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// StockLowEvent is emitted when reconciliation leaves a product at or below
// the configured threshold
type StockLowEvent struct {
	ProductID   string    `json:"productId"`
	SKU         string    `json:"sku"`
	ProductName string    `json:"productName"`
	StoreID     string    `json:"storeId"`
	Stock       int       `json:"stock"`
	Threshold   int       `json:"threshold"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// ScanCompletedEvent is emitted when a scan pass records its results
type ScanCompletedEvent struct {
	ScanEventID  string    `json:"scanEventId"`
	UserID       string    `json:"userId"`
	ResultCount  int       `json:"resultCount"`
	ProcessingMs int64     `json:"processingTimeMs"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// ScanFailedEvent is emitted when a scan pass ends in the failed state
type ScanFailedEvent struct {
	ScanEventID string    `json:"scanEventId"`
	UserID      string    `json:"userId"`
	Reason      string    `json:"reason"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func (p *Publisher) publish(ctx context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		p.logger.WithField("subject", subject).WithError(err).Error("Failed to publish event")
		return err
	}

	p.logger.WithField("subject", subject).Debug("Published event")
	return nil
}

// PublishStockUpdated publishes a stock.updated event
func (p *Publisher) PublishStockUpdated(ctx context.Context, event StockUpdatedEvent) error {
	event.OccurredAt = time.Now().UTC()
	return p.publish(ctx, SubjectStockUpdated, event)
}

// PublishStockLow publishes a stock.low event
func (p *Publisher) PublishStockLow(ctx context.Context, event StockLowEvent) error {
	event.OccurredAt = time.Now().UTC()
	return p.publish(ctx, SubjectStockLow, event)
}

// PublishScanCompleted publishes a scan.completed event
func (p *Publisher) PublishScanCompleted(ctx context.Context, event ScanCompletedEvent) error {
	event.OccurredAt = time.Now().UTC()
	return p.publish(ctx, SubjectScanCompleted, event)
}

// PublishScanFailed publishes a scan.failed event
func (p *Publisher) PublishScanFailed(ctx context.Context, event ScanFailedEvent) error {
	event.OccurredAt = time.Now().UTC()
	return p.publish(ctx, SubjectScanFailed, event)
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
