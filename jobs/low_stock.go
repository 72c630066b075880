package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stocklane/stocklane/internal/dashboard"
	jobmetrics "github.com/stocklane/stocklane/internal/jobs"
)

const lowStockScanLimit = 200

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the low stock scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// LowStockLister is the slice of the dashboard repository the scan needs.
type LowStockLister interface {
	ListLowStock(ctx context.Context, limit int) ([]dashboard.LowStockItem, error)
}

// LowStockScanner reports products at or below their minimum stock.
type LowStockScanner struct {
	repo    LowStockLister
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

func NewLowStockScanner(repo LowStockLister, metrics *jobmetrics.Metrics, logger *slog.Logger) *LowStockScanner {
	return &LowStockScanner{repo: repo, metrics: metrics, logger: logger}
}

// Handle processes TaskLowStockScan tasks.
func (s *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := s.metrics.Track("low_stock_scan")

	items, err := s.repo.ListLowStock(ctx, lowStockScanLimit)
	if err != nil {
		s.logger.Error("low stock scan failed", slog.Any("error", err))
		return tracker.End(err)
	}
	for _, item := range items {
		s.logger.Warn("product below minimum stock",
			slog.Int64("product_id", item.ProductID),
			slog.String("sku", item.ProductSKU),
			slog.String("on_hand", item.OnHand.String()),
			slog.String("min_stock", item.MinStock.String()),
		)
	}
	s.logger.Info("low stock scan complete", slog.Int("flagged", len(items)))
	return tracker.End(nil)
}
