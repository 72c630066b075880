package dashboard

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Summary carries the warehouse KPI figures.
type Summary struct {
	TotalProducts    int64           `json:"total_products"`
	LowStockCount    int64           `json:"low_stock_count"`
	OutOfStockCount  int64           `json:"out_of_stock_count"`
	PendingDocuments int64           `json:"pending_documents"`
	PostedToday      int64           `json:"posted_today"`
	StockValue       decimal.Decimal `json:"stock_value"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// LowStockItem names a product sitting at or below its minimum.
type LowStockItem struct {
	ProductID  int64           `json:"product_id"`
	ProductSKU string          `json:"product_sku"`
	Name       string          `json:"name"`
	OnHand     decimal.Decimal `json:"on_hand"`
	MinStock   decimal.Decimal `json:"min_stock"`
}

// MovementSummary tallies ledger entries by type over a trailing window.
type MovementSummary struct {
	Days        int            `json:"days"`
	Counts      map[string]int `json:"counts"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// RepositoryPort abstracts the KPI queries.
type RepositoryPort interface {
	CountProducts(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context) (int64, error)
	CountOutOfStock(ctx context.Context) (int64, error)
	CountPendingDocuments(ctx context.Context) (int64, error)
	CountPostedSince(ctx context.Context, since time.Time) (int64, error)
	SumStockValue(ctx context.Context) (decimal.Decimal, error)
	ListLowStock(ctx context.Context, limit int) ([]LowStockItem, error)
	CountMovementsByType(ctx context.Context, since time.Time) (map[string]int, error)
}

// Service aggregates dashboard figures, caching the assembled payloads.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// GetSummary returns the KPI summary, served from cache when fresh. The
// individual queries run concurrently.
func (s *Service) GetSummary(ctx context.Context) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard", "summary")
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.loadSummary(ctx)
	})
	return summary, err
}

func (s *Service) loadSummary(ctx context.Context) (Summary, error) {
	summary := Summary{GeneratedAt: s.now().UTC()}
	midnight := summary.GeneratedAt.Truncate(24 * time.Hour)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.CountProducts(ctx)
		summary.TotalProducts = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountLowStock(ctx)
		summary.LowStockCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountOutOfStock(ctx)
		summary.OutOfStockCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountPendingDocuments(ctx)
		summary.PendingDocuments = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountPostedSince(ctx, midnight)
		summary.PostedToday = n
		return err
	})
	g.Go(func() error {
		value, err := s.repo.SumStockValue(ctx)
		summary.StockValue = value
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// GetMovementSummary tallies movements per type over the last days, served
// from cache.
func (s *Service) GetMovementSummary(ctx context.Context, days int) (MovementSummary, error) {
	if days <= 0 {
		days = 7
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "movements", strconv.Itoa(days))
	if err != nil {
		return MovementSummary{}, err
	}
	var summary MovementSummary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		since := s.now().UTC().AddDate(0, 0, -days)
		counts, err := s.repo.CountMovementsByType(ctx, since)
		if err != nil {
			return nil, err
		}
		return MovementSummary{Days: days, Counts: counts, GeneratedAt: s.now().UTC()}, nil
	})
	return summary, err
}

// GetLowStock lists products at or below their minimum, served from cache.
func (s *Service) GetLowStock(ctx context.Context, limit int) ([]LowStockItem, error) {
	if limit <= 0 {
		limit = 20
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "low_stock", strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}
	var items []LowStockItem
	err = s.cache.FetchJSON(ctx, key, &items, func(ctx context.Context) (any, error) {
		return s.repo.ListLowStock(ctx, limit)
	})
	return items, err
}
