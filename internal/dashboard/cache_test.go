package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	summaryCalls  int
	movementCalls int
	lowStock      []LowStockItem
}

func (s *stubRepo) CountProducts(ctx context.Context) (int64, error) {
	s.summaryCalls++
	return 12, nil
}
func (s *stubRepo) CountLowStock(ctx context.Context) (int64, error)   { return 3, nil }
func (s *stubRepo) CountOutOfStock(ctx context.Context) (int64, error) { return 1, nil }
func (s *stubRepo) CountPendingDocuments(ctx context.Context) (int64, error) {
	return 5, nil
}
func (s *stubRepo) CountPostedSince(ctx context.Context, since time.Time) (int64, error) {
	return 2, nil
}
func (s *stubRepo) SumStockValue(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(9000), nil
}
func (s *stubRepo) CountMovementsByType(ctx context.Context, since time.Time) (map[string]int, error) {
	s.movementCalls++
	return map[string]int{"RECEIPT": 4, "DELIVERY": 2}, nil
}

func (s *stubRepo) ListLowStock(ctx context.Context, limit int) ([]LowStockItem, error) {
	if limit < len(s.lowStock) {
		return s.lowStock[:limit], nil
	}
	return s.lowStock, nil
}

func TestMovementSummaryCached(t *testing.T) {
	cache, _ := newTestCache(t)
	repo := &stubRepo{}
	svc := NewService(repo, cache)
	ctx := context.Background()

	first, err := svc.GetMovementSummary(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 7, first.Days)
	require.Equal(t, 4, first.Counts["RECEIPT"])

	_, err = svc.GetMovementSummary(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 1, repo.movementCalls)

	_, err = svc.GetMovementSummary(ctx, 30)
	require.NoError(t, err)
	require.Equal(t, 2, repo.movementCalls)
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestSummaryCachedUntilBump(t *testing.T) {
	cache, _ := newTestCache(t)
	repo := &stubRepo{}
	svc := NewService(repo, cache)
	ctx := context.Background()

	first, err := svc.GetSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(12), first.TotalProducts)
	require.Equal(t, int64(5), first.PendingDocuments)
	require.True(t, first.StockValue.Equal(decimal.NewFromInt(9000)))
	require.Equal(t, 1, repo.summaryCalls)

	_, err = svc.GetSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.summaryCalls)

	require.NoError(t, cache.Bump(ctx))

	_, err = svc.GetSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, repo.summaryCalls)
}

func TestSummaryWithoutRedis(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil)

	summary, err := svc.GetSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(12), summary.TotalProducts)
}

func TestVersionInitialises(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)

	require.NoError(t, cache.Bump(ctx))
	ver, err = cache.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), ver)
}

func TestLowStockCached(t *testing.T) {
	cache, _ := newTestCache(t)
	repo := &stubRepo{lowStock: []LowStockItem{
		{ProductID: 1, ProductSKU: "SKU-1", Name: "Bolt", OnHand: decimal.NewFromInt(2), MinStock: decimal.NewFromInt(10)},
	}}
	svc := NewService(repo, cache)

	items, err := svc.GetLowStock(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "SKU-1", items[0].ProductSKU)
}
