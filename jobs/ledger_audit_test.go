package jobs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/dashboard"
	jobmetrics "github.com/stocklane/stocklane/internal/jobs"
	"github.com/stocklane/stocklane/internal/stock"
)

type auditStockRepo struct {
	quants map[stock.QuantKey]stock.Quant
	sums   map[stock.QuantKey]decimal.Decimal
}

func (r *auditStockRepo) WithTx(ctx context.Context, fn func(context.Context, stock.TxRepository) error) error {
	return fn(ctx, nil)
}

func (r *auditStockRepo) GetQuant(_ context.Context, productID, locationID int64) (stock.Quant, error) {
	q, ok := r.quants[stock.QuantKey{ProductID: productID, LocationID: locationID}]
	if !ok {
		return stock.Quant{}, stock.ErrQuantNotFound
	}
	return q, nil
}

func (r *auditStockRepo) ListQuants(_ context.Context, _ stock.QuantFilter) ([]stock.Quant, error) {
	out := make([]stock.Quant, 0, len(r.quants))
	for _, q := range r.quants {
		out = append(out, q)
	}
	return out, nil
}

func (r *auditStockRepo) ListMovements(_ context.Context, _ stock.MovementFilter) ([]stock.Movement, error) {
	return nil, nil
}

func (r *auditStockRepo) SumMovementDeltas(_ context.Context) (map[stock.QuantKey]decimal.Decimal, error) {
	return r.sums, nil
}

func newAuditTask(t *testing.T) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(LedgerAuditPayload{ScheduledFor: time.Now()})
	require.NoError(t, err)
	return asynq.NewTask(TaskLedgerAudit, body)
}

func TestLedgerAuditRecordsDrift(t *testing.T) {
	key := stock.QuantKey{ProductID: 1, LocationID: 10}
	repo := &auditStockRepo{
		quants: map[stock.QuantKey]stock.Quant{
			key: {ProductID: 1, LocationID: 10, Quantity: decimal.RequireFromString("37")},
		},
		sums: map[stock.QuantKey]decimal.Decimal{
			key: decimal.RequireFromString("30"),
		},
	}
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	svc := stock.NewService(repo, stock.NewLedger(stock.LedgerConfig{}), nil)
	auditor := NewLedgerAuditor(svc, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, auditor.Handle(context.Background(), newAuditTask(t)))

	drift, err := testutil.GatherAndCount(registry, "stocklane_ledger_drift_total")
	require.NoError(t, err)
	require.Equal(t, 1, drift)
}

func TestLedgerAuditCleanLedger(t *testing.T) {
	key := stock.QuantKey{ProductID: 1, LocationID: 10}
	repo := &auditStockRepo{
		quants: map[stock.QuantKey]stock.Quant{
			key: {ProductID: 1, LocationID: 10, Quantity: decimal.RequireFromString("30")},
		},
		sums: map[stock.QuantKey]decimal.Decimal{
			key: decimal.RequireFromString("30"),
		},
	}
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	svc := stock.NewService(repo, stock.NewLedger(stock.LedgerConfig{}), nil)
	auditor := NewLedgerAuditor(svc, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, auditor.Handle(context.Background(), newAuditTask(t)))

	drift, err := testutil.GatherAndCount(registry, "stocklane_ledger_drift_total")
	require.NoError(t, err)
	require.Equal(t, 0, drift)
}

type stubLowStockLister struct {
	items []dashboard.LowStockItem
}

func (s *stubLowStockLister) ListLowStock(_ context.Context, _ int) ([]dashboard.LowStockItem, error) {
	return s.items, nil
}

func TestLowStockScan(t *testing.T) {
	lister := &stubLowStockLister{items: []dashboard.LowStockItem{
		{ProductID: 1, ProductSKU: "SKU-001", OnHand: decimal.RequireFromString("3"), MinStock: decimal.RequireFromString("10")},
	}}
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	scanner := NewLowStockScanner(lister, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))

	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: time.Now()})
	require.NoError(t, err)
	require.NoError(t, scanner.Handle(context.Background(), asynq.NewTask(TaskLowStockScan, body)))
}
