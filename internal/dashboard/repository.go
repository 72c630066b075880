package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository answers the KPI queries from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CountProducts(ctx context.Context) (int64, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM products WHERE active`)
}

func (r *Repository) CountLowStock(ctx context.Context) (int64, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM (
  SELECT q.product_id FROM stock_quants q
  JOIN products p ON p.id = q.product_id
  WHERE p.active
  GROUP BY q.product_id, p.min_stock
  HAVING SUM(q.quantity) > 0 AND SUM(q.quantity) <= p.min_stock
) low`)
}

func (r *Repository) CountOutOfStock(ctx context.Context) (int64, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM products p
WHERE p.active AND COALESCE((SELECT SUM(q.quantity) FROM stock_quants q WHERE q.product_id = p.id), 0) <= 0`)
}

func (r *Repository) CountPendingDocuments(ctx context.Context) (int64, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM documents WHERE status IN ('DRAFT','WAITING','READY')`)
}

func (r *Repository) CountPostedSince(ctx context.Context, since time.Time) (int64, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM documents WHERE status='DONE' AND posted_at >= $1`, since)
}

func (r *Repository) SumStockValue(ctx context.Context) (decimal.Decimal, error) {
	var value decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(q.quantity * p.cost), 0)
FROM stock_quants q JOIN products p ON p.id = q.product_id`).Scan(&value)
	return value, err
}

// CountMovementsByType tallies ledger entries created since the given time.
func (r *Repository) CountMovementsByType(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT movement_type, COUNT(*)
FROM stock_movements WHERE created_at >= $1 GROUP BY movement_type`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var movementType string
		var count int
		if err := rows.Scan(&movementType, &count); err != nil {
			return nil, err
		}
		counts[movementType] = count
	}
	return counts, rows.Err()
}

func (r *Repository) ListLowStock(ctx context.Context, limit int) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.sku, p.name, COALESCE(SUM(q.quantity), 0) AS on_hand, p.min_stock
FROM products p
LEFT JOIN stock_quants q ON q.product_id = p.id
WHERE p.active
GROUP BY p.id, p.sku, p.name, p.min_stock
HAVING COALESCE(SUM(q.quantity), 0) <= p.min_stock
ORDER BY COALESCE(SUM(q.quantity), 0) ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LowStockItem{}
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductID, &item.ProductSKU, &item.Name, &item.OnHand, &item.MinStock); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) countRow(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}
