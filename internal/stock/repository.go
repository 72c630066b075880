package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stocklane/stocklane/internal/platform/db"
)

// Repository persists ledger entries and quants in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NewTxRepository wraps an existing transaction so other modules can append
// ledger entries inside their own transactional scope.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetQuant reads one quant row without locking.
func (r *Repository) GetQuant(ctx context.Context, productID, locationID int64) (Quant, error) {
	var quant Quant
	err := r.pool.QueryRow(ctx, `SELECT product_id, location_id, quantity, reserved_quantity, updated_at
FROM stock_quants WHERE product_id=$1 AND location_id=$2`, productID, locationID).
		Scan(&quant.ProductID, &quant.LocationID, &quant.Quantity, &quant.Reserved, &quant.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quant{}, ErrQuantNotFound
	}
	if err != nil {
		return Quant{}, err
	}
	return quant, nil
}

// ListQuants lists quant rows matching the filter.
func (r *Repository) ListQuants(ctx context.Context, filter QuantFilter) ([]Quant, error) {
	query := `SELECT product_id, location_id, quantity, reserved_quantity, updated_at FROM stock_quants`
	var conds []string
	var args []any
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		conds = append(conds, fmt.Sprintf("product_id=$%d", len(args)))
	}
	if filter.LocationID != 0 {
		args = append(args, filter.LocationID)
		conds = append(conds, fmt.Sprintf("location_id=$%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY product_id, location_id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	quants := []Quant{}
	for rows.Next() {
		var quant Quant
		if err := rows.Scan(&quant.ProductID, &quant.LocationID, &quant.Quantity, &quant.Reserved, &quant.UpdatedAt); err != nil {
			return nil, err
		}
		quants = append(quants, quant)
	}
	return quants, rows.Err()
}

// ListMovements lists ledger entries matching the filter, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	query := `SELECT id, movement_type, product_id, source_location_id, destination_location_id, quantity,
document_type, document_number, ref_id, note, created_by, created_at
FROM stock_movements`
	var conds []string
	var args []any
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		conds = append(conds, fmt.Sprintf("product_id=$%d", len(args)))
	}
	if filter.LocationID != 0 {
		args = append(args, filter.LocationID)
		conds = append(conds, fmt.Sprintf("(source_location_id=$%d OR destination_location_id=$%d)", len(args), len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conds = append(conds, fmt.Sprintf("movement_type=$%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		movement, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, movement)
	}
	return movements, rows.Err()
}

// SumMovementDeltas recomputes every (product, location) balance from the
// ledger. Each entry contributes its quantity to the destination and its
// negation to the source.
func (r *Repository) SumMovementDeltas(ctx context.Context) (map[QuantKey]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, location_id, SUM(delta) FROM (
  SELECT product_id, destination_location_id AS location_id, quantity AS delta
  FROM stock_movements WHERE destination_location_id IS NOT NULL
  UNION ALL
  SELECT product_id, source_location_id AS location_id, -quantity AS delta
  FROM stock_movements WHERE source_location_id IS NOT NULL
) deltas GROUP BY product_id, location_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sums := map[QuantKey]decimal.Decimal{}
	for rows.Next() {
		var key QuantKey
		var sum decimal.Decimal
		if err := rows.Scan(&key.ProductID, &key.LocationID, &sum); err != nil {
			return nil, err
		}
		sums[key] = sum
	}
	return sums, rows.Err()
}

func (r *txRepository) GetQuantForUpdate(ctx context.Context, productID, locationID int64) (Quant, error) {
	var quant Quant
	err := r.tx.QueryRow(ctx, `SELECT product_id, location_id, quantity, reserved_quantity, updated_at
FROM stock_quants WHERE product_id=$1 AND location_id=$2 FOR UPDATE`, productID, locationID).
		Scan(&quant.ProductID, &quant.LocationID, &quant.Quantity, &quant.Reserved, &quant.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quant{ProductID: productID, LocationID: locationID}, ErrQuantNotFound
	}
	if err != nil {
		return Quant{}, err
	}
	return quant, nil
}

func (r *txRepository) UpsertQuant(ctx context.Context, quant Quant) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_quants (product_id, location_id, quantity, reserved_quantity, updated_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (product_id, location_id) DO UPDATE SET quantity=EXCLUDED.quantity, reserved_quantity=EXCLUDED.reserved_quantity, updated_at=NOW()`,
		quant.ProductID, quant.LocationID, quant.Quantity, quant.Reserved)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, movement Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (movement_type, product_id, source_location_id, destination_location_id, quantity, document_type, document_number, ref_id, note, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		string(movement.Type), movement.ProductID, movement.SourceLocationID, movement.DestinationLocationID,
		movement.Quantity, nullString(movement.DocumentType), nullString(movement.DocumentNumber),
		nullString(movement.RefID), movement.Note, nullInt(movement.CreatedBy), movement.CreatedAt).Scan(&id)
	return id, err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovement(row rowScanner) (Movement, error) {
	var movement Movement
	var docType, docNumber, refID, note *string
	var createdBy *int64
	var createdAt time.Time
	if err := row.Scan(&movement.ID, &movement.Type, &movement.ProductID, &movement.SourceLocationID,
		&movement.DestinationLocationID, &movement.Quantity, &docType, &docNumber, &refID, &note,
		&createdBy, &createdAt); err != nil {
		return Movement{}, err
	}
	movement.DocumentType = deref(docType)
	movement.DocumentNumber = deref(docNumber)
	movement.RefID = deref(refID)
	movement.Note = deref(note)
	if createdBy != nil {
		movement.CreatedBy = *createdBy
	}
	movement.CreatedAt = createdAt
	return movement, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
