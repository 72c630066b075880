package locations

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/masterdata/shared"
	"github.com/stocklane/stocklane/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error)
	Get(ctx context.Context, id int64) (Location, error)
	Path(ctx context.Context, id int64) ([]PathEntry, error)
	Create(ctx context.Context, loc Location) (Location, error)
	Update(ctx context.Context, id int64, loc Location) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectLocation = `SELECT id, warehouse_id, parent_id, code, name, kind, active, created_at, updated_at FROM stock_locations`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.WarehouseID != nil {
		argCount++
		where += ` AND warehouse_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.WarehouseID)
	}
	if filters.Active != nil {
		argCount++
		where += ` AND active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.Active)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_locations`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectLocation + where + ` ORDER BY warehouse_id ASC, code ASC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, 0, err
		}
		locations = append(locations, loc)
	}
	return locations, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Location, error) {
	loc, err := scanLocation(r.pool.QueryRow(ctx, selectLocation+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, shared.ErrNotFound
	}
	return loc, err
}

// Path walks parent_id links with a recursive CTE and returns the chain from
// the root location down to the requested one.
func (r *repository) Path(ctx context.Context, id int64) ([]PathEntry, error) {
	rows, err := r.pool.Query(ctx, `
WITH RECURSIVE chain AS (
    SELECT id, parent_id, code, 0 AS depth FROM stock_locations WHERE id = $1
    UNION ALL
    SELECT l.id, l.parent_id, l.code, chain.depth + 1
    FROM stock_locations l
    JOIN chain ON l.id = chain.parent_id
)
SELECT id, code FROM chain ORDER BY depth DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var path []PathEntry
	for rows.Next() {
		var entry PathEntry
		if err := rows.Scan(&entry.ID, &entry.Code); err != nil {
			return nil, err
		}
		path = append(path, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, shared.ErrNotFound
	}
	return path, nil
}

func (r *repository) Create(ctx context.Context, loc Location) (Location, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO stock_locations (warehouse_id, parent_id, code, name, kind, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		loc.WarehouseID, loc.ParentID, loc.Code, loc.Name, loc.Kind, loc.Active).
		Scan(&loc.ID, &loc.CreatedAt, &loc.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return Location{}, shared.ErrDuplicate
	}
	if db.IsForeignKeyViolation(err) {
		return Location{}, shared.ErrValidation
	}
	return loc, err
}

func (r *repository) Update(ctx context.Context, id int64, loc Location) error {
	tag, err := r.pool.Exec(ctx, `UPDATE stock_locations SET warehouse_id=$2, parent_id=$3, code=$4, name=$5, kind=$6, active=$7, updated_at=NOW() WHERE id=$1`,
		id, loc.WarehouseID, loc.ParentID, loc.Code, loc.Name, loc.Kind, loc.Active)
	if db.IsUniqueViolation(err) {
		return shared.ErrDuplicate
	}
	if db.IsForeignKeyViolation(err) {
		return shared.ErrValidation
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE stock_locations SET active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (Location, error) {
	var loc Location
	err := row.Scan(&loc.ID, &loc.WarehouseID, &loc.ParentID, &loc.Code, &loc.Name, &loc.Kind, &loc.Active, &loc.CreatedAt, &loc.UpdatedAt)
	return loc, err
}
