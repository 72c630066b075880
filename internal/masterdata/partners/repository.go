package partners

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Partner, int, error)
	Get(ctx context.Context, id int64) (Partner, error)
	Create(ctx context.Context, partner Partner) (Partner, error)
	Update(ctx context.Context, id int64, partner Partner) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectPartner = `SELECT id, name, kind, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), active, created_at, updated_at FROM partners`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Partner, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR email ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.Active != nil {
		argCount++
		where += ` AND active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.Active)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM partners`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectPartner + where + ` ORDER BY name ASC`
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

	var partners []Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, 0, err
		}
		partners = append(partners, p)
	}
	return partners, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Partner, error) {
	p, err := scanPartner(r.pool.QueryRow(ctx, selectPartner+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Partner{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, partner Partner) (Partner, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO partners (name, kind, email, phone, address, active, created_at, updated_at)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),$6,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		partner.Name, partner.Kind, partner.Email, partner.Phone, partner.Address, partner.Active).
		Scan(&partner.ID, &partner.CreatedAt, &partner.UpdatedAt)
	return partner, err
}

func (r *repository) Update(ctx context.Context, id int64, partner Partner) error {
	tag, err := r.pool.Exec(ctx, `UPDATE partners SET name=$2, kind=$3, email=NULLIF($4,''), phone=NULLIF($5,''), address=NULLIF($6,''), active=$7, updated_at=NOW() WHERE id=$1`,
		id, partner.Name, partner.Kind, partner.Email, partner.Phone, partner.Address, partner.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE partners SET active=$2, updated_at=NOW() WHERE id=$1`, id, active)
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

func scanPartner(row rowScanner) (Partner, error) {
	var p Partner
	err := row.Scan(&p.ID, &p.Name, &p.Kind, &p.Email, &p.Phone, &p.Address, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
