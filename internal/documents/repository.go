package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/platform/db"
	"github.com/stocklane/stocklane/internal/stock"
)

// Repository persists documents in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	stock.TxRepository
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction. The
// wrapper carries the stock transactional surface so posting appends ledger
// entries in the same transaction as the status flip.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("documents repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxRepository: stock.NewTxRepository(tx), tx: tx})
	})
}

// GetDocument reads one document with its lines.
func (r *Repository) GetDocument(ctx context.Context, id int64) (Document, error) {
	doc, err := scanDocument(r.pool.QueryRow(ctx, selectDocument+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	lines, err := r.loadLines(ctx, []int64{doc.ID})
	if err != nil {
		return Document{}, err
	}
	doc.Lines = lines[doc.ID]
	return doc, nil
}

// ListDocuments lists documents matching the filter, newest first, lines
// included.
func (r *Repository) ListDocuments(ctx context.Context, filter Filter) ([]Document, error) {
	query := selectDocument
	var conds []string
	var args []any
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conds = append(conds, fmt.Sprintf("document_type=$%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.WarehouseID != 0 {
		args = append(args, filter.WarehouseID)
		conds = append(conds, fmt.Sprintf("warehouse_id=$%d", len(args)))
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
	docs := []Document{}
	ids := []int64{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
		ids = append(ids, doc.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return docs, nil
	}
	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Lines = lines[docs[i].ID]
	}
	return docs, nil
}

func (r *Repository) loadLines(ctx context.Context, documentIDs []int64) (map[int64][]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, document_id, product_id, quantity
FROM document_lines WHERE document_id = ANY($1) ORDER BY id`, documentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := map[int64][]Line{}
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.DocumentID, &line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}
		lines[line.DocumentID] = append(lines[line.DocumentID], line)
	}
	return lines, rows.Err()
}

const selectDocument = `SELECT id, document_type, reference, status, warehouse_id, source_location_id, destination_location_id,
partner_name, note, scheduled_at, posted_at, validated_by, created_by, created_at, updated_at
FROM documents`

func (r *txRepository) InsertDocument(ctx context.Context, doc Document) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO documents (document_type, reference, status, warehouse_id, source_location_id, destination_location_id, partner_name, note, scheduled_at, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11) RETURNING id`,
		string(doc.Type), doc.Reference, string(doc.Status), doc.WarehouseID, doc.SourceLocationID,
		doc.DestinationLocationID, nullString(doc.PartnerName), doc.Note, doc.ScheduledAt,
		nullInt(doc.CreatedBy), doc.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLines(ctx context.Context, documentID int64, lines []Line) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO document_lines (document_id, product_id, quantity)
VALUES ($1,$2,$3)`, documentID, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetDocumentForUpdate(ctx context.Context, id int64) (Document, error) {
	doc, err := scanDocument(r.tx.QueryRow(ctx, selectDocument+` WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, document_id, product_id, quantity
FROM document_lines WHERE document_id=$1 ORDER BY id`, id)
	if err != nil {
		return Document{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.DocumentID, &line.ProductID, &line.Quantity); err != nil {
			return Document{}, err
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc, rows.Err()
}

func (r *txRepository) UpdateDocumentStatus(ctx context.Context, id int64, status Status, postedAt *time.Time, validatedBy *int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE documents SET status=$2, posted_at=COALESCE($3, posted_at), validated_by=COALESCE($4, validated_by), updated_at=NOW() WHERE id=$1`,
		id, string(status), postedAt, validatedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// NextReference atomically increments and returns the per-warehouse,
// per-operation sequence counter.
func (r *txRepository) NextReference(ctx context.Context, warehouseCode, opCode string) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `INSERT INTO document_sequences (warehouse_code, op_code, last_value)
VALUES ($1,$2,1)
ON CONFLICT (warehouse_code, op_code) DO UPDATE SET last_value = document_sequences.last_value + 1
RETURNING last_value`, warehouseCode, opCode).Scan(&seq)
	return seq, err
}

func (r *txRepository) GetWarehouseCode(ctx context.Context, warehouseID int64) (string, error) {
	var code string
	err := r.tx.QueryRow(ctx, `SELECT code FROM warehouses WHERE id=$1`, warehouseID).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: warehouse %d not found", ErrInvalidDocument, warehouseID)
	}
	return code, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var partner, note *string
	var createdBy *int64
	if err := row.Scan(&doc.ID, &doc.Type, &doc.Reference, &doc.Status, &doc.WarehouseID,
		&doc.SourceLocationID, &doc.DestinationLocationID, &partner, &note, &doc.ScheduledAt,
		&doc.PostedAt, &doc.ValidatedBy, &createdBy, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return Document{}, err
	}
	if partner != nil {
		doc.PartnerName = *partner
	}
	if note != nil {
		doc.Note = *note
	}
	if createdBy != nil {
		doc.CreatedBy = *createdBy
	}
	return doc, nil
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
