package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocklane/stocklane/internal/platform/db"
	"github.com/stocklane/stocklane/internal/shared"
	"github.com/stocklane/stocklane/internal/stock"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetDocument(ctx context.Context, id int64) (Document, error)
	ListDocuments(ctx context.Context, filter Filter) ([]Document, error)
}

// TxRepository exposes the transactional surface document posting runs on.
// It embeds the stock transactional surface so the status flip and the ledger
// append commit or roll back together.
type TxRepository interface {
	stock.TxRepository
	InsertDocument(ctx context.Context, doc Document) (int64, error)
	InsertLines(ctx context.Context, documentID int64, lines []Line) error
	GetDocumentForUpdate(ctx context.Context, id int64) (Document, error)
	UpdateDocumentStatus(ctx context.Context, id int64, status Status, postedAt *time.Time, validatedBy *int64) error
	NextReference(ctx context.Context, warehouseCode, opCode string) (int64, error)
	GetWarehouseCode(ctx context.Context, warehouseID int64) (string, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort records posting outcomes.
type MetricsPort interface {
	RecordPosting(documentType string)
	RecordPostingFailure(documentType, reason string)
}

// CachePort invalidates derived read models after a posting.
type CachePort interface {
	Bump(ctx context.Context) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	RetryAttempts int
	RetryBackoff  time.Duration
}

// CreateInput describes a new document.
type CreateInput struct {
	Type                  Type
	WarehouseID           int64
	SourceLocationID      *int64
	DestinationLocationID *int64
	PartnerName           string
	Note                  string
	ScheduledAt           *time.Time
	ActorID               int64
	Lines                 []LineInput
}

// LineInput describes one line of a new document.
type LineInput struct {
	ProductID int64
	Quantity  decimal.Decimal
}

// Service coordinates the document lifecycle from draft to posting.
type Service struct {
	repo     RepositoryPort
	ledger   *stock.Ledger
	audit    AuditPort
	metrics  MetricsPort
	cache    CachePort
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *stock.Ledger, audit AuditPort, metrics MetricsPort, cache CachePort, logger *slog.Logger, cfg ServiceConfig) *Service {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	return &Service{
		repo:     repo,
		ledger:   ledger,
		audit:    audit,
		metrics:  metrics,
		cache:    cache,
		logger:   logger,
		attempts: attempts,
		backoff:  backoff,
		now:      time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Create stores a new draft document, assigning the next reference in the
// warehouse's sequence for the document's operation.
func (s *Service) Create(ctx context.Context, input CreateInput) (Document, error) {
	doc := Document{
		Type:                  input.Type,
		Status:                StatusDraft,
		WarehouseID:           input.WarehouseID,
		SourceLocationID:      input.SourceLocationID,
		DestinationLocationID: input.DestinationLocationID,
		PartnerName:           input.PartnerName,
		Note:                  input.Note,
		ScheduledAt:           input.ScheduledAt,
		CreatedBy:             input.ActorID,
	}
	for _, line := range input.Lines {
		doc.Lines = append(doc.Lines, Line{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	if err := validateStructure(doc); err != nil {
		return Document{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		warehouseCode, err := tx.GetWarehouseCode(ctx, doc.WarehouseID)
		if err != nil {
			return err
		}
		seq, err := tx.NextReference(ctx, warehouseCode, doc.Type.OperationCode())
		if err != nil {
			return fmt.Errorf("documents: next reference: %w", err)
		}
		doc.Reference = fmt.Sprintf("%s/%s/%03d", warehouseCode, doc.Type.OperationCode(), seq)
		now := s.now().UTC()
		doc.CreatedAt = now
		doc.UpdatedAt = now
		id, err := tx.InsertDocument(ctx, doc)
		if err != nil {
			return fmt.Errorf("documents: insert document: %w", err)
		}
		doc.ID = id
		if err := tx.InsertLines(ctx, id, doc.Lines); err != nil {
			return fmt.Errorf("documents: insert lines: %w", err)
		}
		for i := range doc.Lines {
			doc.Lines[i].DocumentID = id
		}
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	s.recordAudit(ctx, input.ActorID, "documents.create", doc.ID)
	return doc, nil
}

// Validate posts the document: every line becomes a ledger entry and the
// status flips to DONE in the same transaction. Validating a DONE document is
// a no-op returning the document unchanged. Serialization losses are retried
// a bounded number of times before surfacing as a conflict.
func (s *Service) Validate(ctx context.Context, id, actorID int64) (Document, error) {
	var doc Document
	var posted bool
	for attempt := 1; ; attempt++ {
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			current, err := tx.GetDocumentForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if current.Status == StatusDone {
				doc = current
				posted = false
				return nil
			}
			if !current.Status.CanValidate() {
				return fmt.Errorf("%w: status %s", ErrNotPostable, current.Status)
			}
			movements, err := buildMovements(current, actorID)
			if err != nil {
				return err
			}
			for _, movement := range movements {
				if _, err := s.ledger.Append(ctx, tx, movement); err != nil {
					return err
				}
			}
			now := s.now().UTC()
			validatedBy := actorID
			if err := tx.UpdateDocumentStatus(ctx, current.ID, StatusDone, &now, &validatedBy); err != nil {
				return fmt.Errorf("documents: update status: %w", err)
			}
			current.Status = StatusDone
			current.PostedAt = &now
			current.ValidatedBy = &validatedBy
			doc = current
			posted = true
			return nil
		})
		if err == nil {
			break
		}
		if db.IsSerializationFailure(err) {
			if attempt < s.attempts {
				if s.logger != nil {
					s.logger.Warn("document posting retry", "document_id", id, "attempt", attempt)
				}
				if err := s.sleep(ctx, time.Duration(attempt)*s.backoff); err != nil {
					return Document{}, err
				}
				continue
			}
			err = ErrConcurrencyConflict
		}
		s.recordFailure(ctx, id, err)
		return Document{}, err
	}
	if posted {
		if s.metrics != nil {
			s.metrics.RecordPosting(string(doc.Type))
		}
		s.recordAudit(ctx, actorID, "documents.validate", doc.ID)
		s.bumpCache(ctx)
	}
	return doc, nil
}

// Cancel abandons a document that has not been posted. Cancelling a cancelled
// document is a no-op.
func (s *Service) Cancel(ctx context.Context, id, actorID int64) (Document, error) {
	var doc Document
	var cancelled bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetDocumentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusCancelled {
			doc = current
			return nil
		}
		if !current.Status.CanCancel() {
			return fmt.Errorf("%w: status %s", ErrNotCancellable, current.Status)
		}
		if err := tx.UpdateDocumentStatus(ctx, current.ID, StatusCancelled, nil, nil); err != nil {
			return err
		}
		current.Status = StatusCancelled
		doc = current
		cancelled = true
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	if cancelled {
		s.recordAudit(ctx, actorID, "documents.cancel", doc.ID)
	}
	return doc, nil
}

// Progress advances the document one intermediate step, DRAFT to WAITING or
// WAITING to READY. Posting does not require these steps; they exist for
// warehouses that stage their work.
func (s *Service) Progress(ctx context.Context, id, actorID int64) (Document, error) {
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetDocumentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, ok := current.Status.next()
		if !ok {
			return fmt.Errorf("%w: status %s", ErrNotProgressable, current.Status)
		}
		if err := tx.UpdateDocumentStatus(ctx, current.ID, next, nil, nil); err != nil {
			return err
		}
		current.Status = next
		doc = current
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	s.recordAudit(ctx, actorID, "documents.progress", doc.ID)
	return doc, nil
}

// Get returns one document with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	return s.repo.GetDocument(ctx, id)
}

// List returns documents matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Document, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidDocument, filter.Type)
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidDocument, filter.Status)
	}
	return s.repo.ListDocuments(ctx, filter)
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) recordFailure(ctx context.Context, id int64, err error) {
	if s.metrics == nil {
		return
	}
	doc, getErr := s.repo.GetDocument(ctx, id)
	docType := "unknown"
	if getErr == nil {
		docType = string(doc.Type)
	}
	s.metrics.RecordPostingFailure(docType, failureReason(err))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, stock.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidDocument), errors.Is(err, stock.ErrInvalidQuantity), errors.Is(err, stock.ErrLocationRequired):
		return "invalid_document"
	case errors.Is(err, ErrNotPostable):
		return "not_postable"
	case errors.Is(err, ErrConcurrencyConflict):
		return "conflict"
	default:
		return "error"
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "document",
		EntityID: strconv.FormatInt(id, 10),
		At:       s.now().UTC(),
	})
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("dashboard cache bump failed", "error", err)
	}
}
