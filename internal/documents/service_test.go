package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/stock"
)

func ptr(v int64) *int64 { return &v }

func qty(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestService(repo *memoryRepo) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := ServiceConfig{RetryAttempts: 3, RetryBackoff: time.Millisecond}
	return NewService(repo, stock.NewLedger(stock.LedgerConfig{}), nil, nil, nil, logger, cfg)
}

func createReceipt(t *testing.T, svc *Service, productID int64, quantity string) Document {
	t.Helper()
	doc, err := svc.Create(context.Background(), CreateInput{
		Type:                  TypeReceipt,
		WarehouseID:           1,
		DestinationLocationID: ptr(10),
		Lines:                 []LineInput{{ProductID: productID, Quantity: qty(quantity)}},
	})
	require.NoError(t, err)
	return doc
}

func createDelivery(t *testing.T, svc *Service, productID int64, quantity string) Document {
	t.Helper()
	doc, err := svc.Create(context.Background(), CreateInput{
		Type:             TypeDelivery,
		WarehouseID:      1,
		SourceLocationID: ptr(10),
		Lines:            []LineInput{{ProductID: productID, Quantity: qty(quantity)}},
	})
	require.NoError(t, err)
	return doc
}

func quantAt(repo *memoryRepo, productID, locationID int64) decimal.Decimal {
	return repo.quants[quantKey{productID: productID, locationID: locationID}].Quantity
}

func TestCreateAssignsReference(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	doc := createReceipt(t, svc, 1, "10")
	require.Equal(t, "WH/IN/001", doc.Reference)
	require.Equal(t, StatusDraft, doc.Status)
	require.NotZero(t, doc.ID)

	doc = createReceipt(t, svc, 1, "10")
	require.Equal(t, "WH/IN/002", doc.Reference)

	// Each operation keeps its own counter.
	doc = createDelivery(t, svc, 1, "1")
	require.Equal(t, "WH/OUT/001", doc.Reference)
}

func TestSequencePerWarehouseAndOperation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	for i := 0; i < 6; i++ {
		createDelivery(t, svc, 1, "1")
	}
	doc := createDelivery(t, svc, 1, "1")
	require.Equal(t, "WH/OUT/007", doc.Reference)

	other, err := svc.Create(context.Background(), CreateInput{
		Type:             TypeDelivery,
		WarehouseID:      2,
		SourceLocationID: ptr(20),
		Lines:            []LineInput{{ProductID: 1, Quantity: qty("1")}},
	})
	require.NoError(t, err)
	require.Equal(t, "WH2/OUT/001", other.Reference)
}

func TestCreateRejectsBadStructure(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		Type:        TypeReceipt,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 1, Quantity: qty("1")}},
	})
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = svc.Create(ctx, CreateInput{
		Type:                  TypeTransfer,
		WarehouseID:           1,
		SourceLocationID:      ptr(10),
		DestinationLocationID: ptr(10),
		Lines:                 []LineInput{{ProductID: 1, Quantity: qty("1")}},
	})
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = svc.Create(ctx, CreateInput{
		Type:                  TypeReceipt,
		WarehouseID:           1,
		DestinationLocationID: ptr(10),
	})
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = svc.Create(ctx, CreateInput{
		Type:                  TypeReceipt,
		WarehouseID:           1,
		DestinationLocationID: ptr(10),
		Lines:                 []LineInput{{ProductID: 1, Quantity: qty("-5")}},
	})
	require.ErrorIs(t, err, ErrInvalidDocument)

	// Rounds to zero at the ledger's quantity scale, so it could never post.
	_, err = svc.Create(ctx, CreateInput{
		Type:                  TypeReceipt,
		WarehouseID:           1,
		DestinationLocationID: ptr(10),
		Lines:                 []LineInput{{ProductID: 1, Quantity: qty("0.0004")}},
	})
	require.ErrorIs(t, err, ErrInvalidDocument)
}

func TestValidatePostsReceipt(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doc := createReceipt(t, svc, 1, "100")
	posted, err := svc.Validate(ctx, doc.ID, 42)
	require.NoError(t, err)
	require.Equal(t, StatusDone, posted.Status)
	require.NotNil(t, posted.PostedAt)
	require.NotNil(t, posted.ValidatedBy)
	require.Equal(t, int64(42), *posted.ValidatedBy)

	require.True(t, quantAt(repo, 1, 10).Equal(qty("100")))
	require.Len(t, repo.movements, 1)
	require.Equal(t, doc.Reference, repo.movements[0].DocumentNumber)
	require.Equal(t, int64(42), repo.movements[0].CreatedBy)
}

func TestReceiveThenDeliverScenario(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	receipt := createReceipt(t, svc, 1, "100")
	_, err := svc.Validate(ctx, receipt.ID, 0)
	require.NoError(t, err)

	first := createDelivery(t, svc, 1, "30")
	_, err = svc.Validate(ctx, first.ID, 0)
	require.NoError(t, err)

	second := createDelivery(t, svc, 1, "20")
	_, err = svc.Validate(ctx, second.ID, 0)
	require.NoError(t, err)

	require.True(t, quantAt(repo, 1, 10).Equal(qty("50")))

	third := createDelivery(t, svc, 1, "60")
	_, err = svc.Validate(ctx, third.ID, 0)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Available.Equal(qty("50")))
	require.True(t, insufficient.Required.Equal(qty("60")))

	// Nothing changed: quantity intact, no extra ledger entries, document
	// still awaiting validation.
	require.True(t, quantAt(repo, 1, 10).Equal(qty("50")))
	require.Len(t, repo.movements, 3)
	current, err := svc.Get(ctx, third.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, current.Status)
}

func TestConcurrentDeliveriesOneWins(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	receipt := createReceipt(t, svc, 1, "50")
	_, err := svc.Validate(ctx, receipt.ID, 0)
	require.NoError(t, err)

	// Two deliveries race for the same stock; there is only enough for one.
	first := createDelivery(t, svc, 1, "50")
	second := createDelivery(t, svc, 1, "50")

	errs := make(chan error, 2)
	for _, id := range []int64{first.ID, second.ID} {
		go func(id int64) {
			_, err := svc.Validate(ctx, id, 0)
			errs <- err
		}(id)
	}

	var posted, rejected int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			posted++
		case errors.Is(err, stock.ErrInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected validation error: %v", err)
		}
	}
	require.Equal(t, 1, posted)
	require.Equal(t, 1, rejected)
	require.True(t, quantAt(repo, 1, 10).IsZero())
	require.Len(t, repo.movements, 2)
}

func TestValidateIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doc := createReceipt(t, svc, 1, "100")
	first, err := svc.Validate(ctx, doc.ID, 0)
	require.NoError(t, err)

	second, err := svc.Validate(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Equal(t, StatusDone, second.Status)
	require.Equal(t, first.PostedAt, second.PostedAt)

	require.Len(t, repo.movements, 1)
	require.True(t, quantAt(repo, 1, 10).Equal(qty("100")))
}

func TestMultiLineAtomicity(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	receipt := createReceipt(t, svc, 1, "100")
	_, err := svc.Validate(ctx, receipt.ID, 0)
	require.NoError(t, err)

	doc, err := svc.Create(ctx, CreateInput{
		Type:             TypeDelivery,
		WarehouseID:      1,
		SourceLocationID: ptr(10),
		Lines: []LineInput{
			{ProductID: 1, Quantity: qty("40")},
			{ProductID: 2, Quantity: qty("5")},
		},
	})
	require.NoError(t, err)

	_, err = svc.Validate(ctx, doc.ID, 0)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	// The first line's debit must roll back with the failed second line.
	require.True(t, quantAt(repo, 1, 10).Equal(qty("100")))
	require.Len(t, repo.movements, 1)
}

func TestTransferPostsSymmetricEntries(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	receipt := createReceipt(t, svc, 1, "50")
	_, err := svc.Validate(ctx, receipt.ID, 0)
	require.NoError(t, err)

	doc, err := svc.Create(ctx, CreateInput{
		Type:                  TypeTransfer,
		WarehouseID:           1,
		SourceLocationID:      ptr(10),
		DestinationLocationID: ptr(20),
		Lines:                 []LineInput{{ProductID: 1, Quantity: qty("15")}},
	})
	require.NoError(t, err)

	_, err = svc.Validate(ctx, doc.ID, 0)
	require.NoError(t, err)

	require.True(t, quantAt(repo, 1, 10).Equal(qty("35")))
	require.True(t, quantAt(repo, 1, 20).Equal(qty("15")))

	// One outbound and one inbound entry sharing the document reference.
	var legs []stock.Movement
	for _, m := range repo.movements {
		if m.DocumentNumber == doc.Reference {
			legs = append(legs, m)
		}
	}
	require.Len(t, legs, 2)
	require.NotNil(t, legs[0].SourceLocationID)
	require.Nil(t, legs[0].DestinationLocationID)
	require.Nil(t, legs[1].SourceLocationID)
	require.NotNil(t, legs[1].DestinationLocationID)
	require.True(t, legs[0].Quantity.Equal(legs[1].Quantity))
}

func TestAdjustmentSignedLines(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	receipt := createReceipt(t, svc, 1, "10")
	_, err := svc.Validate(ctx, receipt.ID, 0)
	require.NoError(t, err)

	doc, err := svc.Create(ctx, CreateInput{
		Type:                  TypeAdjustment,
		WarehouseID:           1,
		DestinationLocationID: ptr(10),
		Lines: []LineInput{
			{ProductID: 1, Quantity: qty("-3")},
			{ProductID: 2, Quantity: qty("5")},
		},
	})
	require.NoError(t, err)

	_, err = svc.Validate(ctx, doc.ID, 0)
	require.NoError(t, err)

	require.True(t, quantAt(repo, 1, 10).Equal(qty("7")))
	require.True(t, quantAt(repo, 2, 10).Equal(qty("5")))
}

func TestValidateRetriesSerializationFailures(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doc := createReceipt(t, svc, 1, "10")
	repo.txErr = &pgconn.PgError{Code: "40001"}
	repo.txErrCount = 2

	posted, err := svc.Validate(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Equal(t, StatusDone, posted.Status)
}

func TestValidateGivesUpAfterRetries(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doc := createReceipt(t, svc, 1, "10")
	repo.txErr = &pgconn.PgError{Code: "40001"}
	repo.txErrCount = 10

	_, err := svc.Validate(ctx, doc.ID, 0)
	require.ErrorIs(t, err, ErrConcurrencyConflict)
}

func TestCancelLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doc := createReceipt(t, svc, 1, "10")
	cancelled, err := svc.Cancel(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	// Cancelling again is a no-op.
	_, err = svc.Cancel(ctx, doc.ID, 0)
	require.NoError(t, err)

	// A cancelled document cannot be validated.
	_, err = svc.Validate(ctx, doc.ID, 0)
	require.ErrorIs(t, err, ErrNotPostable)

	posted := createReceipt(t, svc, 1, "10")
	_, err = svc.Validate(ctx, posted.ID, 0)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, posted.ID, 0)
	require.ErrorIs(t, err, ErrNotCancellable)
}

func TestProgressLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doc := createReceipt(t, svc, 1, "10")

	next, err := svc.Progress(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, next.Status)

	next, err = svc.Progress(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Equal(t, StatusReady, next.Status)

	_, err = svc.Progress(ctx, doc.ID, 0)
	require.ErrorIs(t, err, ErrNotProgressable)

	// READY documents still validate.
	posted, err := svc.Validate(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Equal(t, StatusDone, posted.Status)
}

func TestListFilters(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		createReceipt(t, svc, int64(i+1), fmt.Sprintf("%d", i+1))
	}
	delivery := createDelivery(t, svc, 1, "1")
	_, err := svc.Validate(ctx, delivery.ID, 0)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	docs, err := svc.List(ctx, Filter{Type: TypeReceipt})
	require.NoError(t, err)
	require.Len(t, docs, 3)

	docs, err = svc.List(ctx, Filter{Status: StatusDraft})
	require.NoError(t, err)
	require.Len(t, docs, 4)

	docs, err = svc.List(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	// Newest first.
	require.Equal(t, delivery.ID, docs[0].ID)

	_, err = svc.List(ctx, Filter{Type: Type("BOGUS")})
	require.ErrorIs(t, err, ErrInvalidDocument)
}
