package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func qty(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func appendMovement(t *testing.T, repo *memoryRepo, ledger *Ledger, m Movement) []Movement {
	t.Helper()
	var stored []Movement
	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		entries, err := ledger.Append(ctx, tx, m)
		if err != nil {
			return err
		}
		stored = entries
		return nil
	})
	require.NoError(t, err)
	return stored
}

func TestReceiptCreatesQuant(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})

	stored := appendMovement(t, repo, ledger, Movement{
		Type:                  MovementTypeReceipt,
		ProductID:             1,
		DestinationLocationID: ptr(10),
		Quantity:              qty("100"),
	})
	require.Len(t, stored, 1)

	quant, err := repo.GetQuant(context.Background(), 1, 10)
	require.NoError(t, err)
	require.True(t, quant.Quantity.Equal(qty("100")))
}

func TestDeliveryDebitsQuant(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})

	appendMovement(t, repo, ledger, Movement{
		Type: MovementTypeReceipt, ProductID: 1, DestinationLocationID: ptr(10), Quantity: qty("100"),
	})
	appendMovement(t, repo, ledger, Movement{
		Type: MovementTypeDelivery, ProductID: 1, SourceLocationID: ptr(10), Quantity: qty("30"),
	})
	appendMovement(t, repo, ledger, Movement{
		Type: MovementTypeDelivery, ProductID: 1, SourceLocationID: ptr(10), Quantity: qty("20"),
	})

	quant, err := repo.GetQuant(context.Background(), 1, 10)
	require.NoError(t, err)
	require.True(t, quant.Quantity.Equal(qty("50")))
}

func TestDeliveryInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})

	appendMovement(t, repo, ledger, Movement{
		Type: MovementTypeReceipt, ProductID: 1, DestinationLocationID: ptr(10), Quantity: qty("100"),
	})
	appendMovement(t, repo, ledger, Movement{
		Type: MovementTypeDelivery, ProductID: 1, SourceLocationID: ptr(10), Quantity: qty("30"),
	})
	appendMovement(t, repo, ledger, Movement{
		Type: MovementTypeDelivery, ProductID: 1, SourceLocationID: ptr(10), Quantity: qty("20"),
	})

	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, err := ledger.Append(ctx, tx, Movement{
			Type: MovementTypeDelivery, ProductID: 1, SourceLocationID: ptr(10), Quantity: qty("60"),
		})
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Available.Equal(qty("50")))
	require.True(t, insufficient.Required.Equal(qty("60")))

	quant, err := repo.GetQuant(context.Background(), 1, 10)
	require.NoError(t, err)
	require.True(t, quant.Quantity.Equal(qty("50")))
}

func TestAllowNegativeStock(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{AllowNegativeStock: true})

	appendMovement(t, repo, ledger, Movement{
		Type: MovementTypeDelivery, ProductID: 1, SourceLocationID: ptr(10), Quantity: qty("5"),
	})

	quant, err := repo.GetQuant(context.Background(), 1, 10)
	require.NoError(t, err)
	require.True(t, quant.Quantity.Equal(qty("-5")))
}

func TestTransferSplitsIntoTwoEntries(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})

	appendMovement(t, repo, ledger, Movement{
		Type: MovementTypeReceipt, ProductID: 1, DestinationLocationID: ptr(10), Quantity: qty("40"),
	})
	stored := appendMovement(t, repo, ledger, Movement{
		Type:                  MovementTypeTransfer,
		ProductID:             1,
		SourceLocationID:      ptr(10),
		DestinationLocationID: ptr(20),
		Quantity:              qty("15"),
		DocumentNumber:        "WH/INT/001",
	})
	require.Len(t, stored, 2)
	require.NotNil(t, stored[0].SourceLocationID)
	require.Nil(t, stored[0].DestinationLocationID)
	require.Nil(t, stored[1].SourceLocationID)
	require.NotNil(t, stored[1].DestinationLocationID)
	require.Equal(t, "WH/INT/001", stored[0].DocumentNumber)
	require.Equal(t, "WH/INT/001", stored[1].DocumentNumber)

	src, err := repo.GetQuant(context.Background(), 1, 10)
	require.NoError(t, err)
	require.True(t, src.Quantity.Equal(qty("25")))

	dst, err := repo.GetQuant(context.Background(), 1, 20)
	require.NoError(t, err)
	require.True(t, dst.Quantity.Equal(qty("15")))
}

func TestTransferSameLocationRejected(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})

	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, err := ledger.Append(ctx, tx, Movement{
			Type:                  MovementTypeTransfer,
			ProductID:             1,
			SourceLocationID:      ptr(10),
			DestinationLocationID: ptr(10),
			Quantity:              qty("5"),
		})
		return err
	})
	require.ErrorIs(t, err, ErrLocationRequired)
}

func TestNonPositiveQuantityRejected(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})

	for _, quantity := range []string{"0", "-3", "0.0004"} {
		err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
			_, err := ledger.Append(ctx, tx, Movement{
				Type: MovementTypeReceipt, ProductID: 1, DestinationLocationID: ptr(10), Quantity: qty(quantity),
			})
			return err
		})
		require.ErrorIs(t, err, ErrInvalidQuantity, "quantity %s", quantity)
	}
	require.Empty(t, repo.movements)
}

func TestAdjustmentRequiresExactlyOneLocation(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})

	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, err := ledger.Append(ctx, tx, Movement{
			Type:                  MovementTypeAdjustment,
			ProductID:             1,
			SourceLocationID:      ptr(10),
			DestinationLocationID: ptr(20),
			Quantity:              qty("5"),
		})
		return err
	})
	require.ErrorIs(t, err, ErrLocationRequired)

	err = repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, err := ledger.Append(ctx, tx, Movement{
			Type: MovementTypeAdjustment, ProductID: 1, Quantity: qty("5"),
		})
		return err
	})
	require.ErrorIs(t, err, ErrLocationRequired)
}

func TestUnknownMovementTypeRejected(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})

	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, err := ledger.Append(ctx, tx, Movement{
			Type: MovementType("TELEPORT"), ProductID: 1, DestinationLocationID: ptr(10), Quantity: qty("5"),
		})
		return err
	})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrInvalidQuantity))
}

func TestQuantityRoundedToScale(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})

	stored := appendMovement(t, repo, ledger, Movement{
		Type: MovementTypeReceipt, ProductID: 1, DestinationLocationID: ptr(10), Quantity: qty("1.23456"),
	})
	require.True(t, stored[0].Quantity.Equal(qty("1.235")))
}
