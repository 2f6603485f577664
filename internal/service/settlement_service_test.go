package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilelink/ledger/internal/events"
	"github.com/nilelink/ledger/internal/models"
	"github.com/nilelink/ledger/internal/storage"
)

func newSettlementService(t *testing.T) (*SettlementService, storage.Store, *capturePublisher) {
	t.Helper()
	store := newTestStore(t)
	pub := &capturePublisher{}
	svc := NewSettlementService(store, pub, 50, "treasury")
	return svc, store, pub
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _, _ := newSettlementService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		order    models.Order
		wantCode string
	}{
		{
			name:     "missing ids",
			order:    models.Order{AmountUsd6: 100, PaymentMethod: "card"},
			wantCode: models.CodeInvalidArgument,
		},
		{
			name: "missing payment method",
			order: models.Order{
				ID: "o1", RestaurantID: "r1", CustomerID: "c1", AmountUsd6: 100,
			},
			wantCode: models.CodeInvalidArgument,
		},
		{
			name: "zero amount",
			order: models.Order{
				ID: "o1", RestaurantID: "r1", CustomerID: "c1", PaymentMethod: "card",
			},
			wantCode: models.CodeInvalidAmount,
		},
		{
			name: "negative amount",
			order: models.Order{
				ID: "o1", RestaurantID: "r1", CustomerID: "c1",
				AmountUsd6: -5, PaymentMethod: "card",
			},
			wantCode: models.CodeInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := tt.order
			err := svc.CreateOrder(ctx, &order)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, models.CodeOf(err))
		})
	}
}

func TestPaySettlesInstantly(t *testing.T) {
	svc, store, pub := newSettlementService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateOrder(ctx, &models.Order{
		ID: "o1", RestaurantID: "r1", CustomerID: "c1",
		AmountUsd6: 100_000000, PaymentMethod: "qr",
	}))

	rec, err := svc.Pay(ctx, "o1", 100_000000)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), rec.FeeUsd6)
	assert.Equal(t, int64(99_500000), rec.NetUsd6)
	assert.Equal(t, rec.FeeUsd6+rec.NetUsd6, int64(100_000000))

	// No manual capture step: the order is SETTLED, not just PAID.
	order, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderSettled, order.Status)

	settled := pub.byType(events.TypeOrderSettled)
	require.Len(t, settled, 1)
	payload := settled[0].Payload.(events.OrderSettled)
	assert.Equal(t, "o1", payload.OrderID)
	assert.Equal(t, int64(500000), payload.FeeUsd6)
	assert.Equal(t, int64(99_500000), payload.NetUsd6)
}

func TestPayTwiceCreditsOnce(t *testing.T) {
	svc, store, pub := newSettlementService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateOrder(ctx, &models.Order{
		ID: "o1", RestaurantID: "r1", CustomerID: "c1",
		AmountUsd6: 100_000000, PaymentMethod: "card",
	}))

	_, err := svc.Pay(ctx, "o1", 100_000000)
	require.NoError(t, err)

	_, err = svc.Pay(ctx, "o1", 100_000000)
	require.Error(t, err)
	assert.Equal(t, models.CodeAlreadyPaid, models.CodeOf(err))
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	// Exactly one settlement record, balances credited exactly once.
	rec, err := store.GetSettlement(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, rec)

	restAcct, err := store.GetAccount(ctx, storage.RestaurantAccount("r1"))
	require.NoError(t, err)
	assert.Equal(t, int64(99_500000), restAcct.BalanceUsd6)

	feeAcct, err := store.GetAccount(ctx, storage.FeeAccount("treasury"))
	require.NoError(t, err)
	assert.Equal(t, int64(500000), feeAcct.BalanceUsd6)

	assert.Len(t, pub.byType(events.TypeOrderSettled), 1)
}

func TestPayAmountMismatch(t *testing.T) {
	svc, store, _ := newSettlementService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateOrder(ctx, &models.Order{
		ID: "o1", RestaurantID: "r1", CustomerID: "c1",
		AmountUsd6: 100_000000, PaymentMethod: "card",
	}))

	_, err := svc.Pay(ctx, "o1", 99_000000)
	require.Error(t, err)
	assert.Equal(t, models.CodeAmountMismatch, models.CodeOf(err))

	// Rejected before any mutation: still PENDING, nothing credited.
	order, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)

	acct, err := store.GetAccount(ctx, storage.RestaurantAccount("r1"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), acct.BalanceUsd6)
}

func TestPayUnknownOrder(t *testing.T) {
	svc, _, _ := newSettlementService(t)

	_, err := svc.Pay(context.Background(), "missing", 1)
	require.Error(t, err)
	assert.Equal(t, models.CodeOrderNotFound, models.CodeOf(err))
}

func TestPayFailedOrder(t *testing.T) {
	svc, _, _ := newSettlementService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateOrder(ctx, &models.Order{
		ID: "o1", RestaurantID: "r1", CustomerID: "c1",
		AmountUsd6: 10_000000, PaymentMethod: "card",
	}))
	require.NoError(t, svc.Fail(ctx, "o1", "card declined"))

	_, err := svc.Pay(ctx, "o1", 10_000000)
	require.Error(t, err)
	assert.Equal(t, models.CodeOrderNotPayable, models.CodeOf(err))
}

func TestFeeBpsCappedAtOnePercent(t *testing.T) {
	store := newTestStore(t)
	svc := NewSettlementService(store, &capturePublisher{}, 5000, "treasury")
	ctx := context.Background()

	require.NoError(t, svc.CreateOrder(ctx, &models.Order{
		ID: "o1", RestaurantID: "r1", CustomerID: "c1",
		AmountUsd6: 100_000000, PaymentMethod: "card",
	}))

	rec, err := svc.Pay(ctx, "o1", 100_000000)
	require.NoError(t, err)
	// 100 bps, not 5000
	assert.Equal(t, int64(1_000000), rec.FeeUsd6)
	assert.Equal(t, int64(99_000000), rec.NetUsd6)
}

func TestBatchCreateAndPayIsolatesFailures(t *testing.T) {
	svc, store, _ := newSettlementService(t)
	ctx := context.Background()

	// Seed a duplicate for the first batch item to trip over.
	require.NoError(t, svc.CreateOrder(ctx, &models.Order{
		ID: "dup", RestaurantID: "r1", CustomerID: "c0",
		AmountUsd6: 1_000000, PaymentMethod: "card",
	}))

	results := svc.BatchCreateAndPay(ctx, []BatchOrder{
		{ID: "dup", RestaurantID: "r1", CustomerID: "c1", AmountUsd6: 1_000000, PaymentMethod: "card", PaidAmountUsd6: 1_000000},
		{ID: "o2", RestaurantID: "r1", CustomerID: "c2", AmountUsd6: 20_000000, PaymentMethod: "qr", PaidAmountUsd6: 19_000000},
		{ID: "o3", RestaurantID: "r2", CustomerID: "c3", AmountUsd6: 30_000000, PaymentMethod: "card", PaidAmountUsd6: 30_000000},
	})

	require.Len(t, results, 3)

	assert.False(t, results[0].Settled)
	assert.Equal(t, models.CodeDuplicateOrder, results[0].Code)

	// The mismatch on o2 creates the order but refuses the payment.
	assert.False(t, results[1].Settled)
	assert.Equal(t, models.CodeAmountMismatch, results[1].Code)

	// o3 settles despite both earlier failures.
	assert.True(t, results[2].Settled)
	assert.Equal(t, int64(150000), results[2].FeeUsd6)
	assert.Equal(t, int64(29_850000), results[2].NetUsd6)

	order, err := store.GetOrder(ctx, "o3")
	require.NoError(t, err)
	assert.Equal(t, models.OrderSettled, order.Status)

	order, err = store.GetOrder(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
}

// Two orders for the same restaurant settled concurrently must both land
// in the restaurant's balance without a lost update.
func TestConcurrentPaysSameRestaurant(t *testing.T) {
	svc, store, _ := newSettlementService(t)
	ctx := context.Background()

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, svc.CreateOrder(ctx, &models.Order{
			ID: string(rune('a'+i)), RestaurantID: "r1", CustomerID: "c1",
			AmountUsd6: 10_000000, PaymentMethod: "card",
		}))
	}

	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(id string) {
			_, err := svc.Pay(ctx, id, 10_000000)
			done <- err
		}(string(rune('a' + i)))
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-done)
	}

	acct, err := store.GetAccount(ctx, storage.RestaurantAccount("r1"))
	require.NoError(t, err)
	// 10 orders x $10 at 50 bps: net $9.95 each
	assert.Equal(t, int64(n*9_950000), acct.BalanceUsd6)
}
