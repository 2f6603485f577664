// Package service implements the ledger's engines: order settlement,
// dividend accrual, and supplier credit. Services validate input and apply
// policy; the store performs the durable, transactional writes.
package service

import (
	"context"
	"log/slog"

	"github.com/nilelink/ledger/internal/events"
	"github.com/nilelink/ledger/internal/feepolicy"
	"github.com/nilelink/ledger/internal/metrics"
	"github.com/nilelink/ledger/internal/models"
	"github.com/nilelink/ledger/internal/storage"
)

// SettlementService drives orders through PENDING -> SETTLED with an
// instant-settlement policy: payment and settlement are one atomic step
// producing exactly one SettlementRecord.
type SettlementService struct {
	store        storage.Store
	publisher    events.Publisher
	feeBps       int64
	feeRecipient string
	locks        *entityLocks
}

// NewSettlementService creates a settlement engine charging feeBps on
// every order, paid to feeRecipient. The fee is capped at 100 bps (1%).
func NewSettlementService(store storage.Store, publisher events.Publisher, feeBps int64, feeRecipient string) *SettlementService {
	if feeBps < 0 {
		feeBps = 0
	}
	if feeBps > feepolicy.MaxOrderFeeBps {
		feeBps = feepolicy.MaxOrderFeeBps
	}
	return &SettlementService{
		store:        store,
		publisher:    publisher,
		feeBps:       feeBps,
		feeRecipient: feeRecipient,
		locks:        newEntityLocks(),
	}
}

// CreateOrder registers a new PENDING order.
func (s *SettlementService) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" || order.RestaurantID == "" || order.CustomerID == "" {
		return models.Errorf(models.KindValidation, models.CodeInvalidArgument,
			"order id, restaurant id, and customer id are required")
	}
	if order.PaymentMethod == "" {
		return models.Errorf(models.KindValidation, models.CodeInvalidArgument,
			"payment method is required")
	}
	if order.AmountUsd6 <= 0 {
		return models.Errorf(models.KindValidation, models.CodeInvalidAmount,
			"order amount must be positive, got %d", order.AmountUsd6)
	}

	order.Status = models.OrderPending
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return err
	}

	metrics.OrdersCreated.Inc()
	slog.Info("order created",
		"order_id", order.ID,
		"restaurant_id", order.RestaurantID,
		"amount_usd6", order.AmountUsd6,
		"method", order.PaymentMethod,
	)
	return nil
}

// Pay accepts payment for an order and settles it immediately. The paid
// amount must match the order amount exactly. On success the order is
// SETTLED, the restaurant holds the net amount, the fee recipient holds
// the fee, and exactly one SettlementRecord exists.
func (s *SettlementService) Pay(ctx context.Context, orderID string, paidAmountUsd6 int64) (*models.SettlementRecord, error) {
	unlock := s.locks.acquire("order:" + orderID)
	defer unlock()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case models.OrderPending:
		// payable
	case models.OrderPaid, models.OrderSettled:
		return nil, models.Errorf(models.KindConflict, models.CodeAlreadyPaid,
			"order %s already paid", orderID)
	default:
		return nil, models.Errorf(models.KindConflict, models.CodeOrderNotPayable,
			"order %s is %s", orderID, order.Status)
	}
	if paidAmountUsd6 != order.AmountUsd6 {
		return nil, models.Errorf(models.KindValidation, models.CodeAmountMismatch,
			"paid %d usd6 but order %s is %d usd6", paidAmountUsd6, orderID, order.AmountUsd6)
	}

	feeUsd6, netUsd6, err := feepolicy.Split(order.AmountUsd6, s.feeBps)
	if err != nil {
		return nil, err
	}

	rec := &models.SettlementRecord{
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		FeeUsd6:      feeUsd6,
		NetUsd6:      netUsd6,
		FeeRecipient: s.feeRecipient,
	}
	if err := s.store.SettleOrder(ctx, rec); err != nil {
		return nil, err
	}

	metrics.OrdersSettled.Inc()
	metrics.SettledVolumeUsd6.Add(float64(order.AmountUsd6))
	metrics.ProtocolFeesUsd6.Add(float64(feeUsd6))
	slog.Info("order settled",
		"order_id", order.ID,
		"restaurant_id", order.RestaurantID,
		"fee_usd6", feeUsd6,
		"net_usd6", netUsd6,
	)

	// Settlement has committed; event delivery failures are logged, not
	// propagated, so a broker outage cannot fail a settled payment.
	if err := s.publisher.Publish(ctx, events.TypeOrderSettled, order.ID, events.OrderSettled{
		OrderID: order.ID,
		FeeUsd6: feeUsd6,
		NetUsd6: netUsd6,
	}); err != nil {
		slog.Warn("failed to publish OrderSettled", "order_id", order.ID, "error", err)
	}

	return rec, nil
}

// Fail moves a non-terminal order to FAILED.
func (s *SettlementService) Fail(ctx context.Context, orderID, reason string) error {
	unlock := s.locks.acquire("order:" + orderID)
	defer unlock()

	if err := s.store.FailOrder(ctx, orderID, reason); err != nil {
		return err
	}
	metrics.OrdersFailed.Inc()
	slog.Info("order failed", "order_id", orderID, "reason", reason)
	return nil
}

// GetOrder retrieves an order.
func (s *SettlementService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

// BatchOrder is one item of a batch create-and-pay request.
type BatchOrder struct {
	ID            string `json:"id"`
	RestaurantID  string `json:"restaurantId"`
	CustomerID    string `json:"customerId"`
	AmountUsd6    int64  `json:"amountUsd6"`
	PaymentMethod string `json:"paymentMethod"`

	// PaidAmountUsd6 is what the customer actually paid; it must equal
	// AmountUsd6 for the item to settle.
	PaidAmountUsd6 int64 `json:"paidAmountUsd6"`
}

// BatchResult is the per-item outcome of a batch request.
type BatchResult struct {
	OrderID string `json:"orderId"`
	Settled bool   `json:"settled"`
	FeeUsd6 int64  `json:"feeUsd6,omitempty"`
	NetUsd6 int64  `json:"netUsd6,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BatchCreateAndPay processes each item independently: one item's failure
// never rolls back or blocks the others. Items are applied in request
// order and every item gets an outcome.
func (s *SettlementService) BatchCreateAndPay(ctx context.Context, items []BatchOrder) []BatchResult {
	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		result := BatchResult{OrderID: item.ID}

		err := s.CreateOrder(ctx, &models.Order{
			ID:            item.ID,
			RestaurantID:  item.RestaurantID,
			CustomerID:    item.CustomerID,
			AmountUsd6:    item.AmountUsd6,
			PaymentMethod: item.PaymentMethod,
		})
		if err == nil {
			var rec *models.SettlementRecord
			rec, err = s.Pay(ctx, item.ID, item.PaidAmountUsd6)
			if err == nil {
				result.Settled = true
				result.FeeUsd6 = rec.FeeUsd6
				result.NetUsd6 = rec.NetUsd6
			}
		}
		if err != nil {
			result.Code = models.CodeOf(err)
			result.Error = err.Error()
		}

		results = append(results, result)
	}
	return results
}
