package models

// OrderStatus is the lifecycle state of an order.
//
// Transitions are monotonic: PENDING -> SETTLED (payment and settlement
// happen in one step), any non-terminal state -> FAILED. REFUNDED and
// CANCELLED are terminal states reached through the refund path, which is
// handled outside this core.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderSettled   OrderStatus = "SETTLED"
	OrderRefunded  OrderStatus = "REFUNDED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderFailed    OrderStatus = "FAILED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderSettled, OrderRefunded, OrderCancelled, OrderFailed:
		return true
	}
	return false
}

// Order represents a customer order awaiting or past payment.
type Order struct {
	// ID is the caller-supplied unique identifier for the order.
	ID string `json:"id"`

	// RestaurantID identifies the restaurant receiving the net payout.
	RestaurantID string `json:"restaurantId"`

	// CustomerID identifies the paying customer.
	CustomerID string `json:"customerId"`

	// AmountUsd6 is the order total in micro-dollars. Always > 0.
	AmountUsd6 int64 `json:"amountUsd6"`

	// PaymentMethod is the payment rail used (qr, card, cash, crypto).
	// Opaque to the ledger beyond being non-empty.
	PaymentMethod string `json:"paymentMethod"`

	Status OrderStatus `json:"status"`

	// FailReason is set when Status is FAILED.
	FailReason string `json:"failReason,omitempty"`

	// CreatedAt is the Unix timestamp when the order was created.
	CreatedAt int64 `json:"createdAt"`
}

// SettlementRecord is the durable proof that a paid order was split into a
// protocol fee and a net merchant payout, exactly once.
//
// Invariant: FeeUsd6 + NetUsd6 == the order's AmountUsd6, with no rounding
// leakage. The record is keyed by OrderID, so a second settlement attempt
// for the same order cannot produce a second record.
type SettlementRecord struct {
	OrderID      string `json:"orderId"`
	RestaurantID string `json:"restaurantId"`
	FeeUsd6      int64  `json:"feeUsd6"`
	NetUsd6      int64  `json:"netUsd6"`

	// FeeRecipient is the account that received the protocol fee.
	FeeRecipient string `json:"feeRecipient"`

	// SettledAt is the Unix timestamp of settlement.
	SettledAt int64 `json:"settledAt"`
}
