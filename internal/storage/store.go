// Package storage provides abstractions for the ledger's durable state.
package storage

import (
	"context"

	"github.com/nilelink/ledger/internal/models"
)

// Account ID namespaces. The store owns the naming scheme; services build
// account IDs through the helpers below.
const (
	restaurantPrefix = "restaurant:"
	feePrefix        = "fee:"
	poolPrefix       = "pool:"
)

// RestaurantAccount is the merchant balance account for a restaurant.
func RestaurantAccount(restaurantID string) string { return restaurantPrefix + restaurantID }

// FeeAccount is the protocol fee recipient's account.
func FeeAccount(recipient string) string { return feePrefix + recipient }

// PoolAccount is the funded dividend pool for a restaurant.
func PoolAccount(restaurantID string) string { return poolPrefix + restaurantID }

// Store defines the persistence operations of the ledger. Methods that
// touch more than one row perform all writes in a single transaction, so a
// crash can never leave a partial credit behind a status flip.
//
// Guard failures (missing rows, duplicate keys, exhausted balances) are
// returned as *models.Error with the appropriate code, because only the
// store can check them race-free.
type Store interface {
	// CreateOrder persists a new PENDING order. Fails with DuplicateOrder
	// if the id already exists.
	CreateOrder(ctx context.Context, order *models.Order) error

	// GetOrder retrieves an order. Fails with OrderNotFound.
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)

	// SettleOrder atomically moves a PENDING order to SETTLED, writes its
	// settlement record, credits the restaurant's account with the net
	// amount, and credits the fee account with the fee. A second call for
	// the same order fails with AlreadyPaid and credits nothing.
	SettleOrder(ctx context.Context, rec *models.SettlementRecord) error

	// FailOrder moves a non-terminal order to FAILED with a reason.
	FailOrder(ctx context.Context, orderID, reason string) error

	// GetSettlement retrieves the settlement record for an order, or nil
	// if the order has not settled.
	GetSettlement(ctx context.Context, orderID string) (*models.SettlementRecord, error)

	// GetAccount retrieves an account. A never-credited account reads as
	// a zero balance rather than an error.
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)

	// CreditAccount adds amountUsd6 to an account, creating it if needed.
	CreditAccount(ctx context.Context, accountID string, amountUsd6 int64) error

	// GetPosition retrieves one investor's position. Fails with
	// PositionNotFound.
	GetPosition(ctx context.Context, investorID, restaurantID string) (*models.InvestorPosition, error)

	// ListPositions returns every position for a restaurant.
	ListPositions(ctx context.Context, restaurantID string) ([]models.InvestorPosition, error)

	// ApplyDeposit atomically tops up (or creates) an investor position
	// and increments the restaurant's total invested capital.
	ApplyDeposit(ctx context.Context, investorID, restaurantID string, amountUsd6, ownershipBps int64) error

	// GetValuation retrieves a restaurant's valuation row. Fails with
	// RestaurantNotFound if no deposit has ever touched the restaurant.
	GetValuation(ctx context.Context, restaurantID string) (*models.RestaurantValuation, error)

	// SetNetProfit records the outcome of a valuation update.
	SetNetProfit(ctx context.Context, restaurantID string, netProfitUsd6 int64) error

	// SumClaims returns the total amount already claimed by an investor
	// for a restaurant.
	SumClaims(ctx context.Context, investorID, restaurantID string) (int64, error)

	// CreateClaim atomically debits the restaurant's dividend pool and
	// records the claim. Fails with InsufficientPoolBalance when the pool
	// holds less than the claim amount, without mutating anything.
	CreateClaim(ctx context.Context, claim *models.DividendClaim) error

	// SetCreditLine creates or overwrites the credit line for a
	// (restaurant, supplier) pair.
	SetCreditLine(ctx context.Context, line *models.CreditLine) error

	// GetCreditLine retrieves a credit line. Fails with CreditLineNotFound.
	GetCreditLine(ctx context.Context, restaurantID, supplierID string) (*models.CreditLine, error)

	// OutstandingCredit sums the non-PAID invoice amounts under a line.
	OutstandingCredit(ctx context.Context, restaurantID, supplierID string) (int64, error)

	// CreateInvoice persists a new PENDING invoice. Fails with
	// DuplicateInvoice if the id already exists.
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error

	// GetInvoice retrieves an invoice. Fails with InvoiceNotFound.
	GetInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error)

	// MarkInvoicePaid moves a non-PAID invoice to PAID. Fails with
	// InvoiceAlreadyPaid if already repaid.
	MarkInvoicePaid(ctx context.Context, invoiceID string, paidAt int64) error

	// Stats aggregates protocol-wide counters over the whole ledger.
	Stats(ctx context.Context) (*models.ProtocolStats, error)

	// Close releases any resources held by the store.
	Close() error
}
