package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/nilelink/ledger/internal/events"
	"github.com/nilelink/ledger/internal/metrics"
	"github.com/nilelink/ledger/internal/models"
	"github.com/nilelink/ledger/internal/storage"
)

// CreditService manages supplier credit lines and the invoices drawn
// against them. Repayment is full-amount only; partial payments are not
// modeled.
type CreditService struct {
	store     storage.Store
	publisher events.Publisher
	locks     *entityLocks
}

// NewCreditService creates a credit engine backed by the given store.
func NewCreditService(store storage.Store, publisher events.Publisher) *CreditService {
	return &CreditService{
		store:     store,
		publisher: publisher,
		locks:     newEntityLocks(),
	}
}

// SetCreditLine creates or overwrites the credit line for a (restaurant,
// supplier) pair. Requires the governance capability.
func (s *CreditService) SetCreditLine(ctx context.Context, caller models.Caller, restaurantID, supplierID string, limitUsd6 int64, termsHash string) error {
	if !caller.Governance {
		return models.Errorf(models.KindAuthorization, models.CodeNotAuthorized,
			"caller %s lacks the governance capability", caller.ID)
	}
	if restaurantID == "" || supplierID == "" {
		return models.Errorf(models.KindValidation, models.CodeInvalidArgument,
			"restaurant id and supplier id are required")
	}
	if limitUsd6 < 0 {
		return models.Errorf(models.KindValidation, models.CodeInvalidAmount,
			"credit limit must be non-negative, got %d", limitUsd6)
	}
	if termsHash == "" {
		return models.Errorf(models.KindValidation, models.CodeInvalidArgument,
			"terms hash is required")
	}

	unlock := s.locks.acquire("line:" + restaurantID + ":" + supplierID)
	defer unlock()

	err := s.store.SetCreditLine(ctx, &models.CreditLine{
		RestaurantID: restaurantID,
		SupplierID:   supplierID,
		LimitUsd6:    limitUsd6,
		TermsHash:    termsHash,
	})
	if err != nil {
		return err
	}

	slog.Info("credit line set",
		"restaurant_id", restaurantID,
		"supplier_id", supplierID,
		"limit_usd6", limitUsd6,
		"caller", caller.ID,
	)
	return nil
}

// UseCredit draws amountUsd6 from the line as a new PENDING invoice. The
// draw must present the line's terms hash and fit inside the remaining
// headroom: outstanding non-PAID invoices plus this draw never exceed the
// limit.
func (s *CreditService) UseCredit(ctx context.Context, restaurantID, supplierID, invoiceID string, amountUsd6, dueDate int64, termsHash string) (*models.Invoice, error) {
	if invoiceID == "" {
		return nil, models.Errorf(models.KindValidation, models.CodeInvalidArgument,
			"invoice id is required")
	}
	if amountUsd6 <= 0 {
		return nil, models.Errorf(models.KindValidation, models.CodeInvalidAmount,
			"invoice amount must be positive, got %d", amountUsd6)
	}

	// Headroom check and invoice insert are serialized per line so two
	// concurrent draws cannot both fit into the last slot.
	unlock := s.locks.acquire("line:" + restaurantID + ":" + supplierID)
	defer unlock()

	line, err := s.store.GetCreditLine(ctx, restaurantID, supplierID)
	if err != nil {
		return nil, err
	}
	if termsHash != line.TermsHash {
		return nil, models.Errorf(models.KindValidation, models.CodeTermsMismatch,
			"terms hash does not match the credit line for restaurant %s and supplier %s",
			restaurantID, supplierID)
	}

	outstanding, err := s.store.OutstandingCredit(ctx, restaurantID, supplierID)
	if err != nil {
		return nil, err
	}
	if outstanding+amountUsd6 > line.LimitUsd6 {
		return nil, models.Errorf(models.KindInsufficientFunds, models.CodeCreditLimitExceeded,
			"outstanding %d + draw %d exceeds limit %d usd6", outstanding, amountUsd6, line.LimitUsd6)
	}

	invoice := &models.Invoice{
		ID:           invoiceID,
		RestaurantID: restaurantID,
		SupplierID:   supplierID,
		AmountUsd6:   amountUsd6,
		DueDate:      dueDate,
		Status:       models.InvoicePending,
	}
	if err := s.store.CreateInvoice(ctx, invoice); err != nil {
		return nil, err
	}

	slog.Info("credit drawn",
		"invoice_id", invoiceID,
		"restaurant_id", restaurantID,
		"supplier_id", supplierID,
		"amount_usd6", amountUsd6,
	)
	return invoice, nil
}

// Repay settles an invoice in full. The amount must equal the invoice
// amount exactly; anything else is rejected as OverpaymentNotAllowed.
// proof is an opaque payment reference kept for the audit log.
func (s *CreditService) Repay(ctx context.Context, invoiceID string, amountUsd6 int64, proof string) error {
	unlock := s.locks.acquire("invoice:" + invoiceID)
	defer unlock()

	invoice, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.Status == models.InvoicePaid {
		return models.Errorf(models.KindConflict, models.CodeInvoiceAlreadyPaid,
			"invoice %s already paid", invoiceID)
	}
	if amountUsd6 != invoice.AmountUsd6 {
		return models.Errorf(models.KindValidation, models.CodeOverpaymentNotAllowed,
			"invoice %s requires exact repayment of %d usd6, got %d",
			invoiceID, invoice.AmountUsd6, amountUsd6)
	}

	if err := s.store.MarkInvoicePaid(ctx, invoiceID, time.Now().Unix()); err != nil {
		return err
	}

	metrics.InvoicesPaid.Inc()
	slog.Info("invoice repaid",
		"invoice_id", invoiceID,
		"amount_usd6", amountUsd6,
		"proof", proof,
	)

	if err := s.publisher.Publish(ctx, events.TypeInvoicePaid, invoiceID, events.InvoicePaid{
		InvoiceID: invoiceID,
	}); err != nil {
		slog.Warn("failed to publish InvoicePaid", "invoice_id", invoiceID, "error", err)
	}

	return nil
}

// GetInvoice retrieves an invoice with its derived status: a PENDING
// invoice past its due date reads as OVERDUE.
func (s *CreditService) GetInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	invoice, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	invoice.Status = invoice.EffectiveStatus(time.Now().Unix())
	return invoice, nil
}
