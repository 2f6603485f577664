package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nilelink/ledger/internal/models"
)

// SetCreditLine creates or overwrites the line for a (restaurant, supplier)
// pair.
func (s *SQLiteStore) SetCreditLine(ctx context.Context, line *models.CreditLine) error {
	if line.UpdatedAt == 0 {
		line.UpdatedAt = now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credit_lines (restaurant_id, supplier_id, limit_usd6, terms_hash, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(restaurant_id, supplier_id) DO UPDATE SET
		   limit_usd6 = excluded.limit_usd6,
		   terms_hash = excluded.terms_hash,
		   updated_at = excluded.updated_at`,
		line.RestaurantID, line.SupplierID, line.LimitUsd6, line.TermsHash, line.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set credit line: %w", err)
	}
	return nil
}

// GetCreditLine retrieves the line for a (restaurant, supplier) pair.
func (s *SQLiteStore) GetCreditLine(ctx context.Context, restaurantID, supplierID string) (*models.CreditLine, error) {
	line := &models.CreditLine{}
	err := s.db.QueryRowContext(ctx,
		`SELECT restaurant_id, supplier_id, limit_usd6, terms_hash, updated_at
		 FROM credit_lines WHERE restaurant_id = ? AND supplier_id = ?`,
		restaurantID, supplierID,
	).Scan(&line.RestaurantID, &line.SupplierID, &line.LimitUsd6, &line.TermsHash, &line.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.Errorf(models.KindNotFound, models.CodeCreditLineNotFound,
			"no credit line for restaurant %s and supplier %s", restaurantID, supplierID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credit line: %w", err)
	}
	return line, nil
}

// OutstandingCredit sums the non-PAID invoice amounts under a line.
// OVERDUE is a derived view of PENDING, so filtering on PAID covers it.
func (s *SQLiteStore) OutstandingCredit(ctx context.Context, restaurantID, supplierID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_usd6), 0) FROM invoices
		 WHERE restaurant_id = ? AND supplier_id = ? AND status != ?`,
		restaurantID, supplierID, models.InvoicePaid,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum outstanding credit: %w", err)
	}
	return total, nil
}

// CreateInvoice persists a new PENDING invoice.
func (s *SQLiteStore) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.CreatedAt == 0 {
		invoice.CreatedAt = now()
	}
	if invoice.Status == "" {
		invoice.Status = models.InvoicePending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invoices (id, restaurant_id, supplier_id, amount_usd6, due_date, status, created_at, paid_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID, invoice.RestaurantID, invoice.SupplierID, invoice.AmountUsd6,
		invoice.DueDate, invoice.Status, invoice.CreatedAt, invoice.PaidAt,
	)
	if isUniqueViolation(err) {
		return models.Errorf(models.KindConflict, models.CodeDuplicateInvoice,
			"invoice %s already exists", invoice.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

// GetInvoice retrieves an invoice by ID.
func (s *SQLiteStore) GetInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, restaurant_id, supplier_id, amount_usd6, due_date, status, created_at, paid_at
		 FROM invoices WHERE id = ?`,
		invoiceID,
	).Scan(&invoice.ID, &invoice.RestaurantID, &invoice.SupplierID, &invoice.AmountUsd6,
		&invoice.DueDate, &invoice.Status, &invoice.CreatedAt, &invoice.PaidAt)
	if err == sql.ErrNoRows {
		return nil, models.Errorf(models.KindNotFound, models.CodeInvoiceNotFound,
			"invoice %s not found", invoiceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// MarkInvoicePaid moves a non-PAID invoice to PAID. The conditional UPDATE
// makes repayment idempotency-safe: a second repayment finds no row to
// update and reports the conflict instead of double-freeing headroom.
func (s *SQLiteStore) MarkInvoicePaid(ctx context.Context, invoiceID string, paidAt int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, paid_at = ? WHERE id = ? AND status != ?`,
		models.InvoicePaid, paidAt, invoiceID, models.InvoicePaid,
	)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		var status models.InvoiceStatus
		err := s.db.QueryRowContext(ctx, `SELECT status FROM invoices WHERE id = ?`, invoiceID).Scan(&status)
		if err == sql.ErrNoRows {
			return models.Errorf(models.KindNotFound, models.CodeInvoiceNotFound,
				"invoice %s not found", invoiceID)
		}
		if err != nil {
			return fmt.Errorf("failed to check invoice status: %w", err)
		}
		return models.Errorf(models.KindConflict, models.CodeInvoiceAlreadyPaid,
			"invoice %s already paid", invoiceID)
	}
	return nil
}

// Stats aggregates protocol-wide counters over the whole ledger.
func (s *SQLiteStore) Stats(ctx context.Context) (*models.ProtocolStats, error) {
	stats := &models.ProtocolStats{}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders`,
	).Scan(&stats.TotalOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(fee_usd6 + net_usd6), 0), COALESCE(SUM(fee_usd6), 0)
		 FROM settlement_records`,
	).Scan(&stats.SettledOrders, &stats.SettledVolumeUsd6, &stats.ProtocolFeesUsd6)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate settlements: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_invested_usd6), 0) FROM restaurant_valuations`,
	).Scan(&stats.TotalInvestedUsd6)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate investments: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_usd6), 0) FROM dividend_claims`,
	).Scan(&stats.DividendsClaimedUsd6)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate claims: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount_usd6), 0) FROM invoices WHERE status != ?`,
		models.InvoicePaid,
	).Scan(&stats.OpenInvoices, &stats.OutstandingCreditUsd6)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate invoices: %w", err)
	}

	return stats, nil
}
