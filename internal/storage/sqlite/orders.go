package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nilelink/ledger/internal/models"
	"github.com/nilelink/ledger/internal/storage"
)

// CreateOrder persists a new PENDING order.
func (s *SQLiteStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.CreatedAt == 0 {
		order.CreatedAt = now()
	}
	if order.Status == "" {
		order.Status = models.OrderPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (id, restaurant_id, customer_id, amount_usd6, payment_method, status, fail_reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.RestaurantID, order.CustomerID, order.AmountUsd6,
		order.PaymentMethod, order.Status, order.FailReason, order.CreatedAt,
	)
	if isUniqueViolation(err) {
		return models.Errorf(models.KindConflict, models.CodeDuplicateOrder,
			"order %s already exists", order.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// GetOrder retrieves an order by ID.
func (s *SQLiteStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order := &models.Order{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, restaurant_id, customer_id, amount_usd6, payment_method, status, fail_reason, created_at
		 FROM orders WHERE id = ?`,
		orderID,
	).Scan(&order.ID, &order.RestaurantID, &order.CustomerID, &order.AmountUsd6,
		&order.PaymentMethod, &order.Status, &order.FailReason, &order.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.Errorf(models.KindNotFound, models.CodeOrderNotFound,
			"order %s not found", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// SettleOrder performs the whole settlement in one transaction: the status
// flip from PENDING, the settlement record insert, and both account
// credits. The conditional UPDATE is the idempotency guard; once an order
// leaves PENDING no second settlement can credit anything.
func (s *SQLiteStore) SettleOrder(ctx context.Context, rec *models.SettlementRecord) error {
	if rec.SettledAt == 0 {
		rec.SettledAt = now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ? AND status = ?`,
		models.OrderSettled, rec.OrderID, models.OrderPending,
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		// Either the order does not exist or it already left PENDING.
		var status models.OrderStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, rec.OrderID).Scan(&status)
		if err == sql.ErrNoRows {
			return models.Errorf(models.KindNotFound, models.CodeOrderNotFound,
				"order %s not found", rec.OrderID)
		}
		if err != nil {
			return fmt.Errorf("failed to check order status: %w", err)
		}
		return models.Errorf(models.KindConflict, models.CodeAlreadyPaid,
			"order %s is %s, not payable", rec.OrderID, status)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO settlement_records (order_id, restaurant_id, fee_usd6, net_usd6, fee_recipient, settled_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.OrderID, rec.RestaurantID, rec.FeeUsd6, rec.NetUsd6, rec.FeeRecipient, rec.SettledAt,
	)
	if isUniqueViolation(err) {
		return models.Errorf(models.KindConflict, models.CodeAlreadyPaid,
			"order %s already settled", rec.OrderID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert settlement record: %w", err)
	}

	if err := creditAccountTx(ctx, tx, storage.RestaurantAccount(rec.RestaurantID), rec.NetUsd6, rec.SettledAt); err != nil {
		return err
	}
	if err := creditAccountTx(ctx, tx, storage.FeeAccount(rec.FeeRecipient), rec.FeeUsd6, rec.SettledAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}
	return nil
}

// FailOrder moves a non-terminal order to FAILED.
func (s *SQLiteStore) FailOrder(ctx context.Context, orderID, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, fail_reason = ? WHERE id = ? AND status IN (?, ?)`,
		models.OrderFailed, reason, orderID, models.OrderPending, models.OrderPaid,
	)
	if err != nil {
		return fmt.Errorf("failed to fail order: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		var status models.OrderStatus
		err := s.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, orderID).Scan(&status)
		if err == sql.ErrNoRows {
			return models.Errorf(models.KindNotFound, models.CodeOrderNotFound,
				"order %s not found", orderID)
		}
		if err != nil {
			return fmt.Errorf("failed to check order status: %w", err)
		}
		return models.Errorf(models.KindConflict, models.CodeOrderNotPayable,
			"order %s is %s, cannot fail", orderID, status)
	}
	return nil
}

// GetSettlement retrieves the settlement record for an order, nil if the
// order has not settled yet.
func (s *SQLiteStore) GetSettlement(ctx context.Context, orderID string) (*models.SettlementRecord, error) {
	rec := &models.SettlementRecord{}
	err := s.db.QueryRowContext(ctx,
		`SELECT order_id, restaurant_id, fee_usd6, net_usd6, fee_recipient, settled_at
		 FROM settlement_records WHERE order_id = ?`,
		orderID,
	).Scan(&rec.OrderID, &rec.RestaurantID, &rec.FeeUsd6, &rec.NetUsd6, &rec.FeeRecipient, &rec.SettledAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement record: %w", err)
	}
	return rec, nil
}

// GetAccount retrieves an account balance. Unknown accounts read as zero.
func (s *SQLiteStore) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	acct := &models.Account{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, balance_usd6, updated_at FROM accounts WHERE id = ?`,
		accountID,
	).Scan(&acct.ID, &acct.BalanceUsd6, &acct.UpdatedAt)
	if err == sql.ErrNoRows {
		return &models.Account{ID: accountID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

// CreditAccount adds amountUsd6 to an account outside any larger
// transaction (used for dividend pool funding).
func (s *SQLiteStore) CreditAccount(ctx context.Context, accountID string, amountUsd6 int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := creditAccountTx(ctx, tx, accountID, amountUsd6, now()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credit: %w", err)
	}
	return nil
}
