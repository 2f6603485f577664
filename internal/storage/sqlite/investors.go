package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/nilelink/ledger/internal/models"
	"github.com/nilelink/ledger/internal/storage"
)

// GetPosition retrieves one investor's position in a restaurant.
func (s *SQLiteStore) GetPosition(ctx context.Context, investorID, restaurantID string) (*models.InvestorPosition, error) {
	pos := &models.InvestorPosition{}
	err := s.db.QueryRowContext(ctx,
		`SELECT investor_id, restaurant_id, invested_usd6, ownership_bps, created_at, updated_at
		 FROM investor_positions WHERE investor_id = ? AND restaurant_id = ?`,
		investorID, restaurantID,
	).Scan(&pos.InvestorID, &pos.RestaurantID, &pos.InvestedUsd6, &pos.OwnershipBps,
		&pos.CreatedAt, &pos.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.Errorf(models.KindNotFound, models.CodePositionNotFound,
			"investor %s has no position in restaurant %s", investorID, restaurantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return pos, nil
}

// ListPositions returns every investor position for a restaurant.
func (s *SQLiteStore) ListPositions(ctx context.Context, restaurantID string) ([]models.InvestorPosition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT investor_id, restaurant_id, invested_usd6, ownership_bps, created_at, updated_at
		 FROM investor_positions WHERE restaurant_id = ? ORDER BY investor_id`,
		restaurantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var positions []models.InvestorPosition
	for rows.Next() {
		var pos models.InvestorPosition
		if err := rows.Scan(&pos.InvestorID, &pos.RestaurantID, &pos.InvestedUsd6,
			&pos.OwnershipBps, &pos.CreatedAt, &pos.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}
	return positions, nil
}

// ApplyDeposit tops up (or creates) a position and the restaurant's
// invested-capital total in one transaction. Zero-balance positions are
// never deleted, so the upsert only ever adds.
func (s *SQLiteStore) ApplyDeposit(ctx context.Context, investorID, restaurantID string, amountUsd6, ownershipBps int64) error {
	ts := now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO investor_positions (investor_id, restaurant_id, invested_usd6, ownership_bps, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(investor_id, restaurant_id) DO UPDATE SET
		   invested_usd6 = invested_usd6 + excluded.invested_usd6,
		   ownership_bps = ownership_bps + excluded.ownership_bps,
		   updated_at = excluded.updated_at`,
		investorID, restaurantID, amountUsd6, ownershipBps, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO restaurant_valuations (restaurant_id, total_invested_usd6, net_profit_usd6, updated_at)
		 VALUES (?, ?, 0, ?)
		 ON CONFLICT(restaurant_id) DO UPDATE SET
		   total_invested_usd6 = total_invested_usd6 + excluded.total_invested_usd6,
		   updated_at = excluded.updated_at`,
		restaurantID, amountUsd6, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert valuation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deposit: %w", err)
	}
	return nil
}

// GetValuation retrieves a restaurant's valuation row.
func (s *SQLiteStore) GetValuation(ctx context.Context, restaurantID string) (*models.RestaurantValuation, error) {
	val := &models.RestaurantValuation{}
	err := s.db.QueryRowContext(ctx,
		`SELECT restaurant_id, total_invested_usd6, net_profit_usd6, updated_at
		 FROM restaurant_valuations WHERE restaurant_id = ?`,
		restaurantID,
	).Scan(&val.RestaurantID, &val.TotalInvestedUsd6, &val.NetProfitUsd6, &val.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.Errorf(models.KindNotFound, models.CodeRestaurantNotFound,
			"restaurant %s has no valuation", restaurantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get valuation: %w", err)
	}
	return val, nil
}

// SetNetProfit stores the net profit computed by a valuation update.
func (s *SQLiteStore) SetNetProfit(ctx context.Context, restaurantID string, netProfitUsd6 int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE restaurant_valuations SET net_profit_usd6 = ?, updated_at = ? WHERE restaurant_id = ?`,
		netProfitUsd6, now(), restaurantID,
	)
	if err != nil {
		return fmt.Errorf("failed to set net profit: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return models.Errorf(models.KindNotFound, models.CodeRestaurantNotFound,
			"restaurant %s has no valuation", restaurantID)
	}
	return nil
}

// SumClaims returns the total already claimed by an investor for a
// restaurant.
func (s *SQLiteStore) SumClaims(ctx context.Context, investorID, restaurantID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_usd6), 0) FROM dividend_claims
		 WHERE investor_id = ? AND restaurant_id = ?`,
		investorID, restaurantID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum claims: %w", err)
	}
	return total, nil
}

// CreateClaim debits the restaurant's dividend pool and records the claim
// in one transaction. The conditional UPDATE rejects the debit unless the
// pool holds the full claim amount, so the pool can never go negative.
func (s *SQLiteStore) CreateClaim(ctx context.Context, claim *models.DividendClaim) error {
	if claim.ID == "" {
		claim.ID = uuid.New().String()
	}
	if claim.ClaimedAt == 0 {
		claim.ClaimedAt = now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pool := storage.PoolAccount(claim.RestaurantID)
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance_usd6 = balance_usd6 - ?, updated_at = ?
		 WHERE id = ? AND balance_usd6 >= ?`,
		claim.AmountUsd6, claim.ClaimedAt, pool, claim.AmountUsd6,
	)
	if err != nil {
		return fmt.Errorf("failed to debit pool: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return models.Errorf(models.KindInsufficientFunds, models.CodeInsufficientPoolBalance,
			"dividend pool for restaurant %s cannot cover %d usd6", claim.RestaurantID, claim.AmountUsd6)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO dividend_claims (id, investor_id, restaurant_id, amount_usd6, claimed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		claim.ID, claim.InvestorID, claim.RestaurantID, claim.AmountUsd6, claim.ClaimedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert claim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit claim: %w", err)
	}
	return nil
}
