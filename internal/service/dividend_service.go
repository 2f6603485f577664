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

// DividendService tracks investor positions and pays out profit shares
// from a pre-funded pool. The engine never manufactures money: claims only
// succeed against real pool deposits.
type DividendService struct {
	store     storage.Store
	publisher events.Publisher
	locks     *entityLocks
}

// NewDividendService creates a dividend engine backed by the given store.
func NewDividendService(store storage.Store, publisher events.Publisher) *DividendService {
	return &DividendService{
		store:     store,
		publisher: publisher,
		locks:     newEntityLocks(),
	}
}

// Deposit records an investor buying ownershipBps of a restaurant for
// amountUsd6. The restaurant's total ownership across all investors can
// never exceed 10000 bps.
func (s *DividendService) Deposit(ctx context.Context, investorID, restaurantID string, amountUsd6, ownershipBps int64) error {
	if investorID == "" || restaurantID == "" {
		return models.Errorf(models.KindValidation, models.CodeInvalidArgument,
			"investor id and restaurant id are required")
	}
	if amountUsd6 <= 0 {
		return models.Errorf(models.KindValidation, models.CodeInvalidAmount,
			"deposit amount must be positive, got %d", amountUsd6)
	}
	if ownershipBps < 0 || ownershipBps > feepolicy.BpsDenominator {
		return models.Errorf(models.KindValidation, models.CodeInvalidArgument,
			"ownership bps must be in [0, %d], got %d", feepolicy.BpsDenominator, ownershipBps)
	}

	// The cap check and the deposit must be serialized per restaurant,
	// or two concurrent deposits could both pass the check.
	unlock := s.locks.acquire("restaurant:" + restaurantID)
	defer unlock()

	positions, err := s.store.ListPositions(ctx, restaurantID)
	if err != nil {
		return err
	}
	var totalBps int64
	for _, pos := range positions {
		totalBps += pos.OwnershipBps
	}
	if totalBps+ownershipBps > feepolicy.BpsDenominator {
		return models.Errorf(models.KindConflict, models.CodeOwnershipExceeded,
			"restaurant %s has %d bps allocated; %d more would exceed %d",
			restaurantID, totalBps, ownershipBps, feepolicy.BpsDenominator)
	}

	if err := s.store.ApplyDeposit(ctx, investorID, restaurantID, amountUsd6, ownershipBps); err != nil {
		return err
	}

	slog.Info("investor deposit",
		"investor_id", investorID,
		"restaurant_id", restaurantID,
		"amount_usd6", amountUsd6,
		"ownership_bps", ownershipBps,
	)
	return nil
}

// UpdateValuation sets a restaurant's net profit to the new total
// valuation minus its invested capital. Requires the valuation capability.
// The result may be negative; payout math floors it at zero.
func (s *DividendService) UpdateValuation(ctx context.Context, caller models.Caller, restaurantID string, newTotalValuationUsd6 int64) (int64, error) {
	if !caller.Valuation {
		return 0, models.Errorf(models.KindAuthorization, models.CodeNotAuthorized,
			"caller %s lacks the valuation capability", caller.ID)
	}

	unlock := s.locks.acquire("restaurant:" + restaurantID)
	defer unlock()

	val, err := s.store.GetValuation(ctx, restaurantID)
	if err != nil {
		return 0, err
	}

	netProfit := newTotalValuationUsd6 - val.TotalInvestedUsd6
	if err := s.store.SetNetProfit(ctx, restaurantID, netProfit); err != nil {
		return 0, err
	}

	slog.Info("valuation updated",
		"restaurant_id", restaurantID,
		"caller", caller.ID,
		"total_valuation_usd6", newTotalValuationUsd6,
		"net_profit_usd6", netProfit,
	)
	return netProfit, nil
}

// Accrued returns the investor's accrued-and-unclaimed dividend balance:
// their entitlement to the current net profit minus everything already
// claimed, floored at zero.
func (s *DividendService) Accrued(ctx context.Context, investorID, restaurantID string) (int64, error) {
	pos, err := s.store.GetPosition(ctx, investorID, restaurantID)
	if err != nil {
		return 0, err
	}
	val, err := s.store.GetValuation(ctx, restaurantID)
	if err != nil {
		return 0, err
	}
	claimed, err := s.store.SumClaims(ctx, investorID, restaurantID)
	if err != nil {
		return 0, err
	}

	accrued := feepolicy.DividendEntitlement(val.NetProfitUsd6, pos.OwnershipBps) - claimed
	if accrued < 0 {
		accrued = 0
	}
	return accrued, nil
}

// FundPool deposits real funds into a restaurant's dividend pool. Order
// net revenue is never swept in automatically; payouts come only from
// these explicit deposits.
func (s *DividendService) FundPool(ctx context.Context, restaurantID string, amountUsd6 int64) error {
	if restaurantID == "" {
		return models.Errorf(models.KindValidation, models.CodeInvalidArgument,
			"restaurant id is required")
	}
	if amountUsd6 <= 0 {
		return models.Errorf(models.KindValidation, models.CodeInvalidAmount,
			"pool deposit must be positive, got %d", amountUsd6)
	}

	if err := s.store.CreditAccount(ctx, storage.PoolAccount(restaurantID), amountUsd6); err != nil {
		return err
	}
	slog.Info("dividend pool funded", "restaurant_id", restaurantID, "amount_usd6", amountUsd6)
	return nil
}

// Claim pays out the investor's full accrued balance from the restaurant's
// pool. The accrued amount is recomputed inside the per-investor critical
// section, so concurrent claims by the same investor cannot double-pay.
func (s *DividendService) Claim(ctx context.Context, investorID, restaurantID string) (*models.DividendClaim, error) {
	unlock := s.locks.acquire("claim:" + investorID + ":" + restaurantID)
	defer unlock()

	accrued, err := s.Accrued(ctx, investorID, restaurantID)
	if err != nil {
		return nil, err
	}
	if accrued <= 0 {
		return nil, models.Errorf(models.KindValidation, models.CodeNothingAccrued,
			"investor %s has nothing accrued for restaurant %s", investorID, restaurantID)
	}

	claim := &models.DividendClaim{
		InvestorID:   investorID,
		RestaurantID: restaurantID,
		AmountUsd6:   accrued,
	}
	if err := s.store.CreateClaim(ctx, claim); err != nil {
		return nil, err
	}

	metrics.DividendsClaimedUsd6.Add(float64(accrued))
	slog.Info("dividend claimed",
		"investor_id", investorID,
		"restaurant_id", restaurantID,
		"amount_usd6", accrued,
	)

	if err := s.publisher.Publish(ctx, events.TypeDividendClaimed, investorID+":"+restaurantID, events.DividendClaimed{
		InvestorID:   investorID,
		RestaurantID: restaurantID,
		AmountUsd6:   accrued,
	}); err != nil {
		slog.Warn("failed to publish DividendClaimed",
			"investor_id", investorID, "restaurant_id", restaurantID, "error", err)
	}

	return claim, nil
}
