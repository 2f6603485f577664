package models

// InvestorPosition is one investor's stake in one restaurant.
//
// Positions are created on first deposit and topped up by later deposits.
// They are never deleted; a zero balance is retained for audit.
type InvestorPosition struct {
	InvestorID   string `json:"investorId"`
	RestaurantID string `json:"restaurantId"`

	// InvestedUsd6 is the cumulative amount deposited.
	InvestedUsd6 int64 `json:"investedUsd6"`

	// OwnershipBps is this investor's claim on the restaurant's profit,
	// in basis points. The sum across all investors of a restaurant never
	// exceeds 10000.
	OwnershipBps int64 `json:"ownershipBps"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// RestaurantValuation tracks a restaurant's cumulative invested capital and
// its net profit as of the latest authorized valuation update.
type RestaurantValuation struct {
	RestaurantID string `json:"restaurantId"`

	// TotalInvestedUsd6 is the sum of all investor deposits.
	TotalInvestedUsd6 int64 `json:"totalInvestedUsd6"`

	// NetProfitUsd6 is latest valuation minus invested capital. May be
	// negative; payout math floors it at zero. Mutated only by the
	// authorized valuation-update operation.
	NetProfitUsd6 int64 `json:"netProfitUsd6"`

	UpdatedAt int64 `json:"updatedAt"`
}

// DividendClaim records one successful dividend payout to an investor.
// The sum of an investor's claims is subtracted from their entitlement to
// derive the accrued-and-unclaimed balance, so a claim permanently reduces
// what later claims can take.
type DividendClaim struct {
	ID           string `json:"id"`
	InvestorID   string `json:"investorId"`
	RestaurantID string `json:"restaurantId"`
	AmountUsd6   int64  `json:"amountUsd6"`

	// ClaimedAt is the Unix timestamp of the payout.
	ClaimedAt int64 `json:"claimedAt"`
}
