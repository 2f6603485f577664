package models

// Account is a running usd6 balance owned by one party: a restaurant's
// merchant balance, the protocol fee recipient, or a restaurant's dividend
// pool. Accounts are created implicitly on first credit.
type Account struct {
	// ID is a namespaced key, e.g. "restaurant:r1", "fee:treasury",
	// "pool:r1". The storage layer owns the naming scheme.
	ID string `json:"id"`

	BalanceUsd6 int64 `json:"balanceUsd6"`
	UpdatedAt   int64 `json:"updatedAt"`
}

// Caller carries the capabilities of the requesting principal into an
// operation. Roles are resolved by the transport layer (JWT claims); the
// engines only ever check these booleans.
type Caller struct {
	ID string

	// Governance permits credit-line administration.
	Governance bool

	// Valuation permits restaurant valuation updates.
	Valuation bool
}

// ProtocolStats is an aggregate snapshot over the whole ledger, mirroring
// the platform's protocol-wide counters.
type ProtocolStats struct {
	TotalOrders           int64 `json:"totalOrders"`
	SettledOrders         int64 `json:"settledOrders"`
	SettledVolumeUsd6     int64 `json:"settledVolumeUsd6"`
	ProtocolFeesUsd6      int64 `json:"protocolFeesUsd6"`
	TotalInvestedUsd6     int64 `json:"totalInvestedUsd6"`
	DividendsClaimedUsd6  int64 `json:"dividendsClaimedUsd6"`
	OpenInvoices          int64 `json:"openInvoices"`
	OutstandingCreditUsd6 int64 `json:"outstandingCreditUsd6"`
}
