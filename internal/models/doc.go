// Package models defines the core domain records for the NileLink
// commerce ledger.
//
// # Money
//
// Every monetary field is an integer number of micro-dollars ("usd6"): a
// USD amount scaled by 1,000,000. $1.50 is 1_500000. Floating point is
// never used for money, in memory or on disk.
//
// # Records
//
//   - Order / SettlementRecord: customer payment and its fee split
//   - InvestorPosition / RestaurantValuation / DividendClaim: profit sharing
//   - CreditLine / Invoice: supplier credit
//   - Account: a running usd6 balance (restaurant, fee recipient, or
//     dividend pool)
//
// Relationships are by ID string, never by pointer, to keep records
// directly persistable.
package models
