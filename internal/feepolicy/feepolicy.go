// Package feepolicy holds the pure money math of the ledger: the protocol
// fee split applied at settlement and the dividend entitlement formula.
//
// All functions are deterministic integer arithmetic over usd6 amounts.
// Division always floors, and a split's net side is always derived by
// subtraction so that fee + net reconstructs the input exactly.
package feepolicy

import "fmt"

const (
	// BpsDenominator is the basis-point scale: 10000 bps = 100%.
	BpsDenominator = 10000

	// MaxOrderFeeBps caps the protocol fee on order settlement at 1%.
	MaxOrderFeeBps = 100
)

// Split divides an order amount into a protocol fee and a net merchant
// payout.
//
//	fee = floor(amount * feeBps / 10000)
//	net = amount - fee
//
// The subtraction guarantees conservation: fee + net == amount for every
// valid input. Callers settling orders must cap feeBps at MaxOrderFeeBps
// before calling.
func Split(amountUsd6, feeBps int64) (feeUsd6, netUsd6 int64, err error) {
	if amountUsd6 < 0 {
		return 0, 0, fmt.Errorf("amount must be non-negative, got %d", amountUsd6)
	}
	if feeBps < 0 || feeBps > BpsDenominator {
		return 0, 0, fmt.Errorf("fee bps must be in [0, %d], got %d", BpsDenominator, feeBps)
	}
	feeUsd6 = amountUsd6 * feeBps / BpsDenominator
	netUsd6 = amountUsd6 - feeUsd6
	return feeUsd6, netUsd6, nil
}

// DividendEntitlement computes an investor's total lifetime entitlement to
// a restaurant's profit: floor(profit * ownershipBps / 10000), with
// negative profit floored at zero. Subtracting prior claims from this value
// yields the accrued-and-unclaimed balance.
func DividendEntitlement(netProfitUsd6, ownershipBps int64) int64 {
	if netProfitUsd6 <= 0 || ownershipBps <= 0 {
		return 0
	}
	if ownershipBps > BpsDenominator {
		ownershipBps = BpsDenominator
	}
	return netProfitUsd6 * ownershipBps / BpsDenominator
}
