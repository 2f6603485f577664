package feepolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		amountUsd6 int64
		feeBps     int64
		wantFee    int64
		wantNet    int64
		wantErr    bool
	}{
		{
			// $100 at 50 bps: fee $0.50, net $99.50
			name:       "hundred dollars at fifty bps",
			amountUsd6: 100_000000,
			feeBps:     50,
			wantFee:    500000,
			wantNet:    99_500000,
		},
		{
			name:       "zero fee",
			amountUsd6: 42_000000,
			feeBps:     0,
			wantFee:    0,
			wantNet:    42_000000,
		},
		{
			name:       "full fee",
			amountUsd6: 42_000000,
			feeBps:     10000,
			wantFee:    42_000000,
			wantNet:    0,
		},
		{
			// 1 micro-dollar at 50 bps floors to zero fee
			name:       "fee floors to zero on tiny amount",
			amountUsd6: 1,
			feeBps:     50,
			wantFee:    0,
			wantNet:    1,
		},
		{
			// 199 * 50 / 10000 = 0.995 -> floor 0
			name:       "floor division never rounds up",
			amountUsd6: 199,
			feeBps:     50,
			wantFee:    0,
			wantNet:    199,
		},
		{
			name:       "zero amount",
			amountUsd6: 0,
			feeBps:     50,
			wantFee:    0,
			wantNet:    0,
		},
		{
			name:       "negative amount rejected",
			amountUsd6: -1,
			feeBps:     50,
			wantErr:    true,
		},
		{
			name:       "negative bps rejected",
			amountUsd6: 100,
			feeBps:     -1,
			wantErr:    true,
		},
		{
			name:       "bps above denominator rejected",
			amountUsd6: 100,
			feeBps:     10001,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, net, err := Split(tt.amountUsd6, tt.feeBps)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFee, fee)
			assert.Equal(t, tt.wantNet, net)
		})
	}
}

// Conservation must hold for every valid (amount, bps) pair.
func TestSplitConservation(t *testing.T) {
	amounts := []int64{0, 1, 2, 99, 100, 999, 1_000000, 3_333333, 100_000000, 999_999_999999}
	for _, amount := range amounts {
		for bps := int64(0); bps <= 10000; bps += 7 {
			fee, net, err := Split(amount, bps)
			require.NoError(t, err)
			require.Equal(t, amount, fee+net, "amount=%d bps=%d", amount, bps)
			require.GreaterOrEqual(t, fee, int64(0))
			require.GreaterOrEqual(t, net, int64(0))
		}
	}
}

func TestDividendEntitlement(t *testing.T) {
	tests := []struct {
		name          string
		netProfitUsd6 int64
		ownershipBps  int64
		want          int64
	}{
		{"sole owner takes full profit", 50_000000, 10000, 50_000000},
		{"half owner takes half", 50_000000, 5000, 25_000000},
		{"floors fractional micro-dollars", 999, 3333, 332},
		{"negative profit pays nothing", -10_000000, 10000, 0},
		{"zero profit pays nothing", 0, 10000, 0},
		{"zero ownership pays nothing", 50_000000, 0, 0},
		{"ownership clamped at denominator", 50_000000, 20000, 50_000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DividendEntitlement(tt.netProfitUsd6, tt.ownershipBps))
		})
	}
}

// Entitlement is monotone in both profit and ownership, never negative, and
// never exceeds the profit itself.
func TestDividendEntitlementBounds(t *testing.T) {
	profits := []int64{-5, 0, 1, 999, 1_000000, 50_000000}
	for _, profit := range profits {
		prev := int64(0)
		for bps := int64(0); bps <= 10000; bps += 250 {
			got := DividendEntitlement(profit, bps)
			require.GreaterOrEqual(t, got, int64(0))
			require.GreaterOrEqual(t, got, prev, "profit=%d bps=%d", profit, bps)
			if profit > 0 {
				require.LessOrEqual(t, got, profit)
			}
			prev = got
		}
	}
}
