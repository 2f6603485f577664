// Package metrics exposes the ledger's Prometheus collectors. Counter
// names mirror the platform's protocol-wide stats.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCreated counts orders accepted by the settlement engine.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_orders_created_total",
		Help: "Orders created.",
	})

	// OrdersSettled counts orders paid and settled.
	OrdersSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_orders_settled_total",
		Help: "Orders settled.",
	})

	// OrdersFailed counts orders moved to FAILED.
	OrdersFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_orders_failed_total",
		Help: "Orders failed.",
	})

	// SettledVolumeUsd6 accumulates settled order volume in micro-dollars.
	SettledVolumeUsd6 = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_settled_volume_usd6_total",
		Help: "Settled order volume in usd6.",
	})

	// ProtocolFeesUsd6 accumulates collected protocol fees in micro-dollars.
	ProtocolFeesUsd6 = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_protocol_fees_usd6_total",
		Help: "Protocol fees collected in usd6.",
	})

	// DividendsClaimedUsd6 accumulates paid-out dividends in micro-dollars.
	DividendsClaimedUsd6 = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_dividends_claimed_usd6_total",
		Help: "Dividends claimed in usd6.",
	})

	// InvoicesPaid counts repaid supplier invoices.
	InvoicesPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_invoices_paid_total",
		Help: "Supplier invoices repaid.",
	})
)
