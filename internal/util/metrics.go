package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_webhooks_received_total",
		Help: "Total number of webhook deliveries received, by event and outcome",
	}, []string{"event", "outcome"})

	ConfirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_confirmations_total",
		Help: "Total number of delivery confirmations applied, by party",
	}, []string{"party"})

	PayoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_payouts_total",
		Help: "Total number of payout attempts, by outcome",
	}, []string{"outcome"})

	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "escrow_checkouts_total",
		Help: "Total number of payment sessions initiated",
	})

	TransactionsReconciledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_transactions_reconciled_total",
		Help: "Total number of transactions touched by the reconciliation sweeper",
	}, []string{"action"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
