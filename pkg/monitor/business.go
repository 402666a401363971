package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 定义账本业务监控指标
type BusinessMetrics struct {
	WithdrawSubmittedTotal   *prometheus.CounterVec
	ReviewTotal              *prometheus.CounterVec
	DepositCreditedTotal     *prometheus.CounterVec
	TradeSettledTotal        *prometheus.CounterVec
	InvariantViolationsTotal *prometheus.CounterVec
	HistoryDroppedRowsTotal  *prometheus.CounterVec
	HaltedAccounts           prometheus.Gauge
	ReconcileDuration        prometheus.Histogram
	OutboxRelayedTotal       *prometheus.CounterVec
	DepositClaimsSuperseded  *prometheus.CounterVec
	ConfirmationConflicts    *prometheus.CounterVec
}

// Business 全局业务指标，包加载时注册到默认 Registry
var Business = newBusinessMetrics()

func newBusinessMetrics() *BusinessMetrics {
	return &BusinessMetrics{
		WithdrawSubmittedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_withdraw_submitted_total",
			Help: "Withdrawal requests accepted and frozen",
		}, []string{"source", "asset"}),
		ReviewTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_review_total",
			Help: "Admin and user state transitions on reviewable records",
		}, []string{"source", "action"}),
		DepositCreditedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_deposit_credited_total",
			Help: "Deposits credited to user balances",
		}, []string{"asset"}),
		TradeSettledTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_trade_settled_total",
			Help: "Trades settled into balances",
		}, []string{"pair"}),
		InvariantViolationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_invariant_violations_total",
			Help: "Balance mutations refused by the invariant checker",
		}, []string{"cause"}),
		HistoryDroppedRowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_history_dropped_rows_total",
			Help: "Malformed source rows dropped while building history",
		}, []string{"source"}),
		HaltedAccounts: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_halted_accounts",
			Help: "Accounts halted by the last reconciliation sweep",
		}),
		ReconcileDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_reconcile_duration_seconds",
			Help:    "Duration of reconciliation sweeps",
			Buckets: prometheus.DefBuckets,
		}),
		OutboxRelayedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_outbox_relayed_total",
			Help: "Outbox messages relayed to the message queue",
		}, []string{"topic", "result"}),
		DepositClaimsSuperseded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_deposit_claims_superseded_total",
			Help: "Pending recharge claims failed because the chain reported a different owner or amount",
		}, []string{"network"}),
		ConfirmationConflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_confirmation_conflicts_total",
			Help: "Confirmation notices contradicting an already tracked deposit (alert on any increase)",
		}, []string{"network"}),
	}
}
