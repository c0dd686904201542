// Package metrics exposes the pipeline's Prometheus instrumentation. All
// recorder methods are nil-safe so components can run without metrics wired,
// e.g. in unit tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	withdrawalRequestsTotal  *prometheus.CounterVec
	withdrawalRejectedTotal  *prometheus.CounterVec
	refundsTotal             *prometheus.CounterVec
	settlementAttemptsTotal  *prometheus.CounterVec
	deadLetterMovesTotal     prometheus.Counter
	deadLetterRedrivesTotal  prometheus.Counter
	deadLetterDepth          prometheus.Gauge
	reconcilerOutcomesTotal  *prometheus.CounterVec
	speedUpRecommended       prometheus.Counter
	escrowActionsTotal       *prometheus.CounterVec
	lockConflictRetriesTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		withdrawalRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "payout_pipeline",
				Subsystem: "withdrawal",
				Name:      "requests_total",
				Help:      "Total withdrawal requests partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		withdrawalRejectedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "payout_pipeline",
				Subsystem: "withdrawal",
				Name:      "rejected_total",
				Help:      "Total rejected withdrawal requests partitioned by rejection code.",
			},
			[]string{"code"},
		),
		refundsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "payout_pipeline",
				Subsystem: "withdrawal",
				Name:      "refunds_total",
				Help:      "Total refunds partitioned by trigger (cancel, reject, reverted, terminated).",
			},
			[]string{"trigger"},
		),
		settlementAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "payout_pipeline",
				Subsystem: "settlement",
				Name:      "attempts_total",
				Help:      "Total settlement send attempts partitioned by result.",
			},
			[]string{"result"},
		),
		deadLetterMovesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "payout_pipeline",
				Subsystem: "settlement",
				Name:      "dead_letter_moves_total",
				Help:      "Total retry records moved to the dead letter.",
			},
		),
		deadLetterRedrivesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "payout_pipeline",
				Subsystem: "settlement",
				Name:      "dead_letter_redrives_total",
				Help:      "Total manual re-drives of dead-letter records.",
			},
		),
		deadLetterDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "payout_pipeline",
				Subsystem: "settlement",
				Name:      "dead_letter_depth",
				Help:      "Current count of unresolved dead-letter records.",
			},
		),
		reconcilerOutcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "payout_pipeline",
				Subsystem: "reconciler",
				Name:      "outcomes_total",
				Help:      "Total reconciled stuck withdrawals partitioned by ledger outcome.",
			},
			[]string{"outcome"},
		),
		speedUpRecommended: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "payout_pipeline",
				Subsystem: "reconciler",
				Name:      "speed_up_recommended_total",
				Help:      "Total pending settlements flagged for a manual fee speed-up.",
			},
		),
		escrowActionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "payout_pipeline",
				Subsystem: "escrow",
				Name:      "actions_total",
				Help:      "Total escrow actions partitioned by event (created, approved, rejected).",
			},
			[]string{"event"},
		),
		lockConflictRetriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "payout_pipeline",
				Subsystem: "withdrawal",
				Name:      "lock_conflict_retries_total",
				Help:      "Total account row lock conflicts retried during request handling.",
			},
		),
	}
}

func (m *Metrics) ObserveWithdrawalRequest(outcome string) {
	if m == nil {
		return
	}
	m.withdrawalRequestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveWithdrawalRejected(code string) {
	if m == nil {
		return
	}
	m.withdrawalRejectedTotal.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveRefund(trigger string) {
	if m == nil {
		return
	}
	m.refundsTotal.WithLabelValues(trigger).Inc()
}

func (m *Metrics) ObserveSettlementAttempt(result string) {
	if m == nil {
		return
	}
	m.settlementAttemptsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDeadLetterMove() {
	if m == nil {
		return
	}
	m.deadLetterMovesTotal.Inc()
}

func (m *Metrics) ObserveDeadLetterRedrive() {
	if m == nil {
		return
	}
	m.deadLetterRedrivesTotal.Inc()
}

func (m *Metrics) SetDeadLetterDepth(depth int) {
	if m == nil {
		return
	}
	m.deadLetterDepth.Set(float64(depth))
}

func (m *Metrics) ObserveReconcilerOutcome(outcome string) {
	if m == nil {
		return
	}
	m.reconcilerOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSpeedUpRecommended() {
	if m == nil {
		return
	}
	m.speedUpRecommended.Inc()
}

func (m *Metrics) ObserveEscrowAction(event string) {
	if m == nil {
		return
	}
	m.escrowActionsTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveLockConflictRetry() {
	if m == nil {
		return
	}
	m.lockConflictRetriesTotal.Inc()
}
