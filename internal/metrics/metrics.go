package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Authentication
	// ============================================
	ChallengesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletauth_challenges_issued_total",
			Help: "Total number of wallet challenges issued",
		},
		[]string{"network"},
	)

	ChallengeVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletauth_challenge_verifications_total",
			Help: "Total number of challenge verifications by result",
		},
		[]string{"result"},
	)

	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "walletauth_sessions_created_total",
		Help: "Total number of sessions created",
	})

	SessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletauth_sessions_ended_total",
			Help: "Total number of sessions ended by reason (disconnect, expired)",
		},
		[]string{"reason"},
	)

	// ============================================
	// Reconciliation
	// ============================================
	TransfersReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletauth_transfers_reconciled_total",
			Help: "Total number of transfer claims by direction and result",
		},
		[]string{"direction", "result"},
	)

	// ============================================
	// Ledger
	// ============================================
	LedgerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletauth_ledger_request_duration_seconds",
			Help:    "Ledger indexer request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)

	EventsPublishFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletauth_events_publish_failed_total",
			Help: "Total number of domain events that could not be published",
		},
		[]string{"topic"},
	)

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "walletauth_rate_limited_total",
		Help: "Total number of connect requests rejected by the rate limiter",
	})
)
