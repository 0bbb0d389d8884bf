// Package metrics exposes Prometheus collectors for the marketplace backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SettlementResults counts payment settlement attempts by outcome
	// (settled, already_settled, verification_failed, order_not_found, store_error).
	SettlementResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guestlink_settlement_results_total",
		Help: "Payment settlement attempts by outcome",
	}, []string{"result"})

	// SettlementDuration observes end-to-end settlement latency.
	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guestlink_settlement_duration_seconds",
		Help:    "Settlement processing latency",
		Buckets: prometheus.DefBuckets,
	})

	// OrdersCreated counts orders produced at checkout.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guestlink_orders_created_total",
		Help: "Orders created at checkout",
	})

	// MarketplaceCacheHits counts listing cache hits/misses.
	MarketplaceCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guestlink_marketplace_cache_total",
		Help: "Marketplace listing cache lookups",
	}, []string{"outcome"})

	// HTTPInFlight reports requests currently being served.
	HTTPInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guestlink_http_in_flight_requests",
		Help: "HTTP requests currently being served",
	})

	// DBOpenConns reports open connections in the DB pool.
	DBOpenConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "guestlink_db_open_conns",
		Help: "Open DB connections",
	}, []string{"db"})

	// DBIdleConns reports idle connections in the DB pool.
	DBIdleConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "guestlink_db_idle_conns",
		Help: "Idle DB connections",
	}, []string{"db"})

	// DBInUseConns reports in-use connections in the DB pool.
	DBInUseConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "guestlink_db_in_use_conns",
		Help: "In-use DB connections",
	}, []string{"db"})
)
