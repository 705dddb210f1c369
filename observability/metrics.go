package observability

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FarmingMetrics bundles collectors tracking ledger operation throughput,
// payouts and fee flows.
type FarmingMetrics struct {
	operations  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	rewardsPaid *prometheus.CounterVec
	feesCharged *prometheus.CounterVec
	poolStake   *prometheus.GaugeVec
	paused      prometheus.Gauge
}

var (
	farmingMetricsOnce sync.Once
	farmingRegistry    *FarmingMetrics
)

// Farming returns the lazily-initialised metrics registry for the farming
// ledger.
func Farming() *FarmingMetrics {
	farmingMetricsOnce.Do(func() {
		farmingRegistry = &FarmingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "farm",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Count of ledger operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "farm",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for ledger operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			rewardsPaid: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "farm",
				Subsystem: "ledger",
				Name:      "rewards_paid_total",
				Help:      "Reward units paid out of the vault segmented by pool.",
			}, []string{"pool"}),
			feesCharged: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "farm",
				Subsystem: "ledger",
				Name:      "fees_charged_total",
				Help:      "Fee units charged segmented by pool and kind.",
			}, []string{"pool", "kind"}),
			poolStake: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "farm",
				Subsystem: "ledger",
				Name:      "pool_stake",
				Help:      "Total deposited stake per pool in integer deposit units.",
			}, []string{"pool"}),
			paused: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "farm",
				Subsystem: "ledger",
				Name:      "pause_engaged",
				Help:      "Indicates whether the ledger pause guard is active (1) or not (0).",
			}),
		}
		prometheus.MustRegister(
			farmingRegistry.operations,
			farmingRegistry.latency,
			farmingRegistry.rewardsPaid,
			farmingRegistry.feesCharged,
			farmingRegistry.poolStake,
			farmingRegistry.paused,
		)
	})
	return farmingRegistry
}

// Observe records one ledger operation and its latency.
func (m *FarmingMetrics) Observe(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordRewardPaid adds the paid amount to the per-pool payout counter.
func (m *FarmingMetrics) RecordRewardPaid(pool string, amount *big.Int) {
	if m == nil {
		return
	}
	m.rewardsPaid.WithLabelValues(labelPool(pool)).Add(bigToFloat(amount))
}

// RecordFee adds a charged fee to the per-pool fee counter. Kind should be a
// stable string such as "deposit" or "harvest".
func (m *FarmingMetrics) RecordFee(pool, kind string, amount *big.Int) {
	if m == nil {
		return
	}
	if kind = strings.TrimSpace(kind); kind == "" {
		kind = "unspecified"
	}
	m.feesCharged.WithLabelValues(labelPool(pool), kind).Add(bigToFloat(amount))
}

// RecordPoolStake updates the stake gauge for a pool.
func (m *FarmingMetrics) RecordPoolStake(pool string, total *big.Int) {
	if m == nil {
		return
	}
	m.poolStake.WithLabelValues(labelPool(pool)).Set(bigToFloat(total))
}

// SetPause toggles the pause_engaged gauge.
func (m *FarmingMetrics) SetPause(engaged bool) {
	if m == nil {
		return
	}
	if engaged {
		m.paused.Set(1)
		return
	}
	m.paused.Set(0)
}

func labelPool(pool string) string {
	trimmed := strings.TrimSpace(pool)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
