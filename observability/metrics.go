package observability

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// GiftMetrics records campaign activity for the /metrics endpoint.
type GiftMetrics struct {
	Claims      *prometheus.CounterVec
	Releases    prometheus.Counter
	Rejections  *prometheus.CounterVec
	PoolBalance prometheus.Gauge
	Coefficient prometheus.Gauge
}

var (
	giftMetricsOnce sync.Once
	giftRegistry    *GiftMetrics
)

// Gift returns the lazily-initialised gift metrics registry.
func Gift() *GiftMetrics {
	giftMetricsOnce.Do(func() {
		giftRegistry = &GiftMetrics{
			Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gift",
				Name:      "claims_total",
				Help:      "Total accepted claims segmented by claimer type.",
			}, []string{"claimer"}),
			Releases: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "gift",
				Name:      "releases_total",
				Help:      "Total successful vesting stage releases.",
			}),
			Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gift",
				Name:      "rejections_total",
				Help:      "Rejected claim/release requests segmented by reason.",
			}, []string{"op", "reason"}),
			PoolBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "gift",
				Name:      "pool_balance",
				Help:      "Current distributable pool balance in base denom units.",
			}),
			Coefficient: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "gift",
				Name:      "coefficient",
				Help:      "Current payout coefficient as a float approximation.",
			}),
		}
		prometheus.MustRegister(
			giftRegistry.Claims,
			giftRegistry.Releases,
			giftRegistry.Rejections,
			giftRegistry.PoolBalance,
			giftRegistry.Coefficient,
		)
	})
	return giftRegistry
}

// SetPoolBalance updates the balance gauge from a big.Int amount. Precision
// loss is acceptable for monitoring purposes.
func (m *GiftMetrics) SetPoolBalance(balance *big.Int) {
	if m == nil || balance == nil {
		return
	}
	f, _ := new(big.Float).SetInt(balance).Float64()
	m.PoolBalance.Set(f)
}
