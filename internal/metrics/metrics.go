// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the vault Prometheus metrics. A fresh registry per instance
// keeps tests isolated from the default global registerer.
type Collector struct {
	operations    *prometheus.CounterVec
	oracleUpdates *prometheus.CounterVec
	hedgeFills    prometheus.Counter
	missedFills   prometheus.Counter

	volScoreBps    prometheus.Gauge
	realizedVolBps prometheus.Gauge
	bandBps        prometheus.Gauge
	intervalSlots  prometheus.Gauge
	hedgeUsd       prometheus.Gauge
	navUsd         prometheus.Gauge
	avgSlippageBps prometheus.Gauge
	epoch          prometheus.Gauge
}

// NewCollector builds and registers the vault metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_operations_total",
			Help: "Vault state transitions by operation and result",
		}, []string{"operation", "result"}),
		oracleUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_oracle_updates_total",
			Help: "Oracle update attempts by result and reject reason",
		}, []string{"result", "reason"}),
		hedgeFills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vault_hedge_fills_total",
			Help: "Confirmed hedge fills",
		}),
		missedFills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vault_hedge_missed_confirms_total",
			Help: "Hedge requests that expired unconfirmed",
		}),
		volScoreBps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_vol_score_bps",
			Help: "Blended volatility score",
		}),
		realizedVolBps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_realized_vol_bps",
			Help: "Realized volatility estimate",
		}),
		bandBps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_band_bps",
			Help: "Current hedge trigger band",
		}),
		intervalSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_min_hedge_interval_slots",
			Help: "Current minimum hedge interval",
		}),
		hedgeUsd: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_hedge_notional_usd",
			Help: "Signed hedge notional",
		}),
		navUsd: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_nav_usd",
			Help: "Last NAV snapshot",
		}),
		avgSlippageBps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_avg_fill_slippage_bps",
			Help: "Running average fill slippage",
		}),
		epoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_epoch",
			Help: "Current vault epoch",
		}),
	}

	reg.MustRegister(
		c.operations, c.oracleUpdates, c.hedgeFills, c.missedFills,
		c.volScoreBps, c.realizedVolBps, c.bandBps, c.intervalSlots,
		c.hedgeUsd, c.navUsd, c.avgSlippageBps, c.epoch,
	)
	return c
}

// RecordOperation counts one state transition attempt.
func (c *Collector) RecordOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.operations.WithLabelValues(operation, result).Inc()
}

// RecordOracleUpdate counts one gate verdict.
func (c *Collector) RecordOracleUpdate(accepted bool, reason string) {
	if accepted {
		c.oracleUpdates.WithLabelValues("accepted", "none").Inc()
		return
	}
	c.oracleUpdates.WithLabelValues("rejected", reason).Inc()
}

// RecordHedgeFill counts a confirmed fill and refreshes slippage.
func (c *Collector) RecordHedgeFill(hedgeUsd int64, avgSlippageBps uint16) {
	c.hedgeFills.Inc()
	c.hedgeUsd.Set(float64(hedgeUsd))
	c.avgSlippageBps.Set(float64(avgSlippageBps))
}

// RecordMissedConfirm counts an expired request.
func (c *Collector) RecordMissedConfirm() {
	c.missedFills.Inc()
}

// RecordPolicy refreshes the policy gauges after an epoch tick.
func (c *Collector) RecordPolicy(epoch uint64, volScoreBps, realizedVolBps, bandBps uint16, intervalSlots uint64, navUsd int64) {
	c.epoch.Set(float64(epoch))
	c.volScoreBps.Set(float64(volScoreBps))
	c.realizedVolBps.Set(float64(realizedVolBps))
	c.bandBps.Set(float64(bandBps))
	c.intervalSlots.Set(float64(intervalSlots))
	c.navUsd.Set(float64(navUsd))
}
