package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"

	"coinpilot/internal/agent/engine"
)

var (
	metricCyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agent_cycles_total", Help: "Completed analysis cycles"})
	metricCycleFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agent_cycle_failures_total", Help: "Cycles that ended in error"})
	metricDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_decisions_total", Help: "Sanitized decisions by action"}, []string{"action"})
	metricDecisionsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agent_decisions_rejected_total", Help: "Decisions refused by the risk chain"})
	metricTargetUSD = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agent_allocation_target_usd", Help: "Aggregate target allocation of the last cycle"})
)

func init() {
	prometheus.MustRegister(
		metricCyclesTotal,
		metricCycleFailures,
		metricDecisionsTotal,
		metricDecisionsRejected,
		metricTargetUSD,
	)
}

// ObserveCycle records one cycle outcome. A nil result counts as a failure.
func ObserveCycle(result *engine.CycleResult, err error) {
	if err != nil || result == nil {
		metricCycleFailures.Inc()
		return
	}
	metricCyclesTotal.Inc()
	for _, d := range result.Decisions {
		metricDecisionsTotal.WithLabelValues(string(d.Action)).Inc()
	}
	metricDecisionsRejected.Add(float64(len(result.Rejected)))
	metricTargetUSD.Set(result.Allocation.Summary.TotalTargetUSD)
}
