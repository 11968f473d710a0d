// Package metrics holds the Prometheus instruments for the moderation
// engine.  All collectors are registered with the global registry, so
// importing this package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_transitions_total",
			Help: "Site lifecycle transitions by action and outcome (ok, account_deleted, error).",
		}, []string{"action", "outcome"})

	StrikesIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_strikes_issued_total",
			Help: "Strike records written.",
		})

	AccountPurges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_account_purges_total",
			Help: "Accounts removed by the purge orchestrator.",
		})

	AssetReleaseFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_asset_release_failures_total",
			Help: "Asset releases that failed or timed out and were skipped.",
		})

	AuditWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_audit_write_failures_total",
			Help: "Audit entries that could not be written.",
		})

	ReportsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_reports_created_total",
			Help: "Reports filed, by reason.",
		}, []string{"reason"})

	FlagCacheLoads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_flag_cache_loads_total",
			Help: "Platform flag reads that went to the database.",
		})
)

func init() {
	prometheus.MustRegister(
		Transitions,
		StrikesIssued,
		AccountPurges,
		AssetReleaseFailures,
		AuditWriteFailures,
		ReportsCreated,
		FlagCacheLoads,
	)
}
