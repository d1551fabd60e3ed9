package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Commit traffic and collaboration gauges. Scraped at /metrics.
var (
	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photoedit_commits_total",
		Help: "Version commits accepted, by edit action.",
	}, []string{"action"})

	conflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "photoedit_commit_conflicts_total",
		Help: "Version commits rejected by the optimistic tip check.",
	})

	reviewTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photoedit_review_transitions_total",
		Help: "Review state machine transitions applied, by target status.",
	}, []string{"status"})

	presenceConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "photoedit_presence_connections",
		Help: "Currently open presence websocket connections.",
	})
)
