// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thicket",
		Name:      "comments_created_total",
		Help:      "Comments persisted, by kind (thread or reply).",
	}, []string{"kind"})

	DuplicatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thicket",
		Name:      "duplicates_rejected_total",
		Help:      "Submissions rejected by a duplicate guard, by scope.",
	}, []string{"scope"})

	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thicket",
		Name:      "validation_failures_total",
		Help:      "Submissions rejected by validation, by field.",
	}, []string{"field"})

	NotificationsCleared = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thicket",
		Name:      "notifications_cleared_total",
		Help:      "Unseen rows marked seen, by kind.",
	}, []string{"kind"})

	RankingQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "thicket",
		Name:      "ranking_queue_dropped_total",
		Help:      "Ranking updates skipped because the queue was full.",
	})

	UsersCleaned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "thicket",
		Name:      "inactive_users_deleted_total",
		Help:      "Users removed by the inactive-user cleanup.",
	})
)
