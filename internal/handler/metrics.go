package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commissionWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "axiom_commission_writes_total",
		Help: "Total number of commission mutations by operation.",
	}, []string{"operation"})
	artistWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "axiom_future_artist_writes_total",
		Help: "Total number of future artist mutations by operation.",
	}, []string{"operation"})
	commentsPostedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "axiom_comments_posted_total",
		Help: "Total number of comments posted.",
	})
	importsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "axiom_imports_total",
		Help: "Total number of successful record imports.",
	})
)
