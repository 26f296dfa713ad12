package metrics

import "github.com/prometheus/client_golang/prometheus"

var PoolQueueDepth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "deepforest_pool_queue_depth",
		Help: "number of tasks waiting in the worker pool queue",
	})

var PoolTasksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "deepforest_pool_tasks_total",
		Help: "worker pool tasks by outcome",
	}, []string{"outcome"})

var TreesTrainedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "deepforest_trees_trained_total",
		Help: "trained decision trees by forest",
	}, []string{"forest"})

var TreeTrainingSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "deepforest_tree_training_seconds",
		Help:    "time spent inducing a single decision tree",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"forest"})

var ForestTrainingSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "deepforest_forest_training_seconds",
		Help:    "time spent training a forest, barrier included",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"forest"})

var DegenerateSplitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "deepforest_degenerate_splits_total",
		Help: "nodes that accepted a split sending every sample to one side",
	}, []string{"forest"})

func init() {
	prometheus.MustRegister(
		PoolQueueDepth,
		PoolTasksTotal,
		TreesTrainedTotal,
		TreeTrainingSeconds,
		ForestTrainingSeconds,
		DegenerateSplitsTotal,
	)
}
