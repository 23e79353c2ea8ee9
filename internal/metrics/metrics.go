// Package metrics defines the application's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Game metrics
var (
	// ActiveSessions tracks the number of live quiz sessions across channels.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quizbot_active_sessions",
			Help: "Number of currently running quiz sessions",
		},
	)

	// QuestionsAsked tracks questions presented, by category.
	QuestionsAsked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_questions_asked_total",
			Help: "Questions presented to channels by category",
		},
		[]string{"category"},
	)

	// AnswersGraded tracks graded answers by result (correct/incorrect).
	AnswersGraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_answers_graded_total",
			Help: "Candidate answers graded by result",
		},
		[]string{"result"},
	)

	// AnswerLatency tracks time from question open to the winning answer.
	AnswerLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quizbot_answer_latency_seconds",
			Help:    "Seconds from question open to the first correct answer",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 30},
		},
	)
)

// Question pipeline metrics
var (
	// GenerationAttempts tracks Question Source calls by outcome.
	GenerationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_generation_attempts_total",
			Help: "Question Source generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// FallbackDraws tracks questions served from the built-in fallback set.
	FallbackDraws = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizbot_fallback_draws_total",
			Help: "Questions drawn from the built-in fallback set",
		},
	)

	// CacheHits tracks questions served from the Redis question cache.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizbot_question_cache_hits_total",
			Help: "Questions served from the question cache",
		},
	)
)

// Persistence metrics
var (
	// PersistenceFailures tracks best-effort store writes that failed.
	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_persistence_failures_total",
			Help: "Best-effort persistence writes that failed, by operation",
		},
		[]string{"operation"},
	)

	// DBQueryDuration tracks query latency grouped by statement verb.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizbot_db_query_duration_seconds",
			Help:    "Database query duration by query type",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks failed queries grouped by statement verb.
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_db_errors_total",
			Help: "Database query errors by query type",
		},
		[]string{"query"},
	)

	// RedisOpsTotal tracks Redis commands by name and outcome.
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_redis_ops_total",
			Help: "Redis operations by command and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis command latency.
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizbot_redis_op_duration_seconds",
			Help:    "Redis operation duration by command",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks failed dials to Redis.
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizbot_redis_connection_errors_total",
			Help: "Failed attempts to establish a Redis connection",
		},
	)
)
