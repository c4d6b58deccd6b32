package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quizreward"

var (
	// HTTPRequests считает HTTP запросы по маршруту и статусу
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration - длительность HTTP запросов
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AttemptsStarted считает начатые прохождения
	AttemptsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "attempts",
		Name:      "started_total",
		Help:      "Total number of started quiz attempts",
	})

	// AttemptsCompleted считает завершенные прохождения по результату сохранения (saved, queued, dropped)
	AttemptsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attempts",
			Name:      "completed_total",
			Help:      "Total number of completed quiz attempts by persistence outcome",
		},
		[]string{"outcome"},
	)

	// AttemptsInProgress - число прохождений в процессе
	AttemptsInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "attempts",
		Name:      "in_progress",
		Help:      "Number of quiz attempts currently in progress",
	})

	// AutoSubmits считает ответы, закрытые таймером
	AutoSubmits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "attempts",
		Name:      "auto_submits_total",
		Help:      "Total number of questions closed by the countdown timer",
	})

	// OutboxDepth - длина очереди несохраненных попыток
	OutboxDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "attempts",
		Name:      "outbox_depth",
		Help:      "Number of attempts waiting for persistence retry",
	})

	// Payments считает операции с платежами по этапу и результату
	Payments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "operations_total",
			Help:      "Payment operations by stage (create_order, verify) and outcome",
		},
		[]string{"stage", "outcome"},
	)

	// SessionsExpired считает сессии, закрытые по бездействию
	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "idle_expired_total",
		Help:      "Total number of sessions signed out due to inactivity",
	})

	// WSConnections - число активных WebSocket подключений
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "websocket",
		Name:      "connections",
		Help:      "Number of active WebSocket connections",
	})
)
