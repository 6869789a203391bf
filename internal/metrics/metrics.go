package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskwise/backend/internal/models"
	"github.com/taskwise/backend/pkg/logger"
	"gorm.io/gorm"
)

const namespace = "taskwise"

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AuthzDecisionsTotal *prometheus.CounterVec
}

// New registers the HTTP, authorization and runtime collectors on registry.
func New(registry *prometheus.Registry) *Metrics {
	startTime := time.Now()
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authz_decisions_total",
				Help:      "Resource-scoped authorization decisions by check and outcome",
			},
			[]string{"check", "decision"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since server start in seconds",
		}, func() float64 { return time.Since(startTime).Seconds() }),
	)
	return m
}

// RecordDecision counts an authorization outcome.
func (m *Metrics) RecordDecision(check string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.AuthzDecisionsTotal.WithLabelValues(check, decision).Inc()
}

// RegisterDB exports connection pool statistics and entity counts. Counts are
// queried on scrape.
func (m *Metrics) RegisterDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	m.registry.MustRegister(collectors.NewDBStatsCollector(sqlDB, "taskwise"))

	count := func(name, help string, model interface{}, where ...interface{}) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 {
			var n int64
			q := db.Model(model)
			if len(where) > 0 {
				q = q.Where(where[0], where[1:]...)
			}
			if err := q.Count(&n).Error; err != nil {
				logger.Warn().Err(err).Str("metric", name).Msg("metric query failed")
				return -1
			}
			return float64(n)
		})
	}
	m.registry.MustRegister(
		count("projects_total", "Number of projects", &models.Project{}),
		count("tasks_open", "Number of tasks not completed", &models.Task{}, "status <> ?", models.TaskStatusCompleted),
		count("users_active", "Number of active users", &models.User{}, "is_active = ?", true),
	)
	return nil
}

// Middleware counts and times requests by route pattern.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
