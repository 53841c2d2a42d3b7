package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	// Service identification
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Prometheus configuration
	MetricsPath string // HTTP path for metrics endpoint (default: /metrics)
	MetricsPort int    // Port for metrics server (default: 9090)

	// Metric options
	Namespace        string    // Prometheus namespace (default: mcp)
	Subsystem        string    // Prometheus subsystem
	HistogramBuckets []float64 // Custom histogram buckets for latency

	// Labels to add to all metrics
	ConstLabels prometheus.Labels
}

// MetricsProvider records runtime events
type MetricsProvider interface {
	RecordRequest(ctx context.Context, method, status string, duration time.Duration)
	RecordToolCall(ctx context.Context, tool, status string, duration time.Duration)
	RecordResourceRead(ctx context.Context, uri, status string, duration time.Duration)
	RecordNotification(ctx context.Context, method, status string)
	RecordRegistrySize(kind string, size int)
	RecordSubscriptions(count int)
	RecordActiveClients(delta int)

	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// PrometheusMetricsProvider implements MetricsProvider using Prometheus
type PrometheusMetricsProvider struct {
	config MetricsConfig
	server *http.Server

	requestDuration      *prometheus.HistogramVec
	requestTotal         *prometheus.CounterVec
	toolCallDuration     *prometheus.HistogramVec
	resourceReadDuration *prometheus.HistogramVec
	notificationTotal    *prometheus.CounterVec
	registrySize         *prometheus.GaugeVec
	subscriptionCount    prometheus.Gauge
	activeClients        prometheus.Gauge
}

// NewMetricsProvider creates a new Prometheus metrics provider
func NewMetricsProvider(config MetricsConfig) (MetricsProvider, error) {
	// Set defaults
	if config.Namespace == "" {
		config.Namespace = "mcp"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.MetricsPort == 0 {
		config.MetricsPort = 9090
	}
	if config.HistogramBuckets == nil {
		// Default buckets for milliseconds
		config.HistogramBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	}

	if config.ConstLabels == nil {
		config.ConstLabels = prometheus.Labels{}
	}
	config.ConstLabels["service"] = config.ServiceName
	config.ConstLabels["version"] = config.ServiceVersion
	config.ConstLabels["environment"] = config.Environment

	provider := &PrometheusMetricsProvider{config: config}
	provider.initializeMetrics()

	if err := provider.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return provider, nil
}

// initializeMetrics creates all metric collectors
func (p *PrometheusMetricsProvider) initializeMetrics() {
	p.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "request_duration_milliseconds",
			Help:        "Duration of handled requests in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "status"},
	)

	p.requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "request_total",
			Help:        "Total number of handled requests",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "status"},
	)

	p.toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "tool_call_duration_milliseconds",
			Help:        "Duration of tool handler invocations in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"tool", "status"},
	)

	p.resourceReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "resource_read_duration_milliseconds",
			Help:        "Duration of resource reads in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"uri", "status"},
	)

	p.notificationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "notification_total",
			Help:        "Total number of notifications sent",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "status"},
	)

	p.registrySize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "registry_entries",
			Help:        "Number of registered capability entries per kind",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"kind"},
	)

	p.subscriptionCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "subscriptions",
			Help:        "Number of live client/URI subscription pairs",
			ConstLabels: p.config.ConstLabels,
		},
	)

	p.activeClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "active_clients",
			Help:        "Number of connected clients",
			ConstLabels: p.config.ConstLabels,
		},
	)
}

// registerMetrics registers all metrics with Prometheus
func (p *PrometheusMetricsProvider) registerMetrics() error {
	collectors := []prometheus.Collector{
		p.requestDuration,
		p.requestTotal,
		p.toolCallDuration,
		p.resourceReadDuration,
		p.notificationTotal,
		p.registrySize,
		p.subscriptionCount,
		p.activeClients,
	}

	for _, collector := range collectors {
		if err := prometheus.Register(collector); err != nil {
			// Check if already registered
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	return nil
}

// RecordRequest records one handled request
func (p *PrometheusMetricsProvider) RecordRequest(ctx context.Context, method, status string, duration time.Duration) {
	ms := float64(duration.Milliseconds())
	p.requestDuration.WithLabelValues(method, status).Observe(ms)
	p.requestTotal.WithLabelValues(method, status).Inc()
}

// RecordToolCall records a tool handler invocation
func (p *PrometheusMetricsProvider) RecordToolCall(ctx context.Context, tool, status string, duration time.Duration) {
	ms := float64(duration.Milliseconds())
	p.toolCallDuration.WithLabelValues(tool, status).Observe(ms)
}

// RecordResourceRead records a resource read
func (p *PrometheusMetricsProvider) RecordResourceRead(ctx context.Context, uri, status string, duration time.Duration) {
	ms := float64(duration.Milliseconds())
	p.resourceReadDuration.WithLabelValues(uri, status).Observe(ms)
}

// RecordNotification records a notification send attempt
func (p *PrometheusMetricsProvider) RecordNotification(ctx context.Context, method, status string) {
	p.notificationTotal.WithLabelValues(method, status).Inc()
}

// RecordRegistrySize records the current entry count for a registry kind
func (p *PrometheusMetricsProvider) RecordRegistrySize(kind string, size int) {
	p.registrySize.WithLabelValues(kind).Set(float64(size))
}

// RecordSubscriptions records the current subscription pair count
func (p *PrometheusMetricsProvider) RecordSubscriptions(count int) {
	p.subscriptionCount.Set(float64(count))
}

// RecordActiveClients records the change in connected clients
func (p *PrometheusMetricsProvider) RecordActiveClients(delta int) {
	if delta > 0 {
		p.activeClients.Add(float64(delta))
	} else {
		p.activeClients.Sub(float64(-delta))
	}
}

// Start starts the metrics HTTP server
func (p *PrometheusMetricsProvider) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(p.config.MetricsPath, promhttp.Handler())

	p.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", p.config.MetricsPort),
		Handler: mux,
	}

	go func() {
		_ = p.server.ListenAndServe()
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics server
func (p *PrometheusMetricsProvider) Shutdown(ctx context.Context) error {
	if p.server != nil {
		return p.server.Shutdown(ctx)
	}
	return nil
}

// NopMetricsProvider discards all recordings
type NopMetricsProvider struct{}

func (NopMetricsProvider) RecordRequest(context.Context, string, string, time.Duration)      {}
func (NopMetricsProvider) RecordToolCall(context.Context, string, string, time.Duration)     {}
func (NopMetricsProvider) RecordResourceRead(context.Context, string, string, time.Duration) {}
func (NopMetricsProvider) RecordNotification(context.Context, string, string)                {}
func (NopMetricsProvider) RecordRegistrySize(string, int)                                    {}
func (NopMetricsProvider) RecordSubscriptions(int)                                           {}
func (NopMetricsProvider) RecordActiveClients(int)                                           {}
func (NopMetricsProvider) Start(context.Context) error                                       { return nil }
func (NopMetricsProvider) Shutdown(context.Context) error                                    { return nil }
