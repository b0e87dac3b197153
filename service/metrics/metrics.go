package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal    *prometheus.CounterVec
	solanaRPCCallDuration  *prometheus.HistogramVec
	solanaRPCRateLimitHits *prometheus.CounterVec
	solanaRPCRetries       *prometheus.CounterVec

	// WebSocket Subscription Metrics
	wsConnectsTotal      *prometheus.CounterVec
	wsDisconnectsTotal   *prometheus.CounterVec
	wsReconnectsTotal    *prometheus.CounterVec
	wsNotificationsTotal *prometheus.CounterVec
	connectedWallets     prometheus.Gauge

	// Transaction Processing Metrics
	transactionsParsedTotal  *prometheus.CounterVec
	transactionsEmittedTotal *prometheus.CounterVec

	// Token Metadata Resolver Metrics
	metadataLookupsTotal   *prometheus.CounterVec
	metadataCacheHitsTotal prometheus.Counter
	metadataCoalescedTotal prometheus.Counter

	// HTTP Metrics
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	sseActiveConnections *prometheus.GaugeVec
	sseEventsSent        *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		solanaRPCRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_rate_limit_hits_total",
				Help: "Total number of Solana RPC rate limit hits (429 errors)",
			},
			[]string{"endpoint"},
		),
		solanaRPCRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_retries_total",
				Help: "Total number of Solana RPC retry attempts",
			},
			[]string{"method", "reason"},
		),

		// WebSocket Subscription Metrics
		wsConnectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_connects_total",
				Help: "Total number of websocket subscription connect attempts",
			},
			[]string{"wallet_address", "status"},
		),
		wsDisconnectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_disconnects_total",
				Help: "Total number of websocket subscription disconnects",
			},
			[]string{"wallet_address"},
		),
		wsReconnectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_reconnects_total",
				Help: "Total number of websocket reconnect attempts scheduled",
			},
			[]string{"wallet_address"},
		),
		wsNotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_notifications_total",
				Help: "Total number of logs notifications received",
			},
			[]string{"wallet_address"},
		),
		connectedWallets: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "connected_wallets",
				Help: "Number of wallets with a live subscription",
			},
		),

		// Transaction Processing Metrics
		transactionsParsedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_parsed_total",
				Help: "Total number of transaction parse attempts by outcome",
			},
			[]string{"wallet_address", "status"},
		),
		transactionsEmittedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_emitted_total",
				Help: "Total number of normalized transactions emitted to consumers",
			},
			[]string{"wallet_address", "type"},
		),

		// Token Metadata Resolver Metrics
		metadataLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_metadata_lookups_total",
				Help: "Total number of token metadata source lookups",
			},
			[]string{"source", "status"},
		),
		metadataCacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "token_metadata_cache_hits_total",
				Help: "Total number of token metadata cache hits",
			},
		),
		metadataCoalescedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "token_metadata_coalesced_total",
				Help: "Total number of metadata lookups coalesced into an in-flight fetch",
			},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		sseActiveConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sse_active_connections",
				Help: "Number of active SSE connections",
			},
			[]string{"wallet_address"},
		),
		sseEventsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sse_events_sent_total",
				Help: "Total number of SSE events sent",
			},
			[]string{"wallet_address", "event_type"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRateLimitHit records a rate limit hit (429 error).
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.solanaRPCRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordRPCRetry records a retry attempt.
func (m *Metrics) RecordRPCRetry(method, reason string) {
	m.solanaRPCRetries.WithLabelValues(method, reason).Inc()
}

// WebSocket subscription metric helpers

// RecordWSConnect records a subscription connect attempt.
func (m *Metrics) RecordWSConnect(walletAddress, status string) {
	m.wsConnectsTotal.WithLabelValues(walletAddress, status).Inc()
}

// RecordWSDisconnect records a subscription disconnect.
func (m *Metrics) RecordWSDisconnect(walletAddress string) {
	m.wsDisconnectsTotal.WithLabelValues(walletAddress).Inc()
}

// RecordWSReconnect records a scheduled reconnect attempt.
func (m *Metrics) RecordWSReconnect(walletAddress string) {
	m.wsReconnectsTotal.WithLabelValues(walletAddress).Inc()
}

// RecordNotification records a received logs notification.
func (m *Metrics) RecordNotification(walletAddress string) {
	m.wsNotificationsTotal.WithLabelValues(walletAddress).Inc()
}

// SetConnectedWallets records the current number of connected wallets.
func (m *Metrics) SetConnectedWallets(count int) {
	m.connectedWallets.Set(float64(count))
}

// Transaction processing metric helpers

// RecordTransactionParsed records a transaction parse attempt.
func (m *Metrics) RecordTransactionParsed(walletAddress, status string) {
	m.transactionsParsedTotal.WithLabelValues(walletAddress, status).Inc()
}

// RecordTransactionEmitted records an emitted normalized transaction.
func (m *Metrics) RecordTransactionEmitted(walletAddress, txnType string) {
	m.transactionsEmittedTotal.WithLabelValues(walletAddress, txnType).Inc()
}

// Token metadata resolver metric helpers

// RecordMetadataLookup records a metadata source lookup.
func (m *Metrics) RecordMetadataLookup(source, status string) {
	m.metadataLookupsTotal.WithLabelValues(source, status).Inc()
}

// RecordMetadataCacheHit records a metadata cache hit.
func (m *Metrics) RecordMetadataCacheHit() {
	m.metadataCacheHitsTotal.Inc()
}

// RecordMetadataCoalesced records a lookup that attached to an in-flight fetch.
func (m *Metrics) RecordMetadataCoalesced() {
	m.metadataCoalescedTotal.Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordSSEConnectionChange records a change in SSE connection count.
func (m *Metrics) RecordSSEConnectionChange(walletAddress string, delta float64) {
	m.sseActiveConnections.WithLabelValues(walletAddress).Add(delta)
}

// RecordSSEEventSent records an SSE event being sent.
func (m *Metrics) RecordSSEEventSent(walletAddress, eventType string) {
	m.sseEventsSent.WithLabelValues(walletAddress, eventType).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
