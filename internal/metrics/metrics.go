// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the relay:
// - WebSocket connection lifecycle and registry population
// - Inbound frame classification
// - Notification delivery outcomes
// - HTTP endpoint latency and throughput

var (
	// Connection Metrics

	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Current number of open WebSocket connections",
		},
	)

	WSConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_connections_total",
			Help: "Total number of WebSocket connections accepted",
		},
	)

	RegistrySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_identified_users",
			Help: "Current number of identified users in the connection registry",
		},
	)

	RegistryEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_evictions_total",
			Help: "Total number of registry entries removed",
		},
		[]string{"reason"}, // "replaced", "closed", "write_failed"
	)

	// Frame Metrics

	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frames_received_total",
			Help: "Total number of inbound frames by event type",
		},
		[]string{"type"}, // event type, or "unknown"
	)

	FramesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frames_rejected_total",
			Help: "Total number of inbound frames dropped before dispatch",
		},
		[]string{"reason"}, // "malformed", "invalid", "rate_limited", "identity_mismatch"
	)

	// Delivery Metrics

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of outbound notification attempts by type and result",
		},
		[]string{"type", "result"}, // result: "delivered", "not_connected", "write_failed"
	)

	EventsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_suppressed_total",
			Help: "Total number of user/updated events suppressed by the server identity check",
		},
	)

	// Bridge Metrics

	BridgeEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_events_received_total",
			Help: "Total number of upstream events received over the NATS bridge",
		},
		[]string{"subject"},
	)

	// API Endpoint Metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// TrackConnection adjusts the active connection gauge; call with true on
// accept and false on close.
func TrackConnection(open bool) {
	if open {
		WSConnectionsActive.Inc()
		WSConnectionsTotal.Inc()
	} else {
		WSConnectionsActive.Dec()
	}
}

// SetRegistrySize updates the identified-user gauge.
func SetRegistrySize(n int) {
	RegistrySize.Set(float64(n))
}

// RecordEviction records removal of a registry entry.
func RecordEviction(reason string) {
	RegistryEvictions.WithLabelValues(reason).Inc()
}

// RecordFrame records an inbound frame of the given event type.
func RecordFrame(eventType string) {
	FramesReceived.WithLabelValues(eventType).Inc()
}

// RecordRejectedFrame records a frame dropped before dispatch.
func RecordRejectedFrame(reason string) {
	FramesRejected.WithLabelValues(reason).Inc()
}

// RecordNotification records an outbound delivery attempt.
func RecordNotification(eventType, result string) {
	NotificationsSent.WithLabelValues(eventType, result).Inc()
}

// RecordBridgeEvent records an upstream event received over the bridge.
func RecordBridgeEvent(subject string) {
	BridgeEventsReceived.WithLabelValues(subject).Inc()
}

// TrackActiveRequest adjusts the active HTTP request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
