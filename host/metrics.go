// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the host. One instance per Server, registered on
// its own registry so tests never collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	ActiveConnections prometheus.Gauge
	FramesTotal       *prometheus.CounterVec
	AuthFailures      prometheus.Counter
	Heartbeats        prometheus.Counter
	PushesTotal       *prometheus.CounterVec
	ActiveTerminals   prometheus.Gauge
}

// NewMetrics creates and registers the host collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	metrics := &Metrics{
		Registry: registry,
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tether_active_connections",
			Help: "Authenticated control connections currently open.",
		}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tether_frames_total",
			Help: "Inbound control frames dispatched, by message type.",
		}, []string{"type"}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tether_auth_failures_total",
			Help: "Connections rejected during the auth handshake.",
		}),
		Heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tether_heartbeats_total",
			Help: "Ping frames answered with a pong.",
		}),
		PushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tether_pushes_total",
			Help: "Unsolicited frames pushed to clients, by message type.",
		}, []string{"type"}),
		ActiveTerminals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tether_active_terminals",
			Help: "Terminal relays currently attached.",
		}),
	}
	registry.MustRegister(
		metrics.ActiveConnections,
		metrics.FramesTotal,
		metrics.AuthFailures,
		metrics.Heartbeats,
		metrics.PushesTotal,
		metrics.ActiveTerminals,
	)
	return metrics
}
