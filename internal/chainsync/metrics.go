// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainsync

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "commitsync"

// Metrics houses the prometheus collectors describing sync progress.
type Metrics struct {
	SyncedSlot prometheus.Gauge
	HeadSlot   prometheus.Gauge
	Epoch      prometheus.Gauge
	Blobs      *prometheus.CounterVec
	SlotErrors prometheus.Counter
}

// NewMetrics creates the sync collectors and registers them with reg when
// it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncedSlot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "synced_slot",
			Help:      "Last slot fully processed.",
		}),
		HeadSlot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "head_slot",
			Help:      "Latest head slot reported by the consensus node.",
		}),
		Epoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_epoch",
			Help:      "Number of accepted commits.",
		}),
		Blobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blobs_total",
			Help:      "Commit blobs processed by outcome.",
		}, []string{"result"}),
		SlotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "slot_errors_total",
			Help:      "Slot processing attempts that failed and were retried.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.SyncedSlot, m.HeadSlot, m.Epoch, m.Blobs,
			m.SlotErrors)
	}
	return m
}
