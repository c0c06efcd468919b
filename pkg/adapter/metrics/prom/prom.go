// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package prom provides a transferuc.Observer which exports the stage
// metrics of transfers as Prometheus collectors.
package prom

import (
	"errors"
	"time"

	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "dtransfer"
	subsystem = "transfer"
)

// Label values of the status label.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Metrics implements the transferuc.Observer interface, recording the
// duration of stages, the number of relayed items, and the failures.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageItems    *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	stagesActive  prometheus.Gauge
}

// MustNewMetrics creates the collectors and registers them using reg.
// It panics if the registration fails, similar to the promauto package.
// Collectors which were registered before (e.g., by another Metrics
// instance) are reused.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each transfer stage.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"stage", "status"},
		),
		stageItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_items_total",
				Help:      "Number of items accepted by the destination streams.",
			},
			[]string{"stage"},
		),
		stageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_failures_total",
				Help:      "Number of failed transfer stages.",
			},
			[]string{"stage"},
		),
		stagesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stages_active",
				Help:      "Number of transfer stages which are running.",
			},
		),
	}
	m.stageDuration = register(reg, m.stageDuration)
	m.stageItems = register(reg, m.stageItems)
	m.stageFailures = register(reg, m.stageFailures)
	m.stagesActive = register(reg, m.stagesActive)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

// StageStarted increments the active stages gauge.
func (m *Metrics) StageStarted(model.Stage) {
	m.stagesActive.Inc()
}

// StageFinished records the stage duration, items, and failure.
func (m *Metrics) StageFinished(
	stage model.Stage, items int, elapsed time.Duration, err error,
) {
	m.stagesActive.Dec()
	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
		m.stageFailures.WithLabelValues(string(stage)).Inc()
	}
	m.stageDuration.WithLabelValues(string(stage), status).Observe(
		elapsed.Seconds(),
	)
	m.stageItems.WithLabelValues(string(stage)).Add(float64(items))
}
