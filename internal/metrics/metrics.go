/*
Copyright © 2024 the homog authors.
This file is part of homog.

homog is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

homog is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with homog.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package metrics counts homogenisation outcomes with Prometheus
// collectors and writes them in the text exposition format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spatialmodel/homog"
)

// Collector holds the metrics of one run.
type Collector struct {
	reg *prometheus.Registry

	Iterations *prometheus.CounterVec
	Detected   *prometheus.CounterVec
	Filled     *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		reg: reg,
		Iterations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "iterations_total",
				Help:      "Number of stations processed by batch and outcome",
			},
			[]string{"batch", "outcome"},
		),
		Detected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detected_total",
				Help:      "Number of inhomogeneous observations detected by batch",
			},
			[]string{"batch"},
		),
		Filled: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "filled_total",
				Help:      "Number of missing values completed by batch",
			},
			[]string{"batch"},
		),
		Duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "iteration_duration_seconds",
				Help:      "Time taken to homogenise one station",
				Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
			},
			[]string{"batch"},
		),
	}
}

// Recorder records iterations under a batch label.
type Recorder struct {
	c     *Collector
	batch string
}

// For returns a recorder for the named batch, such as a decade or a
// network.
func (c *Collector) For(batch string) *Recorder {
	return &Recorder{c: c, batch: batch}
}

// RecordIteration implements homog.Recorder.
func (r *Recorder) RecordIteration(it homog.Iteration) {
	outcome := "homogenised"
	switch {
	case it.Err != nil:
		outcome = "failed"
	case it.Skipped:
		outcome = "skipped"
	}
	r.c.Iterations.WithLabelValues(r.batch, outcome).Inc()
	r.c.Detected.WithLabelValues(r.batch).Add(float64(it.Detected))
	r.c.Filled.WithLabelValues(r.batch).Add(float64(it.Filled))
	r.c.Duration.WithLabelValues(r.batch).Observe(it.Duration.Seconds())
}

// WriteTextfile writes the current values of the metrics to path.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.reg); err != nil {
		return fmt.Errorf("metrics: %v", err)
	}
	return nil
}
