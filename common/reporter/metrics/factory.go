// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Factory registers new metrics with a common prefix. Registering the
// same metric twice returns the existing one instead of failing.
type Factory struct {
	prefix   string
	registry *prometheus.Registry
}

func register[C prometheus.Collector](f *Factory, c C) C {
	if err := f.registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(C)
		}
		panic(err)
	}
	return c
}

// NewCounter registers a new counter.
func (f *Factory) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewCounter(opts))
}

// NewCounterVec registers a new counter vector.
func (f *Factory) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewCounterVec(opts, labelNames))
}

// NewGauge registers a new gauge.
func (f *Factory) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewGauge(opts))
}

// NewGaugeFunc registers a new gauge whose value is computed on collection.
func (f *Factory) NewGaugeFunc(opts prometheus.GaugeOpts, function func() float64) prometheus.GaugeFunc {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewGaugeFunc(opts, function))
}

// NewGaugeVec registers a new gauge vector.
func (f *Factory) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewGaugeVec(opts, labelNames))
}

// NewSummaryVec registers a new summary vector.
func (f *Factory) NewSummaryVec(opts prometheus.SummaryOpts, labelNames []string) *prometheus.SummaryVec {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewSummaryVec(opts, labelNames))
}

// NewHistogramVec registers a new histogram vector.
func (f *Factory) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	opts.Name = f.prefix + opts.Name
	return register(f, prometheus.NewHistogramVec(opts, labelNames))
}
