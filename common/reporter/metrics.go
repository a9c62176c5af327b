// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package reporter

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Counter is a prometheus counter.
type Counter = prometheus.Counter

// CounterVec is a prometheus counter vector.
type CounterVec = prometheus.CounterVec

// Gauge is a prometheus gauge.
type Gauge = prometheus.Gauge

// GaugeVec is a prometheus gauge vector.
type GaugeVec = prometheus.GaugeVec

// SummaryVec is a prometheus summary vector.
type SummaryVec = prometheus.SummaryVec

// HistogramVec is a prometheus histogram vector.
type HistogramVec = prometheus.HistogramVec

// CounterOpts defines options for counters.
type CounterOpts = prometheus.CounterOpts

// GaugeOpts defines options for gauges.
type GaugeOpts = prometheus.GaugeOpts

// SummaryOpts defines options for summaries.
type SummaryOpts = prometheus.SummaryOpts

// HistogramOpts defines options for histograms.
type HistogramOpts = prometheus.HistogramOpts

// MetricDesc is a metric description, to be used with MetricCollector.
type MetricDesc = prometheus.Desc

// Counter registers a new counter prefixed by the calling package.
func (r *Reporter) Counter(opts CounterOpts) prometheus.Counter {
	return r.metrics.Factory(1).NewCounter(opts)
}

// CounterVec registers a new counter vector.
func (r *Reporter) CounterVec(opts CounterOpts, labelNames []string) *prometheus.CounterVec {
	return r.metrics.Factory(1).NewCounterVec(opts, labelNames)
}

// Gauge registers a new gauge.
func (r *Reporter) Gauge(opts GaugeOpts) prometheus.Gauge {
	return r.metrics.Factory(1).NewGauge(opts)
}

// GaugeFunc registers a gauge computed on collection.
func (r *Reporter) GaugeFunc(opts GaugeOpts, function func() float64) prometheus.GaugeFunc {
	return r.metrics.Factory(1).NewGaugeFunc(opts, function)
}

// GaugeVec registers a new gauge vector.
func (r *Reporter) GaugeVec(opts GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	return r.metrics.Factory(1).NewGaugeVec(opts, labelNames)
}

// SummaryVec registers a new summary vector.
func (r *Reporter) SummaryVec(opts SummaryOpts, labelNames []string) *prometheus.SummaryVec {
	return r.metrics.Factory(1).NewSummaryVec(opts, labelNames)
}

// HistogramVec registers a new histogram vector.
func (r *Reporter) HistogramVec(opts HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	return r.metrics.Factory(1).NewHistogramVec(opts, labelNames)
}

// MetricsHTTPHandler returns the HTTP handler exposing metrics.
func (r *Reporter) MetricsHTTPHandler() http.Handler {
	return r.metrics.HTTPHandler()
}

// MetricCollector registers a custom collector.
func (r *Reporter) MetricCollector(c prometheus.Collector) {
	r.metrics.Collector(c)
}

// MetricDesc defines a new metric description prefixed by the calling
// package.
func (r *Reporter) MetricDesc(name, help string, variableLabels []string) *MetricDesc {
	return r.metrics.Desc(1, name, help, variableLabels)
}
