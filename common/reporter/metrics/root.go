// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package metrics handles metrics for nfcollector
//
// This is a wrapper around Prometheus Go client. Metric names are
// prefixed with the package registering them, for example
// nfcollector_inlet_flow_input_udp_packets_total.
package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nfcollector/common/reporter/logger"
	"nfcollector/common/reporter/stack"
)

// Metrics represents the internal state of the metric subsystem.
type Metrics struct {
	logger    logger.Logger
	config    Configuration
	registry  *prometheus.Registry
	factories sync.Map // function name -> *Factory
}

// New creates a new metric registry with the Go and process collectors.
func New(logger logger.Logger, configuration Configuration) (*Metrics, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())
	return &Metrics{
		logger:   logger,
		config:   configuration,
		registry: reg,
	}, nil
}

// HTTPHandler returns an handler to serve Prometheus metrics.
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: promHTTPLogger{m.logger},
	})
}

// prefixFor turns nfcollector/inlet/flow.(*Component).New into
// nfcollector_inlet_flow_.
func prefixFor(function string) string {
	module := stack.ModuleName
	if strings.HasPrefix(function, stack.ModuleName+"/") {
		module = strings.SplitN(function, ".", 2)[0]
	}
	module = strings.NewReplacer("/", "_", ".", "_", "-", "_").Replace(module)
	return module + "_"
}

// Factory returns a factory registering metrics prefixed with the
// package of the caller, skipping skipCallstack frames.
func (m *Metrics) Factory(skipCallstack int) *Factory {
	function := stack.Callers()[1+skipCallstack].FunctionName()
	if f, ok := m.factories.Load(function); ok {
		return f.(*Factory)
	}
	f, _ := m.factories.LoadOrStore(function, &Factory{
		prefix:   prefixFor(function),
		registry: m.registry,
	})
	return f.(*Factory)
}

// Desc returns a new metric description prefixed like Factory does.
func (m *Metrics) Desc(skipCallstack int, name, help string, variableLabels []string) *prometheus.Desc {
	function := stack.Callers()[1+skipCallstack].FunctionName()
	return prometheus.NewDesc(prefixFor(function)+name, help, variableLabels, nil)
}

// Collector registers a custom collector.
func (m *Metrics) Collector(c prometheus.Collector) {
	m.registry.MustRegister(c)
}
