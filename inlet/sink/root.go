// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package sink receives decoded flows and hands them to the configured
// provider (log or Kafka).
package sink

import (
	"nfcollector/common/daemon"
	"nfcollector/common/reporter"
	"nfcollector/common/schema"
	"nfcollector/inlet/sink/provider"
)

// Sink is the interface used by the flow component to hand over
// decoded flows. It is called concurrently by all the workers.
type Sink interface {
	Send(flows []*schema.FlowEnvelope)
}

// Component represents the sink component.
type Component struct {
	r        *reporter.Reporter
	d        *Dependencies
	config   Configuration
	provider provider.Provider

	metrics struct {
		flows reporter.Counter
	}
}

// Dependencies define the dependencies of the sink component.
type Dependencies struct {
	Daemon daemon.Component
}

var _ Sink = &Component{}

// New creates a new sink component.
func New(r *reporter.Reporter, configuration Configuration, dependencies Dependencies) (*Component, error) {
	p, err := configuration.Config.New(r, provider.Dependencies{Daemon: dependencies.Daemon})
	if err != nil {
		return nil, err
	}
	c := Component{
		r:        r,
		d:        &dependencies,
		config:   configuration,
		provider: p,
	}
	c.metrics.flows = r.Counter(
		reporter.CounterOpts{
			Name: "flows_total",
			Help: "Flows handed over to the sink provider.",
		},
	)
	return &c, nil
}

// Start starts the sink component.
func (c *Component) Start() error {
	c.r.Info().Msg("starting sink component")
	return c.provider.Start()
}

// Stop stops the sink component.
func (c *Component) Stop() error {
	defer c.r.Info().Msg("sink component stopped")
	return c.provider.Stop()
}

// Send hands flows to the provider.
func (c *Component) Send(flows []*schema.FlowEnvelope) {
	c.metrics.flows.Add(float64(len(flows)))
	c.provider.Send(flows)
}
