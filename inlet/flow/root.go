// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package flow handles incoming flows: it receives datagrams from the
// inputs, dispatches them to a pool of workers running the decoders
// and hands the decoded flows to the sink.
package flow

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
	"gopkg.in/tomb.v2"

	"nfcollector/common/daemon"
	"nfcollector/common/reporter"
	"nfcollector/inlet/flow/decoder"
	"nfcollector/inlet/flow/input"
	"nfcollector/inlet/flow/input/pcap"
	"nfcollector/inlet/sink"
)

// Component represents the flow component.
type Component struct {
	r         *reporter.Reporter
	d         *Dependencies
	t         tomb.Tomb
	config    Configuration
	errLogger reporter.Logger

	inputs   []input.Input
	decoders []decoder.Decoder
	queue    chan decoder.RawFlow

	limiters     map[netip.Addr]*rate.Limiter
	limitersLock sync.Mutex

	metrics struct {
		dispatchDropped reporter.Counter
		unknownVersion  reporter.Counter
		decoderErrors   *reporter.CounterVec
		decoderFlows    *reporter.CounterVec
		decoderTime     *reporter.SummaryVec
		rateLimited     *reporter.CounterVec
	}
}

// Dependencies are the dependencies of the flow component.
type Dependencies struct {
	Daemon daemon.Component
	Sink   sink.Sink
	Clock  clock.Clock
}

// New creates a new flow component.
func New(r *reporter.Reporter, configuration Configuration, dependencies Dependencies) (*Component, error) {
	if len(configuration.Inputs) == 0 {
		return nil, fmt.Errorf("no input configured")
	}
	if dependencies.Clock == nil {
		dependencies.Clock = clock.New()
	}

	c := Component{
		r:         r,
		d:         &dependencies,
		config:    configuration,
		errLogger: r.Sample(reporter.BurstSampler(time.Minute, 10)),
		inputs:    make([]input.Input, len(configuration.Inputs)),
		queue:     make(chan decoder.RawFlow, configuration.QueueSize),
		limiters:  make(map[netip.Addr]*rate.Limiter),
	}
	c.initMetrics()

	// Initialize decoders, in registration order
	for _, name := range c.config.Decoders {
		newDecoder, ok := decoders[name]
		if !ok {
			return nil, fmt.Errorf("unknown decoder %q", name)
		}
		c.decoders = append(c.decoders, c.wrapDecoder(newDecoder(r)))
	}

	// Initialize inputs. Capture replays always wait for the queue.
	for idx, in := range c.config.Inputs {
		send := input.SendFunc(c.Send)
		if _, ok := in.Config.(*pcap.Configuration); ok {
			send = c.sendWait
		}
		var err error
		c.inputs[idx], err = in.Config.New(r, inputDependencies(&c), send)
		if err != nil {
			return nil, err
		}
	}

	c.r.RegisterHealthcheck("flow", c.healthcheck)
	c.d.Daemon.Track(&c.t, "inlet/flow")

	return &c, nil
}

func inputDependencies(c *Component) input.Dependencies {
	return input.Dependencies{
		Daemon: c.d.Daemon,
		Clock:  c.d.Clock,
	}
}

func (c *Component) initMetrics() {
	c.metrics.dispatchDropped = c.r.Counter(
		reporter.CounterOpts{
			Name: "dispatch_dropped_total",
			Help: "Datagrams dropped because the dispatch queue was full.",
		},
	)
	c.metrics.unknownVersion = c.r.Counter(
		reporter.CounterOpts{
			Name: "dispatch_unknown_version_total",
			Help: "Datagrams without a decoder for their version.",
		},
	)
	c.metrics.decoderErrors = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "decoder_errors_total",
			Help: "Decoder errors per decoder type.",
		},
		[]string{"decoder"},
	)
	c.metrics.decoderFlows = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "decoder_flows_total",
			Help: "Flows decoded per decoder type.",
		},
		[]string{"decoder"},
	)
	c.metrics.decoderTime = c.r.SummaryVec(
		reporter.SummaryOpts{
			Name:       "decoder_time_seconds",
			Help:       "Time to decode a datagram.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"decoder"},
	)
	c.metrics.rateLimited = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "flow_rate_limited_total",
			Help: "Flows discarded by the per-exporter rate limit.",
		},
		[]string{"exporter"},
	)
	c.r.GaugeFunc(
		reporter.GaugeOpts{
			Name: "dispatch_queue_length",
			Help: "Datagrams waiting to be decoded.",
		},
		func() float64 {
			return float64(len(c.queue))
		},
	)
}

// Send queues a datagram for decoding. It is the function used by the
// inputs. Depending on the queue policy, it either drops the datagram
// or waits when the queue is full.
func (c *Component) Send(flow decoder.RawFlow) {
	if c.config.QueuePolicy == QueueBlock {
		c.sendWait(flow)
		return
	}
	select {
	case c.queue <- flow:
	default:
		c.metrics.dispatchDropped.Inc()
		c.errLogger.Warn().
			Str("exporter", flow.Source.String()).
			Msg("dispatch queue full, dropping datagram")
	}
}

// sendWait queues a datagram, waiting for room in the queue.
func (c *Component) sendWait(flow decoder.RawFlow) {
	select {
	case c.queue <- flow:
	case <-c.t.Dying():
	}
}

// worker decodes datagrams from the queue until the component dies.
func (c *Component) worker() error {
	dying := c.t.Dying()
	for {
		select {
		case <-dying:
			return nil
		case flow := <-c.queue:
			c.dispatch(flow)
		}
	}
}

// dispatch runs the selected decoders on a datagram and sends the
// decoded flows to the sink.
func (c *Component) dispatch(flow decoder.RawFlow) {
	version, peekErr := decoder.PeekVersion(flow.Payload)
	matched := false
	exporter := flow.Source.Addr().Unmap()
	for _, d := range c.decoders {
		if c.config.Dispatch == DispatchVersion && (peekErr != nil || d.Version() != version) {
			continue
		}
		matched = true
		decoded, err := d.Decode(flow)
		if err != nil {
			continue
		}
		decoded = c.allowFlows(exporter, decoded)
		if len(decoded) > 0 {
			c.d.Sink.Send(decoded)
		}
	}
	if !matched {
		c.metrics.unknownVersion.Inc()
		c.errLogger.Warn().
			Str("exporter", flow.Source.String()).
			Uint16("version", version).
			Msg("no decoder for datagram")
	}
}

func (c *Component) healthcheck(_ context.Context) reporter.HealthcheckResult {
	length, capacity := len(c.queue), cap(c.queue)
	if length >= capacity {
		return reporter.HealthcheckResult{
			Status: reporter.HealthcheckWarning,
			Reason: "dispatch queue full",
		}
	}
	return reporter.HealthcheckResult{
		Status: reporter.HealthcheckOK,
		Reason: fmt.Sprintf("dispatch queue at %d/%d", length, capacity),
	}
}

// Start starts the flow component.
func (c *Component) Start() error {
	c.r.Info().Int("workers", c.config.Workers).Msg("starting flow component")
	for range c.config.Workers {
		c.t.Go(c.worker)
	}
	for _, input := range c.inputs {
		if err := input.Start(); err != nil {
			c.t.Kill(err)
			return err
		}
		stopper := input.Stop
		c.t.Go(func() error {
			<-c.t.Dying()
			return stopper()
		})
	}
	return nil
}

// Stop stops the flow component
func (c *Component) Stop() error {
	defer c.r.Info().Msg("flow component stopped")
	c.r.Info().Msg("stopping flow component")
	c.t.Kill(nil)
	return c.t.Wait()
}
