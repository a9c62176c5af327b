// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package flows simulates a NetFlow v5 exporter
package flows

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"time"

	"github.com/benbjohnson/clock"
	"gopkg.in/tomb.v2"

	"nfcollector/common/daemon"
	"nfcollector/common/reporter"
	"nfcollector/common/schema"
	"nfcollector/inlet/flow/decoder/netflowv5"
)

// Component represents the flows component.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	t      tomb.Tomb
	config Configuration

	// sequence is only accessed from the export goroutine
	sequence  uint32
	errLogger reporter.Logger

	metrics struct {
		sent   *reporter.CounterVec
		errors *reporter.CounterVec
	}
}

// Dependencies define the dependencies of the flows component.
type Dependencies struct {
	Daemon daemon.Component
	Clock  clock.Clock
}

// New creates a new flows component.
func New(r *reporter.Reporter, config Configuration, dependencies Dependencies) (*Component, error) {
	for idx, flow := range config.Flows {
		if !flow.SrcNet.Addr().Is4() || !flow.DstNet.Addr().Is4() {
			return nil, fmt.Errorf("flow %d: only IPv4 networks can be exported", idx)
		}
	}
	if dependencies.Clock == nil {
		dependencies.Clock = clock.New()
	}
	c := Component{
		r:         r,
		d:         &dependencies,
		config:    config,
		errLogger: r.Sample(reporter.BurstSampler(time.Minute, 10)),
	}

	c.metrics.sent = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "sent_total",
			Help: "Number of packets sent.",
		},
		[]string{"type"},
	)
	c.metrics.errors = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "Number of transmission errors.",
		},
		[]string{"error"},
	)

	c.d.Daemon.Track(&c.t, "fake-exporter/flows")
	return &c, nil
}

// Start opens the UDP socket to the target and starts exporting
// packets every second.
func (c *Component) Start() error {
	conn, err := net.Dial("udp", c.config.Target)
	if err != nil {
		return fmt.Errorf("cannot create socket to %q: %w", c.config.Target, err)
	}
	c.r.Info().Str("target", c.config.Target).Msg("exporting flows")

	start := c.d.Clock.Now()
	ticker := c.d.Clock.Ticker(time.Second)
	c.t.Go(func() error {
		defer conn.Close()
		defer ticker.Stop()
		for {
			select {
			case <-c.t.Dying():
				return nil
			case now := <-ticker.C:
				uptime := uint32(now.Sub(start).Milliseconds())
				c.export(conn, now, uptime)
			}
		}
	})
	return nil
}

// export sends one second worth of flows, split into packets of at
// most netflowv5.MaxRecords records. The flow sequence is advanced
// even for packets which could not be sent.
func (c *Component) export(conn net.Conn, now time.Time, uptime uint32) {
	flows := generateFlows(c.config.Flows, c.config.Seed, now, uptime)
	for chunk := range slices.Chunk(flows, netflowv5.MaxRecords) {
		header := schema.PacketHeader{
			SysUptime:        uptime,
			UnixSecs:         uint32(now.Unix()),
			UnixNSecs:        uint32(now.Nanosecond()),
			FlowSequence:     c.sequence,
			EngineID:         c.config.EngineID,
			SamplingInterval: 1<<14 | c.config.SamplingRate,
		}
		c.sequence += uint32(len(chunk))
		payload, err := netflowv5.EncodePacket(header, chunk)
		if err != nil {
			c.metrics.errors.WithLabelValues("encode").Inc()
			c.errLogger.Err(err).Msg("unable to encode NetFlow packet")
			continue
		}
		if _, err := conn.Write(payload); err != nil {
			c.metrics.errors.WithLabelValues(errorLabel(err)).Inc()
			c.errLogger.Err(err).Msg("unable to send UDP payload")
			continue
		}
		c.metrics.sent.WithLabelValues("data").Inc()
	}
}

// Stop stops the flows component.
func (c *Component) Stop() error {
	defer c.r.Info().Msg("flows component stopped")
	c.t.Kill(nil)
	return c.t.Wait()
}

func errorLabel(err error) string {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op
	}
	return "unknown"
}
