// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package udp handles the UDP listener.
package udp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/benbjohnson/clock"
	"gopkg.in/tomb.v2"

	"nfcollector/common/reporter"
	"nfcollector/inlet/flow/decoder"
	"nfcollector/inlet/flow/input"
)

// maxDatagramSize is the size of the receive buffer. Larger datagrams
// are truncated by the kernel.
const maxDatagramSize = 9000

// Input represents the state of an UDP listener.
type Input struct {
	r      *reporter.Reporter
	t      tomb.Tomb
	config *Configuration
	clock  clock.Clock

	metrics struct {
		bytes         *reporter.CounterVec
		packets       *reporter.CounterVec
		packetSizeSum *reporter.SummaryVec
		errors        *reporter.CounterVec
		inDrops       *reporter.CounterVec
	}

	conn    *net.UDPConn
	address net.Addr       // listening address
	send    input.SendFunc // function to send to the dispatcher
}

// New instantiate a new UDP listener from the provided configuration.
func (configuration *Configuration) New(r *reporter.Reporter, dependencies input.Dependencies, send input.SendFunc) (input.Input, error) {
	if dependencies.Clock == nil {
		dependencies.Clock = clock.New()
	}
	input := &Input{
		r:      r,
		config: configuration,
		clock:  dependencies.Clock,
		send:   send,
	}

	input.metrics.bytes = r.CounterVec(
		reporter.CounterOpts{
			Name: "bytes_total",
			Help: "Bytes received by the application.",
		},
		[]string{"listener", "exporter"},
	)
	input.metrics.packets = r.CounterVec(
		reporter.CounterOpts{
			Name: "packets_total",
			Help: "Packets received by the application.",
		},
		[]string{"listener", "exporter"},
	)
	input.metrics.packetSizeSum = r.SummaryVec(
		reporter.SummaryOpts{
			Name:       "size_bytes",
			Help:       "Summary of packet size.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"listener", "exporter"},
	)
	input.metrics.errors = r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "Errors while receiving packets by the application.",
		},
		[]string{"listener"},
	)
	input.metrics.inDrops = r.CounterVec(
		reporter.CounterOpts{
			Name: "in_dropped_packets_total",
			Help: "Dropped packets due to listen queue full.",
		},
		[]string{"listener"},
	)

	dependencies.Daemon.Track(&input.t, "inlet/flow/input/udp")
	return input, nil
}

// Start starts listening to the provided UDP socket and producing raw flows.
func (in *Input) Start() error {
	in.r.Info().Str("listen", in.config.Listen).Msg("starting UDP input")

	pconn, err := listenConfig(in.r, udpSocketOptions).
		ListenPacket(in.t.Context(context.Background()), "udp", in.config.Listen)
	if err != nil {
		return fmt.Errorf("unable to listen to %v: %w", in.config.Listen, err)
	}
	in.conn = pconn.(*net.UDPConn)
	in.address = in.conn.LocalAddr()
	in.r.Info().Str("listen", in.address.String()).Msg("UDP input listening")
	if in.config.ReceiveBuffer > 0 {
		if err := in.conn.SetReadBuffer(int(in.config.ReceiveBuffer)); err != nil {
			// On Linux, this does not trigger an error when we are above net.core.rmem_max.
			in.r.Warn().
				Str("error", err.Error()).
				Str("listen", in.config.Listen).
				Msgf("unable to set requested buffer size (%d bytes)", in.config.ReceiveBuffer)
		}
	}

	in.t.Go(in.receive)

	// Watch for termination and close on dying
	in.t.Go(func() error {
		<-in.t.Dying()
		in.conn.Close()
		return nil
	})

	return nil
}

// receive is the receive loop. It owns the reusable buffer: each
// datagram is copied before being handed over.
func (in *Input) receive() error {
	payload := make([]byte, maxDatagramSize)
	oob := make([]byte, oobLength)
	listen := in.config.Listen
	l := in.r.With().Str("listen", listen).Logger()
	errLogger := l.Sample(reporter.BurstSampler(time.Minute, 1))
	dying := in.t.Dying()
	lastDrops := uint32(0)
	for {
		n, oobn, _, source, err := in.conn.ReadMsgUDPAddrPort(payload, oob)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				select {
				case <-dying:
					return nil
				default:
				}
				l.Error().Err(err).Msg("UDP socket closed unexpectedly")
				return fmt.Errorf("UDP socket on %s closed: %w", listen, err)
			}
			errLogger.Err(err).Msg("unable to receive UDP packet")
			in.metrics.errors.WithLabelValues(listen).Inc()
			continue
		}
		received := in.clock.Now()

		oobMsg, err := parseSocketControlMessage(oob[:oobn])
		if err != nil {
			errLogger.Err(err).Msg("unable to decode UDP control message")
		} else if oobMsg.Drops > lastDrops {
			in.metrics.inDrops.WithLabelValues(listen).Add(
				float64(oobMsg.Drops - lastDrops))
			lastDrops = oobMsg.Drops
		}

		source = netip.AddrPortFrom(source.Addr().Unmap(), source.Port())
		srcIP := source.Addr().String()
		in.metrics.bytes.WithLabelValues(listen, srcIP).
			Add(float64(n))
		in.metrics.packets.WithLabelValues(listen, srcIP).
			Inc()
		in.metrics.packetSizeSum.WithLabelValues(listen, srcIP).
			Observe(float64(n))

		in.send(decoder.RawFlow{
			TimeReceived: received,
			Payload:      bytes.Clone(payload[:n]),
			Source:       source,
		})

		select {
		case <-dying:
			return nil
		default:
		}
	}
}

// LocalAddr returns the address the input is listening to, or nil
// when it is not started.
func (in *Input) LocalAddr() net.Addr {
	return in.address
}

// Stop stops the UDP listener
func (in *Input) Stop() error {
	l := in.r.With().Str("listen", in.config.Listen).Logger()
	defer l.Info().Msg("UDP listener stopped")
	in.t.Kill(nil)
	return in.t.Wait()
}
