// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package pcap replays UDP datagrams from pcap captures as if they
// were received from the network.
package pcap

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"gopkg.in/tomb.v2"

	"nfcollector/common/reporter"
	"nfcollector/inlet/flow/decoder"
	"nfcollector/inlet/flow/input"
)

// Input represents the state of a pcap input.
type Input struct {
	r      *reporter.Reporter
	t      tomb.Tomb
	config *Configuration
	send   input.SendFunc

	metrics struct {
		packets *reporter.CounterVec
		skipped *reporter.CounterVec
	}
}

// New instantiate a new pcap input from the provided configuration.
func (configuration *Configuration) New(r *reporter.Reporter, dependencies input.Dependencies, send input.SendFunc) (input.Input, error) {
	if len(configuration.Paths) == 0 {
		return nil, errors.New("no paths provided for pcap input")
	}
	input := &Input{
		r:      r,
		config: configuration,
		send:   send,
	}
	input.metrics.packets = r.CounterVec(
		reporter.CounterOpts{
			Name: "packets_total",
			Help: "UDP datagrams replayed from captures.",
		},
		[]string{"path"},
	)
	input.metrics.skipped = r.CounterVec(
		reporter.CounterOpts{
			Name: "skipped_packets_total",
			Help: "Captured packets not replayed.",
		},
		[]string{"path", "reason"},
	)
	dependencies.Daemon.Track(&input.t, "inlet/flow/input/pcap")
	return input, nil
}

// Start replays the captures once, then waits to be stopped.
func (in *Input) Start() error {
	in.r.Info().Strs("paths", in.config.Paths).Msg("pcap input starting")
	in.t.Go(func() error {
		for _, path := range in.config.Paths {
			if err := in.replay(path); err != nil {
				if errors.Is(err, tomb.ErrDying) {
					return nil
				}
				in.r.Err(err).Str("path", path).Msg("unable to replay capture")
				return err
			}
		}
		in.r.Info().Msg("pcap input done")
		<-in.t.Dying()
		return nil
	})
	return nil
}

func (in *Input) replay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open %q: %w", path, err)
	}
	defer f.Close()
	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("unable to read %q: %w", path, err)
	}

	dying := in.t.Dying()
	for {
		data, ci, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("unable to read packet from %q: %w", path, err)
		}
		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.DecodeOptions{
			Lazy:   true,
			NoCopy: true,
		})
		source, destination, ok := addresses(packet)
		if !ok {
			in.metrics.skipped.WithLabelValues(path, "not udp").Inc()
			continue
		}
		if in.config.Port != 0 && destination.Port() != in.config.Port {
			in.metrics.skipped.WithLabelValues(path, "port").Inc()
			continue
		}
		udp := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		in.metrics.packets.WithLabelValues(path).Inc()
		in.send(decoder.RawFlow{
			TimeReceived: ci.Timestamp,
			Payload:      append([]byte{}, udp.Payload...),
			Source:       source,
		})

		select {
		case <-dying:
			return tomb.ErrDying
		default:
		}
	}
}

// addresses extracts the UDP source and destination of a packet.
func addresses(packet gopacket.Packet) (netip.AddrPort, netip.AddrPort, bool) {
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return netip.AddrPort{}, netip.AddrPort{}, false
	}
	udp := udpLayer.(*layers.UDP)
	var srcIP, dstIP net.IP
	switch network := packet.NetworkLayer().(type) {
	case *layers.IPv4:
		srcIP, dstIP = network.SrcIP, network.DstIP
	case *layers.IPv6:
		srcIP, dstIP = network.SrcIP, network.DstIP
	default:
		return netip.AddrPort{}, netip.AddrPort{}, false
	}
	src, ok1 := netip.AddrFromSlice(srcIP)
	dst, ok2 := netip.AddrFromSlice(dstIP)
	if !ok1 || !ok2 {
		return netip.AddrPort{}, netip.AddrPort{}, false
	}
	return netip.AddrPortFrom(src.Unmap(), uint16(udp.SrcPort)),
		netip.AddrPortFrom(dst.Unmap(), uint16(udp.DstPort)),
		true
}

// Stop stops the pcap input.
func (in *Input) Stop() error {
	defer in.r.Info().Msg("pcap input stopped")
	in.t.Kill(nil)
	return in.t.Wait()
}
