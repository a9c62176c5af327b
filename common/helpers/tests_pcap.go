// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package helpers

import (
	"net"
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// PcapUDPPacket is an UDP datagram to be written in a pcap file.
type PcapUDPPacket struct {
	Timestamp   time.Time
	Source      netip.AddrPort
	Destination netip.AddrPort
	Payload     []byte
}

// WritePcapUDP writes the provided IPv4 UDP datagrams as an Ethernet
// pcap file.
func WritePcapUDP(t testing.TB, pcapfile string, packets []PcapUDPPacket) {
	t.Helper()
	f, err := os.Create(pcapfile)
	if err != nil {
		t.Fatalf("Create(%q) error:\n%+v", pcapfile, err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("WriteFileHeader() error:\n%+v", err)
	}
	for _, packet := range packets {
		eth := layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    packet.Source.Addr().AsSlice(),
			DstIP:    packet.Destination.Addr().AsSlice(),
		}
		udp := layers.UDP{
			SrcPort: layers.UDPPort(packet.Source.Port()),
			DstPort: layers.UDPPort(packet.Destination.Port()),
		}
		udp.SetNetworkLayerForChecksum(&ip)
		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		if err := gopacket.SerializeLayers(buf, opts,
			&eth, &ip, &udp, gopacket.Payload(packet.Payload)); err != nil {
			t.Fatalf("SerializeLayers() error:\n%+v", err)
		}
		data := buf.Bytes()
		if err := w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     packet.Timestamp,
			CaptureLength: len(data),
			Length:        len(data),
		}, data); err != nil {
			t.Fatalf("WritePacket() error:\n%+v", err)
		}
	}
}
