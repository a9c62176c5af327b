// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package schema defines the flow model shared by decoders and sinks.
// Decoded values never reference the datagram they come from.
package schema

import (
	"net/netip"
	"time"
)

// PacketHeader is the header of a NetFlow v5 export packet.
type PacketHeader struct {
	Version          uint16 `json:"version"`
	Count            uint16 `json:"count"`
	SysUptime        uint32 `json:"sys-uptime"`
	UnixSecs         uint32 `json:"unix-secs"`
	UnixNSecs        uint32 `json:"unix-nsecs"`
	FlowSequence     uint32 `json:"flow-sequence"`
	EngineType       uint8  `json:"engine-type"`
	EngineID         uint8  `json:"engine-id"`
	SamplingInterval uint16 `json:"sampling-interval"`
}

// SamplingMode returns the sampling mode (first two bits of the
// sampling interval field).
func (h PacketHeader) SamplingMode() uint8 {
	return uint8(h.SamplingInterval >> 14)
}

// SamplingRate returns the sampling rate (last 14 bits of the sampling
// interval field). 0 means no sampling.
func (h PacketHeader) SamplingRate() uint16 {
	return h.SamplingInterval & 0x3fff
}

// ExportTime returns the time the exporter sent the packet.
func (h PacketHeader) ExportTime() time.Time {
	return time.Unix(int64(h.UnixSecs), int64(h.UnixNSecs)).UTC()
}

// FlowRecord is a single NetFlow v5 flow record.
type FlowRecord struct {
	SrcAddr  netip.Addr `json:"src-addr"`
	DstAddr  netip.Addr `json:"dst-addr"`
	NextHop  netip.Addr `json:"next-hop"`
	InIf     uint16     `json:"in-if"`
	OutIf    uint16     `json:"out-if"`
	Packets  uint32     `json:"packets"`
	Octets   uint32     `json:"octets"`
	First    uint32     `json:"first"` // sysUptime at first packet (ms)
	Last     uint32     `json:"last"`  // sysUptime at last packet (ms)
	SrcPort  uint16     `json:"src-port"`
	DstPort  uint16     `json:"dst-port"`
	TCPFlags uint8      `json:"tcp-flags"`
	Proto    uint8      `json:"proto"`
	ToS      uint8      `json:"tos"`
	SrcAS    uint32     `json:"src-as"`
	DstAS    uint32     `json:"dst-as"`
	SrcMask  uint8      `json:"src-mask"`
	DstMask  uint8      `json:"dst-mask"`
}

// Duration returns the time elapsed between the first and the last
// packet of the flow. The sysUptime counter may wrap.
func (r FlowRecord) Duration() time.Duration {
	return time.Duration(r.Last-r.First) * time.Millisecond
}

// FlowEnvelope is a decoded flow ready to be sent to a sink. Header is
// shared by all the envelopes of the same packet and should not be
// modified.
type FlowEnvelope struct {
	TimeReceived    time.Time      `json:"time-received"`
	ExporterAddress netip.AddrPort `json:"exporter-address"`
	Header          *PacketHeader  `json:"header"`
	Record          FlowRecord     `json:"record"`
}
