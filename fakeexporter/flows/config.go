// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flows

import (
	"net/netip"
	"time"
)

// Configuration describes the synthetic exporter.
type Configuration struct {
	// SamplingRate is announced in the sampling interval field of
	// each packet header. It is not applied to the generated flows.
	SamplingRate uint16 `validate:"min=1,max=16383"`
	// Flows are the templates of the generated flows.
	Flows []FlowConfiguration `validate:"min=1,dive"`
	// Target is the collector address (host:port).
	Target string `validate:"required,hostname_port"`
	// Seed is mixed with the current time to seed the generator.
	// Exporters sharing templates and seed send identical flows.
	Seed int64
	// EngineID is announced in each packet header.
	EngineID uint8
}

// FlowConfiguration is a template for generated flows. When a list is
// provided, each flow picks one of its values at random.
type FlowConfiguration struct {
	// PerSecond is the average number of flows per second off-peak
	PerSecond  float64  `validate:"required,gt=0"`
	InIfIndex  []uint16 `validate:"min=1,dive,min=1"`
	OutIfIndex []uint16 `validate:"min=1,dive,min=1"`
	// PeakHour is the time of day (UTC) with the highest rate
	PeakHour time.Duration `validate:"min=0,max=24h"`
	// Multiplier is applied to PerSecond at the peak hour and fades
	// out twelve hours away. 0 disables the variation.
	Multiplier float64 `validate:"isdefault|gt=0"`
	// SrcNet and DstNet are IPv4 prefixes addresses are drawn from
	SrcNet netip.Prefix `validate:"required"`
	DstNet netip.Prefix `validate:"required"`
	SrcAS  []uint32     `validate:"min=1"`
	DstAS  []uint32     `validate:"min=1"`
	// SrcPort and DstPort default to a random ephemeral port for TCP
	// and UDP
	SrcPort  []uint16
	DstPort  []uint16
	Protocol []string `validate:"min=1,dive,oneof=tcp udp icmp"`
	// Size is the average flow size in bytes. 0 means uniform
	// between 300 and 1499 bytes.
	Size uint `validate:"isdefault|min=64,max=9000"`
}

// DefaultConfiguration returns the default configuration of the
// synthetic exporter.
func DefaultConfiguration() Configuration {
	return Configuration{
		SamplingRate: 1000,
	}
}
