// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package log is a sink provider logging each flow.
package log

import (
	"nfcollector/common/constants"
	"nfcollector/common/reporter"
	"nfcollector/common/schema"
	"nfcollector/inlet/sink/provider"
)

// Provider logs flows at info level.
type Provider struct {
	r      *reporter.Reporter
	config *Configuration
	logger reporter.Logger
}

// New creates a new log provider.
func (configuration *Configuration) New(r *reporter.Reporter, _ provider.Dependencies) (provider.Provider, error) {
	return &Provider{
		r:      r,
		config: configuration,
		logger: r.With().Str("sink", "log").Logger(),
	}, nil
}

// Start does nothing.
func (p *Provider) Start() error {
	return nil
}

// Stop does nothing.
func (p *Provider) Stop() error {
	return nil
}

// Send logs each flow with structured fields.
func (p *Provider) Send(flows []*schema.FlowEnvelope) {
	for _, flow := range flows {
		record := flow.Record
		e := p.logger.Info().
			Time("received", flow.TimeReceived).
			Stringer("exporter", flow.ExporterAddress)
		if flow.Header != nil {
			e = e.Uint16("version", flow.Header.Version).
				Uint32("sequence", flow.Header.FlowSequence).
				Uint16("sampling-rate", flow.Header.SamplingRate()).
				Uint8("engine-type", flow.Header.EngineType).
				Uint8("engine-id", flow.Header.EngineID).
				Uint32("sys-uptime", flow.Header.SysUptime).
				Time("exported", flow.Header.ExportTime())
		}
		e.Stringer("src-addr", record.SrcAddr).
			Stringer("dst-addr", record.DstAddr).
			Stringer("next-hop", record.NextHop).
			Uint16("src-port", record.SrcPort).
			Uint16("dst-port", record.DstPort).
			Uint8("proto", record.Proto).
			Str("proto-name", constants.ProtocolName(record.Proto)).
			Uint8("tcp-flags", record.TCPFlags).
			Uint8("tos", record.ToS).
			Uint16("in-if", record.InIf).
			Uint16("out-if", record.OutIf).
			Uint8("src-mask", record.SrcMask).
			Uint8("dst-mask", record.DstMask).
			Uint32("src-as", record.SrcAS).
			Uint32("dst-as", record.DstAS).
			Uint32("packets", record.Packets).
			Uint32("octets", record.Octets).
			Uint32("first", record.First).
			Uint32("last", record.Last).
			Dur("duration", record.Duration()).
			Msg(p.config.Message)
	}
}
