// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package netflowv5 handles NetFlow v5 decoding and encoding.
package netflowv5

import (
	"errors"

	"nfcollector/common/reporter"
	"nfcollector/common/schema"
	"nfcollector/inlet/flow/decoder"
)

// Decoder contains the state for the NetFlow v5 decoder. It only
// holds metrics and can be used concurrently. Errors are returned, not
// logged: the caller logs them.
type Decoder struct {
	r *reporter.Reporter

	metrics struct {
		packets *reporter.CounterVec
		flows   *reporter.CounterVec
		errors  *reporter.CounterVec
	}
}

// New instantiates a new NetFlow v5 decoder.
func New(r *reporter.Reporter) decoder.Decoder {
	nd := &Decoder{r: r}
	nd.metrics.packets = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "packets_total",
			Help: "NetFlow v5 packets decoded.",
		},
		[]string{"exporter"},
	)
	nd.metrics.flows = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "flows_total",
			Help: "NetFlow v5 flows decoded.",
		},
		[]string{"exporter"},
	)
	nd.metrics.errors = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "NetFlow v5 packets which could not be decoded.",
		},
		[]string{"exporter", "error"},
	)
	return nd
}

// Decode decodes a NetFlow v5 datagram. All the returned flows share
// the same header and the reception time of the datagram.
func (nd *Decoder) Decode(in decoder.RawFlow) ([]*schema.FlowEnvelope, error) {
	exporter := in.Source.Addr().Unmap().String()
	header, records, err := DecodePacket(in.Payload)
	if err != nil {
		nd.metrics.errors.WithLabelValues(exporter, errorLabel(err)).Inc()
		return nil, err
	}
	nd.metrics.packets.WithLabelValues(exporter).Inc()
	nd.metrics.flows.WithLabelValues(exporter).Add(float64(len(records)))

	flows := make([]*schema.FlowEnvelope, len(records))
	for i, record := range records {
		flows[i] = &schema.FlowEnvelope{
			TimeReceived:    in.TimeReceived,
			ExporterAddress: in.Source,
			Header:          &header,
			Record:          record,
		}
	}
	return flows, nil
}

// Name returns the name of the decoder.
func (nd *Decoder) Name() string {
	return "netflow-v5"
}

// Version returns the NetFlow version handled by this decoder.
func (nd *Decoder) Version() uint16 {
	return Version
}

func errorLabel(err error) string {
	switch {
	case errors.Is(err, decoder.ErrInsufficientData):
		return decoder.ErrInsufficientData.Error()
	case errors.Is(err, ErrInvalidCount):
		return ErrInvalidCount.Error()
	case errors.Is(err, ErrUnexpectedVersion):
		return ErrUnexpectedVersion.Error()
	default:
		return "unknown"
	}
}
