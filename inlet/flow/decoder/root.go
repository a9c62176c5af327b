// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package decoder handles the protocol-independent part of flow
// decoding.
package decoder

import (
	"encoding/binary"
	"errors"
	"net/netip"
	"time"

	"nfcollector/common/reporter"
	"nfcollector/common/schema"
)

// Decoder is the interface each decoder should implement. A decoder
// is shared by all dispatch workers and should be safe for concurrent
// use.
type Decoder interface {
	// Decode takes a raw flow and returns a slice of flows. On error,
	// no flow is returned.
	Decode(in RawFlow) ([]*schema.FlowEnvelope, error)
	// Name returns the decoder name
	Name() string
	// Version returns the wire version handled by the decoder.
	Version() uint16
}

// RawFlow is an undecoded datagram. The payload is owned by the
// receiver and is not modified by decoders.
type RawFlow struct {
	TimeReceived time.Time
	Payload      []byte
	Source       netip.AddrPort
}

// NewDecoderFunc is the signature of a function to instantiate a decoder.
type NewDecoderFunc func(*reporter.Reporter) Decoder

// ErrInsufficientData is returned when a datagram is too short for
// what its header announces.
var ErrInsufficientData = errors.New("insufficient data")

// PeekVersion returns the version found in the first two bytes of the
// payload.
func PeekVersion(payload []byte) (uint16, error) {
	if len(payload) < 2 {
		return 0, ErrInsufficientData
	}
	return binary.BigEndian.Uint16(payload), nil
}
