// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package decoder

import (
	"errors"
	"sync"

	"nfcollector/common/schema"
)

// ErrDummy is returned by DummyDecoder when asked to fail.
var ErrDummy = errors.New("dummy failure")

// DummyDecoder is a simple decoder for tests. It returns one flow
// whose octet count is the payload size. A payload starting with its
// version followed by 'E' fails and one followed by 'P' panics.
type DummyDecoder struct {
	DecoderName    string
	DecoderVersion uint16

	lock  sync.Mutex
	calls int
}

// Decode returns one flow per datagram.
func (dc *DummyDecoder) Decode(in RawFlow) ([]*schema.FlowEnvelope, error) {
	dc.lock.Lock()
	dc.calls++
	dc.lock.Unlock()
	if len(in.Payload) > 2 {
		switch in.Payload[2] {
		case 'E':
			return nil, ErrDummy
		case 'P':
			panic("dummy panic")
		}
	}
	return []*schema.FlowEnvelope{{
		TimeReceived:    in.TimeReceived,
		ExporterAddress: in.Source,
		Header:          &schema.PacketHeader{Version: dc.DecoderVersion, Count: 1},
		Record: schema.FlowRecord{
			Packets: 1,
			Octets:  uint32(len(in.Payload)),
		},
	}}, nil
}

// Name returns the configured name.
func (dc *DummyDecoder) Name() string {
	if dc.DecoderName == "" {
		return "dummy"
	}
	return dc.DecoderName
}

// Version returns the configured version.
func (dc *DummyDecoder) Version() uint16 {
	return dc.DecoderVersion
}

// Calls returns the number of times Decode() was called.
func (dc *DummyDecoder) Calls() int {
	dc.lock.Lock()
	defer dc.lock.Unlock()
	return dc.calls
}
