// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flow

import (
	"errors"
	"fmt"
	"time"

	"nfcollector/common/schema"
	"nfcollector/inlet/flow/decoder"
	"nfcollector/inlet/flow/decoder/netflowv5"
)

// errDecoderPanic is returned when a decoder panicked.
var errDecoderPanic = errors.New("decoder panic")

type wrappedDecoder struct {
	c    *Component
	orig decoder.Decoder
}

// Decode decodes a flow while keeping some stats. A panic from the
// decoder is turned into an error.
func (wd *wrappedDecoder) Decode(in decoder.RawFlow) (decoded []*schema.FlowEnvelope, err error) {
	name := wd.orig.Name()
	defer func() {
		if r := recover(); r != nil {
			decoded = nil
			err = fmt.Errorf("%w: %v", errDecoderPanic, r)
		}
		if err != nil {
			wd.c.metrics.decoderErrors.WithLabelValues(name).Inc()
			wd.c.errLogger.Err(err).
				Str("decoder", name).
				Str("exporter", in.Source.String()).
				Msg("unable to decode datagram")
		}
	}()

	timeTrackStart := time.Now()
	decoded, err = wd.orig.Decode(in)
	timeTrackStop := time.Now()
	if err != nil {
		return nil, err
	}
	wd.c.metrics.decoderTime.WithLabelValues(name).
		Observe(timeTrackStop.Sub(timeTrackStart).Seconds())
	wd.c.metrics.decoderFlows.WithLabelValues(name).
		Add(float64(len(decoded)))
	return decoded, nil
}

// Name returns the name of the original decoder.
func (wd *wrappedDecoder) Name() string {
	return wd.orig.Name()
}

// Version returns the version handled by the original decoder.
func (wd *wrappedDecoder) Version() uint16 {
	return wd.orig.Version()
}

// wrapDecoder wraps the provided decoders to get statistics from it.
func (c *Component) wrapDecoder(d decoder.Decoder) decoder.Decoder {
	return &wrappedDecoder{
		c:    c,
		orig: d,
	}
}

var decoders = map[string]decoder.NewDecoderFunc{
	"netflow-v5": netflowv5.New,
}
