// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package sink

import (
	"testing"

	"nfcollector/common/schema"
)

// MockSink is a sink collecting flows on a channel.
type MockSink struct {
	flows chan []*schema.FlowEnvelope
}

var _ Sink = &MockSink{}

// NewMock creates a sink whose received flows can be read with Flows().
func NewMock(t *testing.T) *MockSink {
	t.Helper()
	return &MockSink{
		flows: make(chan []*schema.FlowEnvelope, 1000),
	}
}

// Send queues the flows. It blocks when nobody reads them.
func (s *MockSink) Send(flows []*schema.FlowEnvelope) {
	s.flows <- flows
}

// Flows returns the channel receiving flows, one datagram at a time.
func (s *MockSink) Flows() <-chan []*schema.FlowEnvelope {
	return s.flows
}
