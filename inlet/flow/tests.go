// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package flow

import (
	"slices"
	"testing"

	"github.com/benbjohnson/clock"

	"nfcollector/common/daemon"
	"nfcollector/common/helpers"
	"nfcollector/common/reporter"
	"nfcollector/inlet/flow/input/udp"
	"nfcollector/inlet/sink"
)

// NewMock creates a new flow component with a mocked sink and a mocked
// clock. UDP inputs (or a default one when there is no input) listen
// on a random loopback port. It is autostarted.
func NewMock(t *testing.T, r *reporter.Reporter, config Configuration) (*Component, *sink.MockSink) {
	t.Helper()
	c, mockSink := newUnstartedMock(t, r, config)
	helpers.StartStop(t, c)
	return c, mockSink
}

func newUnstartedMock(t *testing.T, r *reporter.Reporter, config Configuration) (*Component, *sink.MockSink) {
	t.Helper()
	if len(config.Inputs) == 0 {
		config.Inputs = []InputConfiguration{{Config: &udp.Configuration{}}}
	}
	config.Inputs = slices.Clone(config.Inputs)
	for idx, in := range config.Inputs {
		if udpConfig, ok := in.Config.(*udp.Configuration); ok {
			local := *udpConfig
			local.Listen = "127.0.0.1:0"
			config.Inputs[idx].Config = &local
		}
	}
	mockSink := sink.NewMock(t)
	c, err := New(r, config, Dependencies{
		Daemon: daemon.NewMock(t),
		Sink:   mockSink,
		Clock:  clock.NewMock(),
	})
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	return c, mockSink
}
