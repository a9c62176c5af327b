// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package input defines the interface of the flow inputs (UDP
// listener, pcap replay).
package input

import (
	"github.com/benbjohnson/clock"

	"nfcollector/common/daemon"
	"nfcollector/common/reporter"
	"nfcollector/inlet/flow/decoder"
)

// Input is the interface any input should meet
type Input interface {
	// Start instructs an input to start producing raw flows.
	Start() error
	// Stop instructs the input to stop producing raw flows.
	Stop() error
}

// SendFunc is the function an input uses to hand over a datagram. The
// payload is owned by the callee once sent.
type SendFunc func(decoder.RawFlow)

// Dependencies are the dependencies of an input.
type Dependencies struct {
	Daemon daemon.Component
	Clock  clock.Clock
}

// Configuration the interface for the configuration for an input module.
type Configuration interface {
	// New instantiantes a new input from its configuration.
	New(r *reporter.Reporter, dependencies Dependencies, send SendFunc) (Input, error)
}
