// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package provider defines the interface of a sink provider.
package provider

import (
	"nfcollector/common/daemon"
	"nfcollector/common/reporter"
	"nfcollector/common/schema"
)

// Provider is the interface a sink provider should implement.
type Provider interface {
	// Start starts the provider.
	Start() error
	// Stop stops the provider.
	Stop() error
	// Send hands over flows decoded from one datagram. It may be
	// called concurrently and should not modify them.
	Send(flows []*schema.FlowEnvelope)
}

// Dependencies are the dependencies of a provider.
type Dependencies struct {
	Daemon daemon.Component
}

// Configuration is the interface for the configuration of a provider.
type Configuration interface {
	// New instantiates a new provider from its configuration.
	New(r *reporter.Reporter, dependencies Dependencies) (Provider, error)
}
