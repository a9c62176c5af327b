// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package log

import "nfcollector/inlet/sink/provider"

// Configuration describes the configuration of the log provider.
type Configuration struct {
	// Message is the message attached to each logged flow.
	Message string `validate:"required"`
}

// DefaultConfiguration returns the default configuration for the log provider.
func DefaultConfiguration() provider.Configuration {
	return &Configuration{
		Message: "flow received",
	}
}
