// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package udp

import "nfcollector/inlet/flow/input"

// Configuration describes UDP input configuration.
type Configuration struct {
	// Listen tells which address and port to listen to.
	Listen string `validate:"required,listen"`
	// ReceiveBuffer is the value of the requested buffer size for
	// the listening socket. When 0, the value is left to the
	// default value set by the kernel (net.core.rmem_default).
	// The value cannot exceed the kernel max value
	// (net.core.rmem_max).
	ReceiveBuffer uint
}

// DefaultConfiguration is the default configuration for this input
func DefaultConfiguration() input.Configuration {
	return &Configuration{
		Listen: "0.0.0.0:9996",
	}
}
