// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package httpserver

import "time"

// Configuration describes the configuration for the HTTP server.
type Configuration struct {
	// Listen is the address to listen to. Empty disables the HTTP
	// server.
	Listen string `validate:"omitempty,listen"`
	// Profiler enables Go profiler endpoints under /debug/pprof/.
	Profiler bool
	// ShutdownTimeout bounds how long in-flight requests are waited
	// for on stop.
	ShutdownTimeout time.Duration `validate:"min=1s"`
}

// DefaultConfiguration is the default configuration of the HTTP server.
func DefaultConfiguration() Configuration {
	return Configuration{
		Listen:          "0.0.0.0:8080",
		ShutdownTimeout: 5 * time.Second,
	}
}
