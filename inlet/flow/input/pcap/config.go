// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package pcap

import "nfcollector/inlet/flow/input"

// Configuration describes pcap input configuration.
type Configuration struct {
	// Paths are the pcap files to replay, in order.
	Paths []string `validate:"min=1,dive,required"`
	// Port restricts the replay to UDP datagrams sent to this port.
	// 0 means any port.
	Port uint16
}

// DefaultConfiguration descrives the default configuration for pcap input.
func DefaultConfiguration() input.Configuration {
	return &Configuration{}
}
