// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flow

import (
	"golang.org/x/time/rate"

	"nfcollector/common/helpers"
	"nfcollector/inlet/flow/input"
	"nfcollector/inlet/flow/input/pcap"
	"nfcollector/inlet/flow/input/udp"
)

// Configuration describes the configuration for the flow component
type Configuration struct {
	// Inputs define a list of input modules to enable
	Inputs []InputConfiguration `validate:"min=1,dive"`
	// Decoders is the list of decoders to register, in order.
	Decoders []string `validate:"min=1,dive,required"`
	// Workers is the number of goroutines decoding datagrams.
	Workers int `validate:"min=1"`
	// QueueSize is the number of datagrams waiting to be decoded.
	QueueSize int `validate:"min=1"`
	// QueuePolicy tells what to do with a datagram when the queue
	// is full.
	QueuePolicy QueuePolicy `validate:"oneof=drop block"`
	// Dispatch tells which decoders should handle a datagram.
	Dispatch DispatchMode `validate:"oneof=version all"`
	// RateLimit defines a rate limit on the number of flows per
	// second. The limit is per-exporter.
	RateLimit rate.Limit `validate:"isdefault|min=100"`
}

// QueuePolicy is the behavior when the dispatch queue is full.
type QueuePolicy string

const (
	// QueueDrop drops the incoming datagram.
	QueueDrop QueuePolicy = "drop"
	// QueueBlock waits for room in the queue.
	QueueBlock QueuePolicy = "block"
)

// DispatchMode is the way datagrams are dispatched to decoders.
type DispatchMode string

const (
	// DispatchVersion only runs the decoders handling the version
	// found in the first two bytes of the datagram.
	DispatchVersion DispatchMode = "version"
	// DispatchAll runs all decoders on all datagrams.
	DispatchAll DispatchMode = "all"
)

// DefaultConfiguration represents the default configuration for the flow component
func DefaultConfiguration() Configuration {
	return Configuration{
		Inputs: []InputConfiguration{{
			Config: udp.DefaultConfiguration(),
		}},
		Decoders:    []string{"netflow-v5"},
		Workers:     4,
		QueueSize:   1024,
		QueuePolicy: QueueDrop,
		Dispatch:    DispatchVersion,
	}
}

// InputConfiguration represents the configuration for an input.
type InputConfiguration struct {
	// Config is the actual configuration of the input.
	Config input.Configuration
}

// MarshalYAML undoes ParametrizedConfigurationUnmarshallerHook().
func (ic InputConfiguration) MarshalYAML() (any, error) {
	return helpers.ParametrizedConfigurationMarshalYAML(ic, inputs)
}

var inputs = map[string](func() input.Configuration){
	"udp":  udp.DefaultConfiguration,
	"pcap": pcap.DefaultConfiguration,
}

func init() {
	helpers.RegisterMapstructureUnmarshallerHook(
		helpers.ParametrizedConfigurationUnmarshallerHook(InputConfiguration{}, inputs))
}
