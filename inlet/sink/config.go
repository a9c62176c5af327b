// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package sink

import (
	"nfcollector/common/helpers"
	"nfcollector/inlet/sink/provider"
	"nfcollector/inlet/sink/provider/kafka"
	"nfcollector/inlet/sink/provider/log"
)

// Configuration describes the configuration for the sink component.
// The provider is selected with the "type" key.
type Configuration struct {
	// Config is the actual configuration of the provider.
	Config provider.Configuration
}

// DefaultConfiguration represents the default configuration for the sink component.
func DefaultConfiguration() Configuration {
	return Configuration{
		Config: log.DefaultConfiguration(),
	}
}

// MarshalYAML undoes ParametrizedConfigurationUnmarshallerHook().
func (c Configuration) MarshalYAML() (any, error) {
	return helpers.ParametrizedConfigurationMarshalYAML(c, providers)
}

var providers = map[string](func() provider.Configuration){
	"log":   log.DefaultConfiguration,
	"kafka": kafka.DefaultConfiguration,
}

func init() {
	helpers.RegisterMapstructureUnmarshallerHook(
		helpers.ParametrizedConfigurationUnmarshallerHook(Configuration{}, providers))
}
