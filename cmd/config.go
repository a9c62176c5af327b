// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"nfcollector/common/helpers"
)

// ConfigRelatedOptions are command-line options related to handling a
// configuration file.
type ConfigRelatedOptions struct {
	Path string
	Dump bool
}

// resetter is implemented by configurations able to reset themselves
// to their default values.
type resetter interface {
	Reset()
}

// Parse parses the configuration file (if present) and the
// environment variables into the provided configuration. The result
// is validated.
func (c ConfigRelatedOptions) Parse(out io.Writer, component string, config any) error {
	if r, ok := config.(resetter); ok {
		r.Reset()
	}
	var rawConfig map[string]any
	if cfgFile := c.Path; cfgFile != "" {
		input, err := os.ReadFile(cfgFile)
		if err != nil {
			return fmt.Errorf("unable to read configuration file: %w", err)
		}
		if err := yaml.Unmarshal(input, &rawConfig); err != nil {
			return fmt.Errorf("unable to parse configuration file: %w", err)
		}
	}

	// Parse provided configuration
	decoder, err := mapstructure.NewDecoder(helpers.GetMapStructureDecoderConfig(config))
	if err != nil {
		return fmt.Errorf("unable to create configuration decoder: %w", err)
	}
	if err := decoder.Decode(rawConfig); err != nil {
		return fmt.Errorf("unable to parse configuration: %w", err)
	}

	// Override with environment variables
	envPrefix := fmt.Sprintf("NFCOLLECTOR_%s_", strings.ToUpper(strings.ReplaceAll(component, "-", "")))
	for _, keyval := range os.Environ() {
		key, value, ok := strings.Cut(keyval, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) || len(key) == len(envPrefix) {
			continue
		}
		override := envOverride(strings.Split(key[len(envPrefix):], "_"), value)
		if err := decoder.Decode(override); err != nil {
			return fmt.Errorf("unable to parse override %q: %w", key, err)
		}
	}

	if err := helpers.Validate.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	// Dump configuration if requested
	if c.Dump {
		output, err := yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("unable to dump configuration: %w", err)
		}
		out.Write([]byte("---\n"))
		out.Write(output)
		out.Write([]byte("\n"))
	}

	return nil
}

// envOverride turns the path of an environment variable into a raw
// configuration fragment. SINK_BROKERS=value gives {sink: {brokers:
// value}} and INPUTS_1_LISTEN=value gives {inputs: [nil, {listen:
// value}]}.
func envOverride(path []string, value string) any {
	var fragment any = value
	for _, element := range slices.Backward(path) {
		if index, err := strconv.Atoi(element); err == nil && index >= 0 {
			list := make([]any, index+1)
			list[index] = fragment
			fragment = list
			continue
		}
		fragment = map[string]any{element: fragment}
	}
	return fragment
}
