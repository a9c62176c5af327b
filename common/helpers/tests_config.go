// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package helpers

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ConfigurationDecodeCases describes a test case for configuration
// decode. We use functions to return value as the decoding process
// may mutate the configuration.
type ConfigurationDecodeCases []struct {
	Description    string
	Pos            Pos
	Initial        func() any // initial value for configuration
	Configuration  func() any // configuration to decode
	Expected       any
	Error          bool
	SkipValidation bool
}

// TestConfigurationDecode decodes each configuration directly and
// after a round-trip through YAML, then validates the result.
func TestConfigurationDecode(t *testing.T, cases ConfigurationDecodeCases, options ...cmp.Option) {
	t.Helper()
	for _, tc := range cases {
		for _, fromYAML := range []bool{false, true} {
			title := tc.Description
			if fromYAML {
				title = fmt.Sprintf("%s (from YAML)", title)
			}
			t.Run(title, func(t *testing.T) {
				t.Helper()
				var configuration any
				if fromYAML {
					out, err := yaml.Marshal(tc.Configuration())
					if err != nil {
						t.Fatalf("%syaml.Marshal() error:\n%+v", tc.Pos, err)
					}
					if err := yaml.Unmarshal(out, &configuration); err != nil {
						t.Fatalf("%syaml.Unmarshal() error:\n%+v", tc.Pos, err)
					}
				} else {
					configuration = tc.Configuration()
				}
				got := tc.Initial()

				decoder, err := mapstructure.NewDecoder(GetMapStructureDecoderConfig(&got))
				if err != nil {
					t.Fatalf("%sNewDecoder() error:\n%+v", tc.Pos, err)
				}
				if err := decoder.Decode(configuration); err != nil {
					if tc.Error {
						return
					}
					t.Fatalf("%sDecode() error:\n%+v", tc.Pos, err)
				}
				if !tc.SkipValidation {
					if err := Validate.Struct(got); err != nil {
						if tc.Error {
							return
						}
						t.Fatalf("%sValidate() error:\n%+v", tc.Pos, err)
					}
				}
				if tc.Error {
					t.Fatalf("%sDecode() and Validate() did not error", tc.Pos)
				}
				if diff := Diff(got, tc.Expected, options...); diff != "" {
					t.Fatalf("%sDecode() (-got, +want):\n%s", tc.Pos, diff)
				}
			})
		}
	}
}
