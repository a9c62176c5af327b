// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flow

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"nfcollector/common/helpers"
	"nfcollector/inlet/flow/input/pcap"
	"nfcollector/inlet/flow/input/udp"
)

func TestDefaultConfiguration(t *testing.T) {
	if err := helpers.Validate.Struct(DefaultConfiguration()); err != nil {
		t.Fatalf("validate.Struct() error:\n%+v", err)
	}
}

func TestDecodeConfiguration(t *testing.T) {
	helpers.TestConfigurationDecode(t, helpers.ConfigurationDecodeCases{
		{
			Description:   "empty",
			Initial:       func() any { return DefaultConfiguration() },
			Configuration: func() any { return gin.H{} },
			Expected:      DefaultConfiguration(),
		}, {
			Description: "new UDP input",
			Initial:     func() any { return DefaultConfiguration() },
			Configuration: func() any {
				return gin.H{
					"inputs": []gin.H{
						{
							"type":           "udp",
							"listen":         "192.0.2.1:2055",
							"receive-buffer": 1000,
						},
					},
					"workers":      2,
					"queue-policy": "block",
				}
			},
			Expected: func() Configuration {
				c := DefaultConfiguration()
				c.Inputs = []InputConfiguration{{
					Config: &udp.Configuration{
						Listen:        "192.0.2.1:2055",
						ReceiveBuffer: 1000,
					},
				}}
				c.Workers = 2
				c.QueuePolicy = QueueBlock
				return c
			}(),
		}, {
			Description: "only set one item",
			Initial: func() any {
				c := DefaultConfiguration()
				c.Inputs = []InputConfiguration{{
					Config: &udp.Configuration{
						Listen:        "127.0.0.1:2055",
						ReceiveBuffer: 1000,
					},
				}}
				return c
			},
			Configuration: func() any {
				return gin.H{
					"inputs": []gin.H{
						{
							"listen": "192.0.2.1:2055",
						},
					},
				}
			},
			Expected: func() Configuration {
				c := DefaultConfiguration()
				c.Inputs = []InputConfiguration{{
					Config: &udp.Configuration{
						Listen:        "192.0.2.1:2055",
						ReceiveBuffer: 1000,
					},
				}}
				return c
			}(),
		}, {
			Description: "change type",
			Initial:     func() any { return DefaultConfiguration() },
			Configuration: func() any {
				return gin.H{
					"inputs": []gin.H{
						{
							"type":  "pcap",
							"paths": []string{"file1", "file2"},
							"port":  2055,
						},
					},
				}
			},
			Expected: func() Configuration {
				c := DefaultConfiguration()
				c.Inputs = []InputConfiguration{{
					Config: &pcap.Configuration{
						Paths: []string{"file1", "file2"},
						Port:  2055,
					},
				}}
				return c
			}(),
		}, {
			Description: "decoders as a string",
			Initial:     func() any { return DefaultConfiguration() },
			Configuration: func() any {
				return gin.H{
					"decoders":   "netflow-v5",
					"dispatch":   "all",
					"rate-limit": 1000,
				}
			},
			Expected: func() Configuration {
				c := DefaultConfiguration()
				c.Dispatch = DispatchAll
				c.RateLimit = 1000
				return c
			}(),
		}, {
			Description: "unknown input type",
			Initial:     func() any { return DefaultConfiguration() },
			Configuration: func() any {
				return gin.H{
					"inputs": []gin.H{{"type": "sflow"}},
				}
			},
			Error: true,
		}, {
			Description: "invalid queue policy",
			Initial:     func() any { return DefaultConfiguration() },
			Configuration: func() any {
				return gin.H{"queue-policy": "wait"}
			},
			Error: true,
		}, {
			Description: "rate limit too low",
			Initial:     func() any { return DefaultConfiguration() },
			Configuration: func() any {
				return gin.H{"rate-limit": 10}
			},
			Error: true,
		},
	})
}

func TestMarshalYAML(t *testing.T) {
	configuration := DefaultConfiguration()
	configuration.Inputs = append(configuration.Inputs, InputConfiguration{
		Config: &pcap.Configuration{Paths: []string{"capture.pcap"}},
	})
	out, err := yaml.Marshal(configuration)
	if err != nil {
		t.Fatalf("yaml.Marshal() error:\n%+v", err)
	}
	var raw any
	if err := yaml.Unmarshal(out, &raw); err != nil {
		t.Fatalf("yaml.Unmarshal() error:\n%+v", err)
	}
	got := Configuration{}
	decoder, err := mapstructure.NewDecoder(helpers.GetMapStructureDecoderConfig(&got))
	if err != nil {
		t.Fatalf("NewDecoder() error:\n%+v", err)
	}
	if err := decoder.Decode(raw); err != nil {
		t.Fatalf("Decode() error:\n%+v\n%s", err, out)
	}
	if diff := helpers.Diff(got, configuration); diff != "" {
		t.Fatalf("YAML round trip (-got, +want):\n%s", diff)
	}
}
