// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nfcollector/common/httpserver"
	"nfcollector/common/reporter"
	"nfcollector/fakeexporter/flows"
)

// FakeExporterConfiguration represents the configuration file for the fake exporter command.
type FakeExporterConfiguration struct {
	Reporting reporter.Configuration
	HTTP      httpserver.Configuration
	Flows     flows.Configuration
}

// Reset sets the default configuration for the fake exporter command.
func (c *FakeExporterConfiguration) Reset() {
	*c = FakeExporterConfiguration{
		HTTP:      httpserver.DefaultConfiguration(),
		Reporting: reporter.DefaultConfiguration(),
		Flows:     flows.DefaultConfiguration(),
	}
	c.HTTP.Listen = "0.0.0.0:8081"
}

// FakeExporterOptions stores the command-line option values for the
// fake exporter command.
var FakeExporterOptions serviceOptions

var fakeExporterCmd = &cobra.Command{
	Use:   "fake-exporter CONFIG",
	Short: "Start a synthetic exporter",
	Long: `For demo and testing purpose, this service exports synthetic flows
as NetFlow v5 packets.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := FakeExporterConfiguration{}
		FakeExporterOptions.Path = args[0]
		if err := FakeExporterOptions.Parse(cmd.OutOrStdout(), "fake-exporter", &config); err != nil {
			return err
		}

		r, err := reporter.New(config.Reporting)
		if err != nil {
			return fmt.Errorf("unable to initialize reporter: %w", err)
		}
		return fakeExporterStart(r, config, FakeExporterOptions.CheckMode)
	},
}

func init() {
	RootCmd.AddCommand(fakeExporterCmd)
	FakeExporterOptions.registerFlags(fakeExporterCmd)
}

func fakeExporterStart(r *reporter.Reporter, config FakeExporterConfiguration, checkOnly bool) error {
	daemonComponent, httpComponent, err := newServiceBase(r, config.HTTP)
	if err != nil {
		return err
	}
	flowsComponent, err := flows.New(r, config.Flows, flows.Dependencies{
		Daemon: daemonComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize flows component: %w", err)
	}
	if checkOnly {
		return nil
	}
	return StartStopComponents(r, daemonComponent, []any{httpComponent, flowsComponent})
}
