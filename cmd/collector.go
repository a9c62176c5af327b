// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nfcollector/common/httpserver"
	"nfcollector/common/reporter"
	"nfcollector/inlet/flow"
	"nfcollector/inlet/sink"
)

// CollectorConfiguration represents the configuration file for the collector command.
type CollectorConfiguration struct {
	Reporting reporter.Configuration
	HTTP      httpserver.Configuration
	Flow      flow.Configuration
	Sink      sink.Configuration
}

// Reset resets the configuration for the collector command to its default value.
func (c *CollectorConfiguration) Reset() {
	*c = CollectorConfiguration{
		HTTP:      httpserver.DefaultConfiguration(),
		Reporting: reporter.DefaultConfiguration(),
		Flow:      flow.DefaultConfiguration(),
		Sink:      sink.DefaultConfiguration(),
	}
}

// CollectorOptions stores the command-line option values for the
// collector command.
var CollectorOptions serviceOptions

var collectorCmd = &cobra.Command{
	Use:   "collector [CONFIG]",
	Short: "Start the NetFlow v5 collector",
	Long: `nfcollector receives NetFlow v5 export packets over UDP, decodes them
and hands the decoded flows to a sink (log or Kafka).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := CollectorConfiguration{}
		CollectorOptions.Path = ""
		if len(args) > 0 {
			CollectorOptions.Path = args[0]
		}
		if err := CollectorOptions.Parse(cmd.OutOrStdout(), "collector", &config); err != nil {
			return err
		}

		r, err := reporter.New(config.Reporting)
		if err != nil {
			return fmt.Errorf("unable to initialize reporter: %w", err)
		}
		return collectorStart(r, config, CollectorOptions.CheckMode)
	},
}

func init() {
	RootCmd.AddCommand(collectorCmd)
	CollectorOptions.registerFlags(collectorCmd)
}

func collectorStart(r *reporter.Reporter, config CollectorConfiguration, checkOnly bool) error {
	daemonComponent, httpComponent, err := newServiceBase(r, config.HTTP)
	if err != nil {
		return err
	}
	sinkComponent, err := sink.New(r, config.Sink, sink.Dependencies{
		Daemon: daemonComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize sink component: %w", err)
	}
	flowComponent, err := flow.New(r, config.Flow, flow.Dependencies{
		Daemon: daemonComponent,
		Sink:   sinkComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize flow component: %w", err)
	}

	if checkOnly {
		return nil
	}

	// Components are stopped in reverse order: flow before sink.
	return StartStopComponents(r, daemonComponent, []any{
		httpComponent,
		sinkComponent,
		flowComponent,
	})
}
