// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nfcollector/common/daemon"
	"nfcollector/common/httpserver"
	"nfcollector/common/reporter"
)

// StartStopComponents activate/deactivate components in order. It
// returns once the daemon is terminated and all the components are
// stopped. The first component error reported to the daemon is
// returned.
func StartStopComponents(r *reporter.Reporter, daemonComponent daemon.Component, otherComponents []any) error {
	components := append([]any{daemonComponent}, otherComponents...)
	if err := startStopComponents(r, daemonComponent, components); err != nil {
		return err
	}
	if err := daemonComponent.Err(); err != nil {
		return fmt.Errorf("component failure: %w", err)
	}
	return nil
}

func startStopComponents(r *reporter.Reporter, daemonComponent daemon.Component, components []any) error {
	startedComponents := []any{}
	defer func() {
		for _, cmp := range startedComponents {
			if stopperC, ok := cmp.(stopper); ok {
				if err := stopperC.Stop(); err != nil {
					r.Err(err).Msg("unable to stop component, ignoring")
				}
			}
		}
	}()
	for _, cmp := range components {
		if starterC, ok := cmp.(starter); ok {
			if err := starterC.Start(); err != nil {
				return fmt.Errorf("unable to start component: %w", err)
			}
		}
		startedComponents = append([]any{cmp}, startedComponents...)
	}

	r.Info().
		Str("version", Version).Str("build-date", BuildDate).
		Msg("nfcollector has started")

	<-daemonComponent.Terminated()
	r.Info().Msg("stopping all components")
	return nil
}

type starter interface {
	Start() error
}
type stopper interface {
	Stop() error
}

// serviceOptions are the command-line options shared by commands
// running long-lived services.
type serviceOptions struct {
	ConfigRelatedOptions
	CheckMode bool
}

func (o *serviceOptions) registerFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&o.Dump, "dump", "D", false,
		"Dump configuration before starting")
	cmd.Flags().BoolVarP(&o.CheckMode, "check", "C", false,
		"Check configuration, but does not start")
}

// newServiceBase creates the daemon and HTTP components every service
// needs. The HTTP server exposes the version and build metrics.
func newServiceBase(r *reporter.Reporter, config httpserver.Configuration) (daemon.Component, *httpserver.Component, error) {
	daemonComponent, err := daemon.New(r)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to initialize daemon component: %w", err)
	}
	httpComponent, err := httpserver.New(r, config, httpserver.Dependencies{
		Daemon: daemonComponent,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("unable to initialize http component: %w", err)
	}
	httpComponent.GinRouter.GET("/api/v0/version", versionHandler)
	versionMetrics(r)
	return daemonComponent, httpComponent, nil
}
