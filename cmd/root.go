// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package cmd handles the command-line interface for nfcollector
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	debug     bool
	logFormat string
)

// RootCmd is the root for all commands
var RootCmd = &cobra.Command{
	Use:   "nfcollector",
	Short: "NetFlow v5 collector",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupLogging(cmd.ErrOrStderr(), os.Stdout, logFormat, debug)
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logs")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"Log format (auto, console or json)")
}

// setupLogging configures the global logger. With "auto", logs are
// human-readable on stderr when stdout is a terminal and JSON on stdout
// otherwise.
func setupLogging(console, out io.Writer, format string, debug bool) error {
	if format == "auto" {
		format = "json"
		if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			format = "console"
		}
	}
	switch format {
	case "console":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: console}).With().Timestamp().Logger()
	case "json":
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	return nil
}
