// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package udp

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"nfcollector/common/reporter"
)

type socketOption struct {
	Name      string
	Level     int
	Option    int
	Mandatory bool
}

type oobMessage struct {
	// Drops is the number of datagrams dropped by the kernel since
	// the socket was opened.
	Drops uint32
}

// listenConfig configures a listening socket with the provided options.
// Failing to set a non-mandatory option is only logged.
func listenConfig(r *reporter.Reporter, options []socketOption) *net.ListenConfig {
	return &net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var err error
			c.Control(func(fd uintptr) {
				for _, opt := range options {
					if serr := unix.SetsockoptInt(int(fd), opt.Level, opt.Option, 1); serr != nil {
						if opt.Mandatory {
							err = fmt.Errorf("cannot set option %s: %w", opt.Name, serr)
							return
						}
						r.Warn().Err(serr).Msgf("cannot set option %s", opt.Name)
					}
				}
			})
			return err
		},
	}
}
