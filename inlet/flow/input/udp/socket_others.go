// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !linux

package udp

import "golang.org/x/sys/unix"

// No kernel drop counter outside Linux.
var oobLength = 0

var udpSocketOptions = []socketOption{
	{Name: "SO_REUSEADDR", Level: unix.SOL_SOCKET, Option: unix.SO_REUSEADDR, Mandatory: true},
}

func parseSocketControlMessage([]byte) (oobMessage, error) {
	return oobMessage{}, nil
}
