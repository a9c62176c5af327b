// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build linux

package udp

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// oobLength is the room needed for the SO_RXQ_OVFL control message
// (one uint32).
var oobLength = unix.CmsgSpace(4)

var udpSocketOptions = []socketOption{
	{Name: "SO_REUSEADDR", Level: unix.SOL_SOCKET, Option: unix.SO_REUSEADDR, Mandatory: true},
	// Kernel drop counter, attached to each received datagram
	{Name: "SO_RXQ_OVFL", Level: unix.SOL_SOCKET, Option: unix.SO_RXQ_OVFL},
}

// parseSocketControlMessage extracts the kernel drop counter from the
// out-of-band data of a datagram. Missing counters are reported as 0.
func parseSocketControlMessage(oob []byte) (oobMessage, error) {
	var msg oobMessage
	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return msg, err
	}
	for _, cmsg := range cmsgs {
		if cmsg.Header.Level != unix.SOL_SOCKET || cmsg.Header.Type != unix.SO_RXQ_OVFL {
			continue
		}
		if len(cmsg.Data) < 4 {
			continue
		}
		msg.Drops = binary.NativeEndian.Uint32(cmsg.Data)
	}
	return msg, nil
}
