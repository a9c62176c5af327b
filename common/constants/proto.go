// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package constants contains IP protocol numbers and their names.
package constants

import "strconv"

const (
	// ProtoICMPv4 is the protocol number for ICMPv4
	ProtoICMPv4 = 1
	// ProtoTCP is the protocol number for TCP
	ProtoTCP = 6
	// ProtoUDP is the protocol number for UDP
	ProtoUDP = 17
	// ProtoGRE is the protocol number for GRE
	ProtoGRE = 47
	// ProtoESP is the protocol number for ESP
	ProtoESP = 50
	// ProtoSCTP is the protocol number for SCTP
	ProtoSCTP = 132
)

var protocolNames = map[uint8]string{
	ProtoICMPv4: "icmp",
	ProtoTCP:    "tcp",
	ProtoUDP:    "udp",
	ProtoGRE:    "gre",
	ProtoESP:    "esp",
	ProtoSCTP:   "sctp",
}

// ProtocolName returns the name of an IP protocol. Unknown protocols
// are returned as their decimal number.
func ProtocolName(proto uint8) string {
	if name, ok := protocolNames[proto]; ok {
		return name
	}
	return strconv.Itoa(int(proto))
}

// ProtocolNumber returns the number of a named IP protocol.
func ProtocolNumber(name string) (uint8, bool) {
	for proto, protoName := range protocolNames {
		if protoName == name {
			return proto, true
		}
	}
	return 0, false
}
