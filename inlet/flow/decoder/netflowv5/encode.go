// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package netflowv5

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"nfcollector/common/schema"
)

// EncodePacket encodes a NetFlow v5 packet. The version and count of
// the provided header are ignored and derived from the records. AS
// numbers larger than 65535 are encoded as AS_TRANS (23456).
func EncodePacket(header schema.PacketHeader, records []schema.FlowRecord) ([]byte, error) {
	if len(records) == 0 || len(records) > MaxRecords {
		return nil, fmt.Errorf("%d records: %w", len(records), ErrInvalidCount)
	}
	buf := make([]byte, 0, HeaderSize+RecordSize*len(records))
	buf = binary.BigEndian.AppendUint16(buf, Version)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(records)))
	buf = binary.BigEndian.AppendUint32(buf, header.SysUptime)
	buf = binary.BigEndian.AppendUint32(buf, header.UnixSecs)
	buf = binary.BigEndian.AppendUint32(buf, header.UnixNSecs)
	buf = binary.BigEndian.AppendUint32(buf, header.FlowSequence)
	buf = append(buf, header.EngineType, header.EngineID)
	buf = binary.BigEndian.AppendUint16(buf, header.SamplingInterval)
	for _, record := range records {
		buf = appendIPv4(buf, record.SrcAddr)
		buf = appendIPv4(buf, record.DstAddr)
		buf = appendIPv4(buf, record.NextHop)
		buf = binary.BigEndian.AppendUint16(buf, record.InIf)
		buf = binary.BigEndian.AppendUint16(buf, record.OutIf)
		buf = binary.BigEndian.AppendUint32(buf, record.Packets)
		buf = binary.BigEndian.AppendUint32(buf, record.Octets)
		buf = binary.BigEndian.AppendUint32(buf, record.First)
		buf = binary.BigEndian.AppendUint32(buf, record.Last)
		buf = binary.BigEndian.AppendUint16(buf, record.SrcPort)
		buf = binary.BigEndian.AppendUint16(buf, record.DstPort)
		buf = append(buf, 0, record.TCPFlags, record.Proto, record.ToS)
		buf = binary.BigEndian.AppendUint16(buf, as16(record.SrcAS))
		buf = binary.BigEndian.AppendUint16(buf, as16(record.DstAS))
		buf = append(buf, record.SrcMask, record.DstMask, 0, 0)
	}
	return buf, nil
}

// appendIPv4 appends an IPv4 address. Other addresses are encoded as 0.0.0.0.
func appendIPv4(buf []byte, addr netip.Addr) []byte {
	addr = addr.Unmap()
	if !addr.Is4() {
		return append(buf, 0, 0, 0, 0)
	}
	a4 := addr.As4()
	return append(buf, a4[:]...)
}

func as16(asn uint32) uint16 {
	if asn > 0xffff {
		return 23456
	}
	return uint16(asn)
}
