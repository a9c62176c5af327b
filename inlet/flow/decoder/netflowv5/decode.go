// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package netflowv5

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"

	"github.com/netsampler/goflow2/v2/decoders/netflowlegacy"

	"nfcollector/common/schema"
	"nfcollector/inlet/flow/decoder"
)

const (
	// Version is the NetFlow version handled by this package.
	Version = 5
	// HeaderSize is the size of a NetFlow v5 header.
	HeaderSize = 24
	// RecordSize is the size of a NetFlow v5 flow record.
	RecordSize = 48
	// MaxRecords is the maximum number of records in a packet.
	MaxRecords = 30
)

var (
	// ErrInvalidCount is returned when the header announces no record
	// or more than MaxRecords records.
	ErrInvalidCount = errors.New("invalid record count")
	// ErrUnexpectedVersion is returned when the header version is not 5.
	ErrUnexpectedVersion = errors.New("unexpected version")
)

// DecodePacket decodes a NetFlow v5 packet. On error, no record is
// returned. Bytes after the last record are ignored. The returned
// values do not reference the payload.
func DecodePacket(payload []byte) (schema.PacketHeader, []schema.FlowRecord, error) {
	if len(payload) < HeaderSize {
		return schema.PacketHeader{}, nil, fmt.Errorf("header needs %d bytes, got %d: %w",
			HeaderSize, len(payload), decoder.ErrInsufficientData)
	}
	version := binary.BigEndian.Uint16(payload[0:2])
	count := binary.BigEndian.Uint16(payload[2:4])
	if count == 0 || count > MaxRecords {
		return schema.PacketHeader{}, nil, fmt.Errorf("%d records: %w", count, ErrInvalidCount)
	}
	if version != Version {
		return schema.PacketHeader{}, nil, fmt.Errorf("version %d: %w", version, ErrUnexpectedVersion)
	}
	expected := HeaderSize + RecordSize*int(count)
	if len(payload) < expected {
		return schema.PacketHeader{}, nil, fmt.Errorf("%d records need %d bytes, got %d: %w",
			count, expected, len(payload), decoder.ErrInsufficientData)
	}

	var packet netflowlegacy.PacketNetFlowV5
	if err := netflowlegacy.DecodeMessage(bytes.NewBuffer(payload[2:expected]), &packet); err != nil {
		return schema.PacketHeader{}, nil, fmt.Errorf("NetFlow v5 decoding error: %w", err)
	}
	header := schema.PacketHeader{
		Version:          version,
		Count:            packet.Count,
		SysUptime:        packet.SysUptime,
		UnixSecs:         packet.UnixSecs,
		UnixNSecs:        packet.UnixNSecs,
		FlowSequence:     packet.FlowSequence,
		EngineType:       packet.EngineType,
		EngineID:         packet.EngineId,
		SamplingInterval: packet.SamplingInterval,
	}
	records := make([]schema.FlowRecord, len(packet.Records))
	for i, record := range packet.Records {
		records[i] = convertRecord(record)
	}
	return header, records, nil
}

// convertRecord maps a goflow2 NetFlow v5 record to a flow record.
func convertRecord(record netflowlegacy.RecordsNetFlowV5) schema.FlowRecord {
	return schema.FlowRecord{
		SrcAddr:  ipv4(record.SrcAddr),
		DstAddr:  ipv4(record.DstAddr),
		NextHop:  ipv4(record.NextHop),
		InIf:     record.Input,
		OutIf:    record.Output,
		Packets:  record.DPkts,
		Octets:   record.DOctets,
		First:    record.First,
		Last:     record.Last,
		SrcPort:  record.SrcPort,
		DstPort:  record.DstPort,
		TCPFlags: record.TCPFlags,
		Proto:    record.Proto,
		ToS:      record.Tos,
		SrcAS:    uint32(record.SrcAS),
		DstAS:    uint32(record.DstAS),
		SrcMask:  record.SrcMask,
		DstMask:  record.DstMask,
	}
}

func ipv4(addr netflowlegacy.IPAddress) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(addr))
	return netip.AddrFrom4(b)
}
