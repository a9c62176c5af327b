// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package schema_test

import (
	"encoding/json"
	"net/netip"
	"testing"
	"time"

	"nfcollector/common/helpers"
	"nfcollector/common/schema"
)

func TestPacketHeaderHelpers(t *testing.T) {
	cases := []struct {
		Pos      helpers.Pos
		Interval uint16
		Mode     uint8
		Rate     uint16
	}{
		{helpers.Mark(), 0, 0, 0},
		{helpers.Mark(), 100, 0, 100},
		{helpers.Mark(), 0x4000 | 1000, 1, 1000},
		{helpers.Mark(), 0xffff, 3, 0x3fff},
	}
	for _, tc := range cases {
		h := schema.PacketHeader{SamplingInterval: tc.Interval}
		if got := h.SamplingMode(); got != tc.Mode {
			t.Errorf("%sSamplingMode(%#x) = %d, want %d", tc.Pos, tc.Interval, got, tc.Mode)
		}
		if got := h.SamplingRate(); got != tc.Rate {
			t.Errorf("%sSamplingRate(%#x) = %d, want %d", tc.Pos, tc.Interval, got, tc.Rate)
		}
	}

	h := schema.PacketHeader{UnixSecs: 1700000000, UnixNSecs: 500}
	if diff := helpers.Diff(h.ExportTime(), time.Unix(1700000000, 500).UTC()); diff != "" {
		t.Errorf("ExportTime() (-got, +want):\n%s", diff)
	}
}

func TestFlowRecordDuration(t *testing.T) {
	cases := []struct {
		Pos         helpers.Pos
		First, Last uint32
		Expected    time.Duration
	}{
		{helpers.Mark(), 1000, 1000, 0},
		{helpers.Mark(), 1000, 2500, 1500 * time.Millisecond},
		{helpers.Mark(), 0xffffff00, 0x100, 512 * time.Millisecond},
	}
	for _, tc := range cases {
		got := schema.FlowRecord{First: tc.First, Last: tc.Last}.Duration()
		if got != tc.Expected {
			t.Errorf("%sDuration() = %s, want %s", tc.Pos, got, tc.Expected)
		}
	}
}

func TestFlowEnvelopeJSON(t *testing.T) {
	header := &schema.PacketHeader{Version: 5, Count: 1, FlowSequence: 42}
	envelope := schema.FlowEnvelope{
		TimeReceived:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		ExporterAddress: netip.MustParseAddrPort("192.0.2.1:2055"),
		Header:          header,
		Record: schema.FlowRecord{
			SrcAddr: netip.MustParseAddr("10.0.0.1"),
			DstAddr: netip.MustParseAddr("10.0.0.2"),
			NextHop: netip.MustParseAddr("0.0.0.0"),
			Packets: 10,
			Octets:  1500,
			SrcAS:   65000,
			Proto:   6,
		},
	}
	out, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("json.Marshal() error:\n%+v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("json.Unmarshal() error:\n%+v", err)
	}
	if got["exporter-address"] != "192.0.2.1:2055" {
		t.Errorf("exporter-address = %v", got["exporter-address"])
	}
	if got["time-received"] != "2024-03-01T10:00:00Z" {
		t.Errorf("time-received = %v", got["time-received"])
	}
	record := got["record"].(map[string]any)
	expected := map[string]any{
		"src-addr": "10.0.0.1",
		"dst-addr": "10.0.0.2",
		"next-hop": "0.0.0.0",
		"packets":  float64(10),
		"octets":   float64(1500),
		"src-as":   float64(65000),
		"proto":    float64(6),
	}
	for k, v := range expected {
		if diff := helpers.Diff(record[k], v); diff != "" {
			t.Errorf("record[%q] (-got, +want):\n%s", k, diff)
		}
	}
	if got["header"].(map[string]any)["flow-sequence"] != float64(42) {
		t.Errorf("header = %v", got["header"])
	}
}
