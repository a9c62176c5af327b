// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package kafka

import (
	"encoding/json"
	"errors"
	"net/netip"
	"strconv"
	"testing"
	"time"

	"github.com/IBM/sarama"
	gometrics "github.com/rcrowley/go-metrics"

	"nfcollector/common/daemon"
	"nfcollector/common/helpers"
	"nfcollector/common/reporter"
	"nfcollector/common/schema"
	"nfcollector/inlet/sink/provider"
)

func TestKafka(t *testing.T) {
	r := reporter.NewMock(t)
	p, mockProducer := NewMock(t, r, DefaultConfiguration().(*Configuration))

	flow := &schema.FlowEnvelope{
		TimeReceived:    time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
		ExporterAddress: netip.MustParseAddrPort("[::ffff:192.0.2.1]:40000"),
		Header: &schema.PacketHeader{
			Version:      5,
			Count:        1,
			FlowSequence: 1000,
		},
		Record: schema.FlowRecord{
			SrcAddr: netip.MustParseAddr("10.0.0.1"),
			DstAddr: netip.MustParseAddr("10.0.0.2"),
			NextHop: netip.MustParseAddr("0.0.0.0"),
			Proto:   6,
			Packets: 10,
			Octets:  1500,
		},
	}
	expectedPayload, err := json.Marshal(flow)
	if err != nil {
		t.Fatalf("json.Marshal() error:\n%+v", err)
	}

	// Send one message
	received := make(chan bool)
	mockProducer.ExpectInputWithMessageCheckerFunctionAndSucceed(func(got *sarama.ProducerMessage) error {
		defer close(received)
		key, _ := got.Key.Encode()
		value, _ := got.Value.Encode()
		gotMessage := []string{got.Topic, string(key), string(value)}
		expectedMessage := []string{"flows", "192.0.2.1", string(expectedPayload)}
		if diff := helpers.Diff(gotMessage, expectedMessage); diff != "" {
			t.Errorf("Send() (-got, +want):\n%s", diff)
		}
		return nil
	})
	p.Send([]*schema.FlowEnvelope{flow})
	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("Kafka message not received")
	}

	// Another but with a fail
	mockProducer.ExpectInputAndFail(errors.New("noooo"))
	p.Send([]*schema.FlowEnvelope{flow})

	time.Sleep(50 * time.Millisecond)
	gotMetrics := r.GetMetrics("nfcollector_inlet_sink_provider_kafka_", "sent_", "errors_")
	expectedMetrics := map[string]string{
		`sent_bytes_total{exporter="192.0.2.1"}`:                                       strconv.Itoa(2 * len(expectedPayload)),
		`sent_messages_total{exporter="192.0.2.1"}`:                                    "2",
		`errors_total{error="kafka: Failed to produce message to topic flows: noooo"}`: "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}

func TestJSONPayload(t *testing.T) {
	flow := &schema.FlowEnvelope{
		TimeReceived:    time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
		ExporterAddress: netip.MustParseAddrPort("192.0.2.1:40000"),
		Header:          &schema.PacketHeader{Version: 5, Count: 1},
		Record: schema.FlowRecord{
			SrcAddr: netip.MustParseAddr("10.0.0.1"),
			DstAddr: netip.MustParseAddr("10.0.0.2"),
			NextHop: netip.MustParseAddr("0.0.0.0"),
			SrcAS:   65001,
		},
	}
	payload, err := json.Marshal(flow)
	if err != nil {
		t.Fatalf("json.Marshal() error:\n%+v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("json.Unmarshal() error:\n%+v", err)
	}
	record := got["record"].(map[string]any)
	header := got["header"].(map[string]any)
	gotSubset := map[string]any{
		"time-received":    got["time-received"],
		"exporter-address": got["exporter-address"],
		"version":          header["version"],
		"src-addr":         record["src-addr"],
		"next-hop":         record["next-hop"],
		"src-as":           record["src-as"],
	}
	expected := map[string]any{
		"time-received":    "2024-03-01T10:00:00Z",
		"exporter-address": "192.0.2.1:40000",
		"version":          5.,
		"src-addr":         "10.0.0.1",
		"next-hop":         "0.0.0.0",
		"src-as":           65001.,
	}
	if diff := helpers.Diff(gotSubset, expected); diff != "" {
		t.Fatalf("json.Marshal() (-got, +want):\n%s", diff)
	}
}

func TestKafkaMetrics(t *testing.T) {
	r := reporter.NewMock(t)
	p, err := DefaultConfiguration().New(r, provider.Dependencies{Daemon: daemon.NewMock(t)})
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	registry := p.(*Provider).kafkaConfig.MetricRegistry

	// Manually put some metrics
	gometrics.GetOrRegisterMeter("incoming-byte-rate-for-broker-1111", registry).
		Mark(100)
	gometrics.GetOrRegisterMeter("outgoing-byte-rate-for-broker-1111", registry).
		Mark(199)
	gometrics.GetOrRegisterHistogram("request-size-for-broker-1111", registry,
		gometrics.NewExpDecaySample(10, 1)).
		Update(100)
	gometrics.GetOrRegisterCounter("requests-in-flight-for-broker-1111", registry).
		Inc(20)
	gometrics.GetOrRegisterCounter("requests-in-flight-for-broker-1112", registry).
		Inc(10)

	gotMetrics := r.GetMetrics("nfcollector_inlet_sink_provider_kafka_", "brokers_")
	expectedMetrics := map[string]string{
		`brokers_incoming_byte_rate{broker="1111"}`:           "0",
		`brokers_outgoing_byte_rate{broker="1111"}`:           "0",
		`brokers_request_size{broker="1111",quantile="0.5"}`:  "100",
		`brokers_request_size{broker="1111",quantile="0.9"}`:  "100",
		`brokers_request_size{broker="1111",quantile="0.99"}`: "100",
		`brokers_request_size_count{broker="1111"}`:           "1",
		`brokers_request_size_sum{broker="1111"}`:             "100",
		`brokers_inflight_requests{broker="1111"}`:            "20",
		`brokers_inflight_requests{broker="1112"}`:            "10",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}
