// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/netip"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"nfcollector/common/daemon"
	"nfcollector/common/helpers"
	"nfcollector/common/reporter"
	"nfcollector/common/schema"
	"nfcollector/inlet/sink/provider"
)

func setupKafkaBroker(t *testing.T) (sarama.Client, []string) {
	broker := helpers.CheckExternalService(t, "Kafka", []string{"kafka:9092", "127.0.0.1:9092"})

	// Wait for broker to be ready
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_8_1_0
	saramaConfig.Net.DialTimeout = 1 * time.Second
	saramaConfig.Net.ReadTimeout = 1 * time.Second
	saramaConfig.Net.WriteTimeout = 1 * time.Second
	var client sarama.Client
	var err error
	for range 90 {
		client, err = sarama.NewClient([]string{broker}, saramaConfig)
		if err != nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if err = client.RefreshMetadata(); err != nil {
			client.Close()
			time.Sleep(100 * time.Millisecond)
			continue
		}
		break
	}
	if err != nil {
		t.Fatalf("broker is not ready:\n%+v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, []string{broker}
}

func TestRealKafka(t *testing.T) {
	client, brokers := setupKafkaBroker(t)

	topicName := fmt.Sprintf("test-topic-%d", rand.Int())
	configuration := DefaultConfiguration().(*Configuration)
	configuration.Topic = topicName
	configuration.Brokers = brokers
	configuration.FlushInterval = 100 * time.Millisecond
	r := reporter.NewMock(t)
	p, err := configuration.New(r, provider.Dependencies{Daemon: daemon.NewMock(t)})
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	helpers.StartStop(t, p)

	header := &schema.PacketHeader{Version: 5, Count: 2, FlowSequence: 18}
	flows := []*schema.FlowEnvelope{
		{
			TimeReceived:    time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
			ExporterAddress: netip.MustParseAddrPort("192.0.2.1:40000"),
			Header:          header,
			Record: schema.FlowRecord{
				SrcAddr: netip.MustParseAddr("10.0.0.1"),
				DstAddr: netip.MustParseAddr("10.0.0.2"),
				NextHop: netip.MustParseAddr("0.0.0.0"),
				Proto:   6,
				Octets:  1500,
			},
		}, {
			TimeReceived:    time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
			ExporterAddress: netip.MustParseAddrPort("192.0.2.1:40000"),
			Header:          header,
			Record: schema.FlowRecord{
				SrcAddr: netip.MustParseAddr("10.0.0.3"),
				DstAddr: netip.MustParseAddr("10.0.0.4"),
				NextHop: netip.MustParseAddr("0.0.0.0"),
				Proto:   17,
				Octets:  100,
			},
		},
	}
	p.Send(flows)

	// Try to consume the two messages
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		t.Fatalf("NewConsumerFromClient() error:\n%+v", err)
	}
	defer consumer.Close()
	var partitions []int32
	deadline := time.Now().Add(15 * time.Second)
	for {
		partitions, err = consumer.Partitions(topicName)
		if err != nil {
			if errors.Is(err, sarama.ErrUnknownTopicOrPartition) && time.Now().Before(deadline) {
				// Wait for topic to be available
				time.Sleep(100 * time.Millisecond)
				continue
			}
			t.Fatalf("Partitions() error:\n%+v", err)
		}
		break
	}
	partitionConsumer, err := consumer.ConsumePartition(topicName, partitions[0], sarama.OffsetOldest)
	if err != nil {
		t.Fatalf("ConsumePartition() error:\n%+v", err)
	}
	defer partitionConsumer.Close()

	got := []string{}
	timeout := time.After(15 * time.Second)
outer:
	for range flows {
		select {
		case msg := <-partitionConsumer.Messages():
			var flow schema.FlowEnvelope
			if err := json.Unmarshal(msg.Value, &flow); err != nil {
				t.Fatalf("json.Unmarshal() error:\n%+v", err)
			}
			got = append(got, fmt.Sprintf("%s:%s", string(msg.Key), flow.Record.SrcAddr))
		case err := <-partitionConsumer.Errors():
			t.Fatalf("consumer.Errors():\n%+v", err)
		case <-timeout:
			break outer
		}
	}
	expected := []string{
		"192.0.2.1:10.0.0.1",
		"192.0.2.1:10.0.0.3",
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Didn't receive the expected messages (-got, +want):\n%s", diff)
	}

	gotMetrics := r.GetMetrics("nfcollector_inlet_sink_provider_kafka_", "sent_messages")
	expectedMetrics := map[string]string{
		`sent_messages_total{exporter="192.0.2.1"}`: "2",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}
