// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"nfcollector/common/daemon"
	"nfcollector/common/helpers"
	"nfcollector/common/reporter"
	"nfcollector/inlet/sink/provider"
)

// NewMock creates a new Kafka provider with a mocked Kafka producer.
// It is autostarted.
func NewMock(t *testing.T, r *reporter.Reporter, configuration *Configuration) (*Provider, *mocks.AsyncProducer) {
	t.Helper()
	p, err := configuration.New(r, provider.Dependencies{Daemon: daemon.NewMock(t)})
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	kp := p.(*Provider)

	// Use a mocked Kafka producer
	var mockProducer *mocks.AsyncProducer
	kp.createKafkaProducer = func() (sarama.AsyncProducer, error) {
		mockProducer = mocks.NewAsyncProducer(t, kp.kafkaConfig)
		return mockProducer, nil
	}
	helpers.StartStop(t, kp)
	return kp, mockProducer
}
