// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package kafka is a sink provider sending flows to Kafka, JSON-encoded
// and keyed by exporter.
package kafka

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"golang.org/x/time/rate"
	"gopkg.in/tomb.v2"

	"nfcollector/common/reporter"
	"nfcollector/common/schema"
	"nfcollector/inlet/sink/provider"
)

// Provider represents the Kafka provider.
type Provider struct {
	r      *reporter.Reporter
	d      *provider.Dependencies
	t      tomb.Tomb
	config *Configuration

	kafkaConfig         *sarama.Config
	kafkaProducer       sarama.AsyncProducer
	createKafkaProducer func() (sarama.AsyncProducer, error)
	metrics             metrics
}

// New creates a new Kafka provider.
func (configuration *Configuration) New(r *reporter.Reporter, dependencies provider.Dependencies) (provider.Provider, error) {
	// Build Kafka configuration
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Version = sarama.KafkaVersion(configuration.Version)
	kafkaConfig.ClientID = "nfcollector"
	kafkaConfig.Metadata.AllowAutoTopicCreation = true
	kafkaConfig.ChannelBufferSize = configuration.QueueSize
	kafkaConfig.Producer.MaxMessageBytes = configuration.MaxMessageBytes
	kafkaConfig.Producer.Compression = sarama.CompressionCodec(configuration.CompressionCodec)
	kafkaConfig.Producer.Return.Successes = false
	kafkaConfig.Producer.Return.Errors = true
	kafkaConfig.Producer.Flush.Bytes = configuration.FlushBytes
	kafkaConfig.Producer.Flush.Frequency = configuration.FlushInterval
	kafkaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	if err := kafkaConfig.Validate(); err != nil {
		return nil, fmt.Errorf("cannot validate Kafka configuration: %w", err)
	}

	p := Provider{
		r:           r,
		d:           &dependencies,
		config:      configuration,
		kafkaConfig: kafkaConfig,
	}
	p.initMetrics()
	p.createKafkaProducer = func() (sarama.AsyncProducer, error) {
		return sarama.NewAsyncProducer(p.config.Brokers, p.kafkaConfig)
	}
	p.d.Daemon.Track(&p.t, "inlet/sink/provider/kafka")
	return &p, nil
}

// Start starts the Kafka provider.
func (p *Provider) Start() error {
	p.r.Info().Msg("starting Kafka provider")
	globalKafkaLogger.r.Store(p.r)

	// Create producer
	kafkaProducer, err := p.createKafkaProducer()
	if err != nil {
		p.r.Err(err).
			Str("brokers", strings.Join(p.config.Brokers, ",")).
			Msg("unable to create async producer")
		return fmt.Errorf("unable to create Kafka async producer: %w", err)
	}
	p.kafkaProducer = kafkaProducer

	// Error loop
	p.t.Go(func() error {
		defer kafkaProducer.Close()
		errLimiter := rate.NewLimiter(rate.Every(10*time.Second), 3)
		for {
			select {
			case <-p.t.Dying():
				p.r.Debug().Msg("stop error logger")
				return nil
			case msg := <-kafkaProducer.Errors():
				if msg == nil {
					continue
				}
				p.metrics.errors.WithLabelValues(msg.Error()).Inc()
				if errLimiter.Allow() {
					p.r.Err(msg.Err).
						Str("topic", msg.Msg.Topic).
						Int64("offset", msg.Msg.Offset).
						Int32("partition", msg.Msg.Partition).
						Msg("Kafka producer error")
				}
			}
		}
	})
	return nil
}

// Stop stops the Kafka provider
func (p *Provider) Stop() error {
	defer globalKafkaLogger.r.Store(nil)
	p.r.Info().Msg("stopping Kafka provider")
	defer p.r.Info().Msg("Kafka provider stopped")
	p.t.Kill(nil)
	return p.t.Wait()
}

// Send encodes each flow as JSON and sends it to Kafka with the
// exporter IP as key.
func (p *Provider) Send(flows []*schema.FlowEnvelope) {
	for _, flow := range flows {
		payload, err := json.Marshal(flow)
		if err != nil {
			p.metrics.encodeErrors.Inc()
			continue
		}
		exporter := flow.ExporterAddress.Addr().Unmap().String()
		p.metrics.bytesSent.WithLabelValues(exporter).Add(float64(len(payload)))
		p.metrics.messagesSent.WithLabelValues(exporter).Inc()
		select {
		case p.kafkaProducer.Input() <- &sarama.ProducerMessage{
			Topic: p.config.Topic,
			Key:   sarama.StringEncoder(exporter),
			Value: sarama.ByteEncoder(payload),
		}:
		case <-p.t.Dying():
			return
		}
	}
}
