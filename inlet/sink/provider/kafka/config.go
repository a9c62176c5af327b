// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"nfcollector/inlet/sink/provider"
)

// Configuration describes the configuration for the Kafka provider.
type Configuration struct {
	// Topic defines the topic to write flows to.
	Topic string `validate:"required"`
	// Brokers is the list of brokers to connect to.
	Brokers []string `validate:"min=1,dive,listen"`
	// Version is the version of Kafka we assume to work
	Version Version
	// FlushInterval tells how often to flush pending data to Kafka.
	FlushInterval time.Duration `validate:"min=100ms"`
	// FlushBytes tells to flush when there are many bytes to write
	FlushBytes int `validate:"min=1000"`
	// MaxMessageBytes is the maximum permitted size of a message.
	// Should be set equal or smaller than broker's
	// `message.max.bytes`.
	MaxMessageBytes int `validate:"min=1"`
	// CompressionCodec defines the compression to use.
	CompressionCodec CompressionCodec
	// QueueSize defines the size of the channel used to send to
	// Kafka.
	QueueSize int `validate:"min=1"`
}

// DefaultConfiguration represents the default configuration for the Kafka provider.
func DefaultConfiguration() provider.Configuration {
	return &Configuration{
		Topic:            "flows",
		Brokers:          []string{"127.0.0.1:9092"},
		Version:          Version(sarama.V2_8_1_0),
		FlushInterval:    time.Second,
		FlushBytes:       int(sarama.MaxRequestSize) - 1,
		MaxMessageBytes:  1000000,
		CompressionCodec: CompressionCodec(sarama.CompressionNone),
		QueueSize:        32,
	}
}

// Version represents a supported version of Kafka
type Version sarama.KafkaVersion

// UnmarshalText parses a version of Kafka
func (v *Version) UnmarshalText(text []byte) error {
	version, err := sarama.ParseKafkaVersion(string(text))
	if err != nil {
		return err
	}
	*v = Version(version)
	return nil
}

// String turns a Kafka version into a string
func (v Version) String() string {
	return sarama.KafkaVersion(v).String()
}

// MarshalText turns a Kafka version into a string
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// CompressionCodec represents a compression codec.
type CompressionCodec sarama.CompressionCodec

var compressionCodecs = map[string]sarama.CompressionCodec{
	"none":   sarama.CompressionNone,
	"gzip":   sarama.CompressionGZIP,
	"snappy": sarama.CompressionSnappy,
	"lz4":    sarama.CompressionLZ4,
	"zstd":   sarama.CompressionZSTD,
}

// UnmarshalText produces a compression codec
func (c *CompressionCodec) UnmarshalText(text []byte) error {
	codec, ok := compressionCodecs[string(text)]
	if !ok {
		return fmt.Errorf("cannot parse %q as a compression codec", string(text))
	}
	*c = CompressionCodec(codec)
	return nil
}

// String turns a compression codec into a string
func (c CompressionCodec) String() string {
	for name, codec := range compressionCodecs {
		if codec == sarama.CompressionCodec(c) {
			return name
		}
	}
	return "unknown"
}

// MarshalText turns a compression codec into a string
func (c CompressionCodec) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
