// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package kafka

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	gometrics "github.com/rcrowley/go-metrics"

	"nfcollector/common/reporter"
)

// metrics exposes our own counters and the sarama metrics, kept by
// sarama in a go-metrics registry.
type metrics struct {
	p *Provider

	messagesSent *reporter.CounterVec
	bytesSent    *reporter.CounterVec
	errors       *reporter.CounterVec
	encodeErrors reporter.Counter

	brokerIncomingByteRate *reporter.MetricDesc
	brokerOutgoingByteRate *reporter.MetricDesc
	brokerRequestRate      *reporter.MetricDesc
	brokerRequestSize      *reporter.MetricDesc
	brokerRequestLatency   *reporter.MetricDesc
	brokerResponseRate     *reporter.MetricDesc
	brokerResponseSize     *reporter.MetricDesc
	brokerRequestsInFlight *reporter.MetricDesc
	producerBatchSize      *reporter.MetricDesc
	producerRecordSendRate *reporter.MetricDesc
	producerRecordsPerReq  *reporter.MetricDesc
	producerCompression    *reporter.MetricDesc
}

func (p *Provider) initMetrics() {
	p.metrics.p = p

	p.metrics.messagesSent = p.r.CounterVec(
		reporter.CounterOpts{
			Name: "sent_messages_total",
			Help: "Number of messages sent from a given exporter.",
		},
		[]string{"exporter"},
	)
	p.metrics.bytesSent = p.r.CounterVec(
		reporter.CounterOpts{
			Name: "sent_bytes_total",
			Help: "Number of bytes sent from a given exporter.",
		},
		[]string{"exporter"},
	)
	p.metrics.errors = p.r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "Number of errors when sending.",
		},
		[]string{"error"},
	)
	p.metrics.encodeErrors = p.r.Counter(
		reporter.CounterOpts{
			Name: "encode_errors_total",
			Help: "Number of flows which could not be encoded.",
		},
	)

	p.metrics.brokerIncomingByteRate = p.r.MetricDesc(
		"brokers_incoming_byte_rate",
		"Bytes/second read off a given broker.",
		[]string{"broker"})
	p.metrics.brokerOutgoingByteRate = p.r.MetricDesc(
		"brokers_outgoing_byte_rate",
		"Bytes/second written off a given broker.",
		[]string{"broker"})
	p.metrics.brokerRequestRate = p.r.MetricDesc(
		"brokers_request_rate",
		"Requests/second sent to a given broker.",
		[]string{"broker"})
	p.metrics.brokerRequestSize = p.r.MetricDesc(
		"brokers_request_size",
		"Distribution of the request size in bytes for a given broker.",
		[]string{"broker"})
	p.metrics.brokerRequestLatency = p.r.MetricDesc(
		"brokers_request_latency_ms",
		"Distribution of the request latency in ms for a given broker.",
		[]string{"broker"})
	p.metrics.brokerResponseRate = p.r.MetricDesc(
		"brokers_response_rate",
		"Responses/second received from a given broker.",
		[]string{"broker"})
	p.metrics.brokerResponseSize = p.r.MetricDesc(
		"brokers_response_bytes",
		"Distribution of the response size in bytes for a given broker.",
		[]string{"broker"})
	p.metrics.brokerRequestsInFlight = p.r.MetricDesc(
		"brokers_inflight_requests",
		"The current number of in-flight requests awaiting a response for a given broker.",
		[]string{"broker"})
	p.metrics.producerBatchSize = p.r.MetricDesc(
		"producer_batch_bytes",
		"Distribution of the number of bytes sent per partition per request.",
		nil)
	p.metrics.producerRecordSendRate = p.r.MetricDesc(
		"producer_record_send_rate",
		"Records/second sent.",
		nil)
	p.metrics.producerRecordsPerReq = p.r.MetricDesc(
		"producer_records_per_request",
		"Distribution of the number of records sent per request.",
		nil)
	p.metrics.producerCompression = p.r.MetricDesc(
		"producer_compression_ratio",
		"Distribution of the compression ratio times 100 of record batches.",
		nil)

	p.r.MetricCollector(p.metrics)
}

// Describe collected metrics
func (m metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.brokerIncomingByteRate
	ch <- m.brokerOutgoingByteRate
	ch <- m.brokerRequestRate
	ch <- m.brokerRequestSize
	ch <- m.brokerRequestLatency
	ch <- m.brokerResponseRate
	ch <- m.brokerResponseSize
	ch <- m.brokerRequestsInFlight
	ch <- m.producerBatchSize
	ch <- m.producerRecordSendRate
	ch <- m.producerRecordsPerReq
	ch <- m.producerCompression
}

// brokerMetrics maps a sarama per-broker metric prefix to its
// description and the way to export it.
func (m metrics) brokerMetrics() []struct {
	prefix string
	desc   *reporter.MetricDesc
	export func(chan<- prometheus.Metric, *reporter.MetricDesc, any, ...string)
} {
	return []struct {
		prefix string
		desc   *reporter.MetricDesc
		export func(chan<- prometheus.Metric, *reporter.MetricDesc, any, ...string)
	}{
		{"incoming-byte-rate", m.brokerIncomingByteRate, gomMeter},
		{"outgoing-byte-rate", m.brokerOutgoingByteRate, gomMeter},
		{"request-rate", m.brokerRequestRate, gomMeter},
		{"request-size", m.brokerRequestSize, gomHistogram},
		{"request-latency-in-ms", m.brokerRequestLatency, gomHistogram},
		{"response-rate", m.brokerResponseRate, gomMeter},
		{"response-size", m.brokerResponseSize, gomHistogram},
		{"requests-in-flight", m.brokerRequestsInFlight, gomCounter},
	}
}

// Collect metrics
func (m metrics) Collect(ch chan<- prometheus.Metric) {
	brokerMetrics := m.brokerMetrics()
	m.p.kafkaConfig.MetricRegistry.Each(func(name string, gom any) {
		for _, bm := range brokerMetrics {
			if broker := metricBroker(name, bm.prefix); broker != "" {
				bm.export(ch, bm.desc, gom, broker)
				return
			}
		}
		switch name {
		case "batch-size":
			gomHistogram(ch, m.producerBatchSize, gom)
		case "record-send-rate":
			gomMeter(ch, m.producerRecordSendRate, gom)
		case "records-per-request":
			gomHistogram(ch, m.producerRecordsPerReq, gom)
		case "compression-ratio":
			gomHistogram(ch, m.producerCompression, gom)
		}
	})
}

func metricBroker(name string, prefix string) string {
	prefix = prefix + "-for-broker-"
	if strings.HasPrefix(name, prefix) {
		return strings.TrimPrefix(name, prefix)
	}
	return ""
}

func gomCounter(ch chan<- prometheus.Metric, desc *reporter.MetricDesc, m any, labels ...string) {
	snap := m.(gometrics.Counter).Snapshot()
	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(snap.Count()), labels...)
}

func gomMeter(ch chan<- prometheus.Metric, desc *reporter.MetricDesc, m any, labels ...string) {
	snap := m.(gometrics.Meter).Snapshot()
	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, snap.Rate1(), labels...)
}

func gomHistogram(ch chan<- prometheus.Metric, desc *reporter.MetricDesc, m any, labels ...string) {
	snap := m.(gometrics.Histogram).Snapshot()
	quantiles := map[float64]float64{
		0.5:  snap.Percentile(0.5),
		0.9:  snap.Percentile(0.9),
		0.99: snap.Percentile(0.99),
	}
	ch <- prometheus.MustNewConstSummary(desc, uint64(snap.Count()), float64(snap.Sum()), quantiles, labels...)
}
