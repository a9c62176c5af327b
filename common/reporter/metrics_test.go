// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package reporter_test

import (
	"testing"

	"nfcollector/common/helpers"
	"nfcollector/common/reporter"
)

func TestMetrics(t *testing.T) {
	r := reporter.NewMock(t)
	counter := r.CounterVec(reporter.CounterOpts{
		Name: "packets_total",
		Help: "Some counter",
	}, []string{"exporter"})
	counter.WithLabelValues("192.0.2.1").Add(3)
	counter.WithLabelValues("192.0.2.2").Inc()
	r.Gauge(reporter.GaugeOpts{
		Name: "queue_length",
		Help: "Some gauge",
	}).Set(7)

	gotMetrics := r.GetMetrics("nfcollector_common_reporter_test_")
	expectedMetrics := map[string]string{
		`packets_total{exporter="192.0.2.1"}`: "3",
		`packets_total{exporter="192.0.2.2"}`: "1",
		`queue_length`:                        "7",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}

	gotMetrics = r.GetMetrics("nfcollector_common_reporter_test_", "queue")
	expectedMetrics = map[string]string{
		`queue_length`: "7",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics subset (-got, +want):\n%s", diff)
	}
}
