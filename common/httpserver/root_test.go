// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package httpserver_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"nfcollector/common/helpers"
	"nfcollector/common/httpserver"
	"nfcollector/common/reporter"
)

func get(t *testing.T, h *httpserver.Component, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://%s%s", h.LocalAddr(), path))
	if err != nil {
		t.Fatalf("GET %s error:\n%+v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("GET %s: cannot read body:\n%+v", path, err)
	}
	return resp.StatusCode, string(body)
}

func TestHandler(t *testing.T) {
	r := reporter.NewMock(t)
	h := httpserver.NewMock(t, r)

	h.AddHandler("/test",
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprintf(w, "Hello !")
		}))

	status, body := get(t, h, "/test")
	if status != http.StatusOK || body != "Hello !" {
		t.Fatalf("GET /test: got %d %q", status, body)
	}

	gotMetrics := r.GetMetrics("nfcollector_common_httpserver_",
		"inflight_", "requests_total", "response_size")
	expectedMetrics := map[string]string{
		`inflight_requests`: "0",
		`requests_total{code="200",handler="/test",method="get"}`:            "1",
		`response_size_bytes_bucket{handler="/test",method="get",le="+Inf"}`: "1",
		`response_size_bytes_bucket{handler="/test",method="get",le="1000"}`: "1",
		`response_size_bytes_bucket{handler="/test",method="get",le="1500"}`: "1",
		`response_size_bytes_bucket{handler="/test",method="get",le="200"}`:  "1",
		`response_size_bytes_bucket{handler="/test",method="get",le="500"}`:  "1",
		`response_size_bytes_bucket{handler="/test",method="get",le="5000"}`: "1",
		`response_size_bytes_count{handler="/test",method="get"}`:            "1",
		`response_size_bytes_sum{handler="/test",method="get"}`:              "7",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}

func TestHealthcheck(t *testing.T) {
	r := reporter.NewMock(t)
	h := httpserver.NewMock(t, r)

	status, body := get(t, h, "/api/v0/healthcheck")
	if status != http.StatusOK {
		t.Fatalf("GET /api/v0/healthcheck: got %d %q", status, body)
	}

	r.RegisterHealthcheck("broken", func(context.Context) reporter.HealthcheckResult {
		return reporter.HealthcheckResult{Status: reporter.HealthcheckError, Reason: "down"}
	})
	status, body = get(t, h, "/api/v0/healthcheck")
	if status != http.StatusServiceUnavailable {
		t.Fatalf("GET /api/v0/healthcheck: got %d %q", status, body)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("json.Unmarshal() error:\n%+v", err)
	}
	expected := map[string]any{
		"status": "error",
		"details": map[string]any{
			"broken": map[string]any{"status": "error", "reason": "down"},
		},
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("GET /api/v0/healthcheck (-got, +want):\n%s", diff)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := reporter.NewMock(t)
	h := httpserver.NewMock(t, r)

	status, body := get(t, h, "/api/v0/metrics")
	if status != http.StatusOK {
		t.Fatalf("GET /api/v0/metrics: got %d", status)
	}
	if len(body) == 0 {
		t.Fatal("GET /api/v0/metrics: empty body")
	}
}
