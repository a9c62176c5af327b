// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"nfcollector/common/helpers"
	"nfcollector/common/reporter"
)

func TestFakeExporterStart(t *testing.T) {
	r := reporter.NewMock(t)
	config := FakeExporterConfiguration{}
	config.Reset()
	if err := fakeExporterStart(r, config, true); err != nil {
		t.Fatalf("fakeExporterStart() error:\n%+v", err)
	}
}

const fakeExporterConfig = `---
flows:
  target: 127.0.0.1:2055
  engine-id: 4
  flows:
    - per-second: 10
      in-if-index: [10]
      out-if-index: [20]
      src-net: %s
      dst-net: 203.0.113.0/24
      src-as: [65001]
      dst-as: [65002]
      protocol: [tcp, udp]
`

func runFakeExporterCheck(t *testing.T, srcNet string) (*bytes.Buffer, error) {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(fmt.Sprintf(fakeExporterConfig, srcNet))
	if err := os.WriteFile(configFile, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error:\n%+v", err)
	}
	t.Cleanup(func() {
		FakeExporterOptions = serviceOptions{}
	})
	buf := new(bytes.Buffer)
	RootCmd.SetOut(buf)
	RootCmd.SetArgs([]string{"fake-exporter", "--check", "--dump", configFile})
	return buf, RootCmd.Execute()
}

func TestFakeExporterCheckAndDump(t *testing.T) {
	buf, err := runFakeExporterCheck(t, "192.0.2.0/24")
	if err != nil {
		t.Fatalf("`fake-exporter` error:\n%+v", err)
	}
	var got struct {
		HTTP  map[string]any
		Flows map[string]any
	}
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("yaml.Unmarshal() error:\n%+v", err)
	}
	gotSubset := map[string]any{
		"listen":       got.HTTP["listen"],
		"target":       got.Flows["target"],
		"engineid":     got.Flows["engineid"],
		"samplingrate": got.Flows["samplingrate"],
	}
	expected := map[string]any{
		"listen":       "0.0.0.0:8081",
		"target":       "127.0.0.1:2055",
		"engineid":     4,
		"samplingrate": 1000,
	}
	if diff := helpers.Diff(gotSubset, expected); diff != "" {
		t.Fatalf("`fake-exporter --dump` (-got, +want):\n%s", diff)
	}
}

func TestFakeExporterRejectsIPv6(t *testing.T) {
	if _, err := runFakeExporterCheck(t, "2001:db8::/64"); err == nil {
		t.Fatal("`fake-exporter` did not error with an IPv6 network")
	}
}
