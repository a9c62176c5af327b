// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flows

import (
	"fmt"
	"math"
	"math/rand"
	"net/netip"
	"slices"
	"testing"
	"time"

	"nfcollector/common/helpers"
)

func TestRateToCount(t *testing.T) {
	rates := []float64{0.2, 0.4, 0.6, 1, 1.4, 2.3, 2.8, 3, 3.2, 4.7, 1200}
	now := time.Now().Truncate(time.Second)
	for _, rate := range rates {
		result := 0
		for range 1000 {
			result += rateToCount(rate, now)
			now = now.Add(time.Second)
		}
		computedRate := float64(result) / 1000
		if math.Abs(rate-computedRate) > rate*0.01 {
			t.Errorf("rateToCount(%f) was %f on average", rate, computedRate)
		}
	}
}

func TestRandomIP(t *testing.T) {
	prefixes := []string{
		"192.168.0.0/24",
		"192.168.0.0/16",
		"172.16.0.0/12",
		"192.168.14.1/32",
		"0.0.0.0/0",
	}
	r := rand.New(rand.NewSource(0))
	for _, p := range prefixes {
		prefix := netip.MustParsePrefix(p)
		for range 1000 {
			ip := randomIP(prefix, r)
			if !prefix.Contains(ip) {
				t.Errorf("randomIP(%q) == %q not in prefix", p, ip)
				break
			}
		}
	}
}

func TestPeakHourDistance(t *testing.T) {
	cases := []struct {
		Pos      helpers.Pos
		Peak     time.Duration
		Now      time.Duration
		Expected float64
	}{
		{helpers.Mark(), 6 * time.Hour, 6 * time.Hour, 1},
		{helpers.Mark(), 6 * time.Hour, 0, 0.5},
		{helpers.Mark(), 6 * time.Hour, 18 * time.Hour, 0},
		{helpers.Mark(), 12 * time.Hour, 13 * time.Hour, 11. / 12},
		{helpers.Mark(), 12 * time.Hour, 11 * time.Hour, 11. / 12},
		{helpers.Mark(), 12 * time.Hour, 16 * time.Hour, 8. / 12},
		{helpers.Mark(), 12 * time.Hour, 19 * time.Hour, 5. / 12},
	}
	for _, tc := range cases {
		got := peakHourDistance(tc.Now, tc.Peak)
		if math.Abs(got-tc.Expected) > tc.Expected*0.01 {
			t.Errorf("%speakHourDistance(%s, %s) == %f, expected %f",
				tc.Pos, tc.Peak, tc.Now, got, tc.Expected)
		}
	}
}

func TestChooseRandom(t *testing.T) {
	cases := [][]int{
		nil,
		{},
		{6},
		{1, 2, 3, 4, 10, 12},
	}
	r := rand.New(rand.NewSource(0))
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v", tc), func(t *testing.T) {
			results := map[int]bool{}
			for range 100 {
				result := chooseRandom(r, tc)
				results[result] = true
				if len(tc) == 0 {
					if result != 0 {
						t.Fatalf("chooseRandom() == %d instead of 0", result)
					}
					break
				}
				if !slices.Contains(tc, result) {
					t.Fatalf("chooseRandom() returned %d, not in slice", result)
				}
			}
			if len(tc) != 0 && len(results) != len(tc) {
				t.Fatalf("chooseRandom() did not explore all results (only %d)",
					len(results))
			}
		})
	}
}

func TestGenerateFlows(t *testing.T) {
	config := []FlowConfiguration{
		{
			PerSecond:  20,
			InIfIndex:  []uint16{10},
			OutIfIndex: []uint16{20, 21},
			SrcNet:     netip.MustParsePrefix("192.0.2.0/24"),
			DstNet:     netip.MustParsePrefix("203.0.113.0/24"),
			SrcAS:      []uint32{65201},
			DstAS:      []uint32{65202},
			SrcPort:    []uint16{443},
			Protocol:   []string{"tcp"},
			Size:       1400,
		}, {
			PerSecond:  10,
			InIfIndex:  []uint16{30},
			OutIfIndex: []uint16{40},
			SrcNet:     netip.MustParsePrefix("198.51.100.0/28"),
			DstNet:     netip.MustParsePrefix("192.0.2.1/32"),
			SrcAS:      []uint32{65203},
			DstAS:      []uint32{65201},
			Protocol:   []string{"icmp"},
		},
	}
	now := time.Date(2022, 3, 18, 15, 0, 0, 0, time.UTC)
	got := generateFlows(config, 0, now, 5000)

	t.Run("deterministic", func(t *testing.T) {
		again := generateFlows(config, 0, now.Add(300*time.Millisecond), 5000)
		if diff := helpers.Diff(got, again); diff != "" {
			t.Fatalf("generateFlows() (-got, +want):\n%s", diff)
		}
		other := generateFlows(config, 1, now, 5000)
		if helpers.Diff(got, other) == "" {
			t.Fatal("generateFlows() with another seed produced the same flows")
		}
	})

	t.Run("rate", func(t *testing.T) {
		// Each template rate is jittered by ±10%.
		if len(got) < 24 || len(got) > 36 {
			t.Fatalf("generateFlows() produced %d flows, expected about 30", len(got))
		}
	})

	t.Run("content", func(t *testing.T) {
		tcp, icmp := 0, 0
		for _, flow := range got {
			if flow.Packets != 1 || flow.Last != 5000 || flow.First > flow.Last || flow.Last-flow.First >= 1000 {
				t.Errorf("generateFlows() unexpected counters/times: %+v", flow)
			}
			switch flow.Proto {
			case 6:
				tcp++
				if !config[0].SrcNet.Contains(flow.SrcAddr) || !config[0].DstNet.Contains(flow.DstAddr) {
					t.Errorf("generateFlows() TCP flow outside prefixes: %+v", flow)
				}
				if flow.SrcPort != 443 || flow.DstPort < 33000 || flow.DstPort >= 35000 {
					t.Errorf("generateFlows() TCP flow with unexpected ports: %+v", flow)
				}
				if flow.SrcMask != 24 || flow.DstMask != 24 || flow.InIf != 10 {
					t.Errorf("generateFlows() TCP flow with unexpected fields: %+v", flow)
				}
				if flow.OutIf != 20 && flow.OutIf != 21 {
					t.Errorf("generateFlows() TCP flow with unexpected output interface: %+v", flow)
				}
				if flow.Octets < 64 || flow.Octets > 1500 {
					t.Errorf("generateFlows() TCP flow with unexpected size: %+v", flow)
				}
			case 1:
				icmp++
				if !config[1].SrcNet.Contains(flow.SrcAddr) || flow.DstAddr != netip.MustParseAddr("192.0.2.1") {
					t.Errorf("generateFlows() ICMP flow outside prefixes: %+v", flow)
				}
				if flow.SrcPort != 0 || flow.DstPort != 0 || flow.TCPFlags != 0 {
					t.Errorf("generateFlows() ICMP flow with ports: %+v", flow)
				}
				if flow.Octets < 300 || flow.Octets >= 1500 {
					t.Errorf("generateFlows() ICMP flow with unexpected size: %+v", flow)
				}
			default:
				t.Errorf("generateFlows() unexpected protocol: %+v", flow)
			}
		}
		if tcp == 0 || icmp == 0 {
			t.Errorf("generateFlows() produced %d TCP and %d ICMP flows", tcp, icmp)
		}
	})
}
