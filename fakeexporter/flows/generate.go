// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flows

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"net/netip"
	"time"

	"nfcollector/common/constants"
	"nfcollector/common/schema"
)

const (
	ephemeralPortBase  = 33000
	ephemeralPortRange = 2000
	maxFlowDurationMS  = 1000
)

// rateToCount converts a per-second rate to the number of items to
// produce during the second starting at now. Over many seconds, the
// sum matches the rate even when it is fractional.
func rateToCount(rate float64, now time.Time) int {
	elapsed := float64(now.Unix() - now.Truncate(360*24*time.Hour).Unix())
	return int(math.Trunc((elapsed+1)*rate) - math.Trunc(elapsed*rate))
}

// randomIP returns a random IPv4 address inside prefix.
func randomIP(prefix netip.Prefix, r *rand.Rand) netip.Addr {
	base := prefix.Masked().Addr().As4()
	hostMask := uint32(math.MaxUint32) >> prefix.Bits()
	value := binary.BigEndian.Uint32(base[:]) | r.Uint32()&hostMask
	var result [4]byte
	binary.BigEndian.PutUint32(result[:], value)
	return netip.AddrFrom4(result)
}

// peakHourDistance returns how close now (time of day) is from the
// peak hour: 1 at the peak, 0 twelve hours away.
func peakHourDistance(now, peak time.Duration) float64 {
	delta := math.Mod(math.Abs((now - peak).Hours()), 24)
	delta = min(delta, 24-delta)
	return (12 - delta) / 12
}

// chooseRandom returns a random element of slice, or the zero value
// when it is empty.
func chooseRandom[T any](r *rand.Rand, slice []T) T {
	switch len(slice) {
	case 0:
		var zero T
		return zero
	case 1:
		return slice[0]
	default:
		return slice[r.Intn(len(slice))]
	}
}

// rate returns the number of flows per second for the provided time
// of day, once the peak hour multiplier is applied.
func (fc FlowConfiguration) rate(timeOfDay time.Duration) float64 {
	if fc.Multiplier <= 0 {
		return fc.PerSecond
	}
	distance := peakHourDistance(timeOfDay, fc.PeakHour)
	square := distance * distance
	return fc.PerSecond * (1 + (fc.Multiplier-1)*square/(2*(square-distance)+1))
}

// octets returns a random flow size. Without a configured size, it is
// uniform between 300 and 1499. Otherwise, it follows a normal
// distribution around the size, capped to the MTU it fits in.
func (fc FlowConfiguration) octets(r *rand.Rand) uint32 {
	if fc.Size == 0 {
		return uint32(300 + r.Int31n(1200))
	}
	size := max(float64(fc.Size)*(1+0.3*r.NormFloat64()), 64)
	limit := 9000.
	if fc.Size <= 1500 {
		limit = 1500
	}
	return uint32(min(size, limit))
}

// port returns one of the configured ports or a random ephemeral one.
func port(r *rand.Rand, ports []uint16) uint16 {
	if p := chooseRandom(r, ports); p != 0 {
		return p
	}
	return uint16(ephemeralPortBase + r.Int31n(ephemeralPortRange))
}

// flow builds one random flow record. Timestamps are relative to
// uptime (in milliseconds).
func (fc FlowConfiguration) flow(r *rand.Rand, uptime uint32) schema.FlowRecord {
	flow := schema.FlowRecord{
		SrcAddr: randomIP(fc.SrcNet, r),
		DstAddr: randomIP(fc.DstNet, r),
		NextHop: netip.AddrFrom4([4]byte{}),
		InIf:    chooseRandom(r, fc.InIfIndex),
		OutIf:   chooseRandom(r, fc.OutIfIndex),
		Packets: 1,
		Octets:  fc.octets(r),
		Last:    uptime,
		SrcAS:   chooseRandom(r, fc.SrcAS),
		DstAS:   chooseRandom(r, fc.DstAS),
		SrcMask: uint8(fc.SrcNet.Bits()),
		DstMask: uint8(fc.DstNet.Bits()),
	}
	flow.First = uptime - min(uint32(r.Int31n(maxFlowDurationMS)), uptime)
	flow.Proto, _ = constants.ProtocolNumber(chooseRandom(r, fc.Protocol))
	switch flow.Proto {
	case constants.ProtoTCP:
		flow.TCPFlags = 0x18 // PSH+ACK
		fallthrough
	case constants.ProtoUDP:
		flow.SrcPort = port(r, fc.SrcPort)
		flow.DstPort = port(r, fc.DstPort)
	}
	return flow
}

// generateFlows returns one second worth of flows for the provided
// time. The result only depends on the configuration, the seed, the
// time truncated to the second and the uptime.
func generateFlows(flowConfigs []FlowConfiguration, seed int64, now time.Time, uptime uint32) []schema.FlowRecord {
	now = now.Truncate(time.Second)
	hash := fnv.New64()
	fmt.Fprintf(hash, "%d %d", now.Unix(), seed)
	r := rand.New(rand.NewSource(int64(hash.Sum64())))

	timeOfDay := now.Sub(now.Truncate(24 * time.Hour))
	flows := []schema.FlowRecord{}
	for _, fc := range flowConfigs {
		// ±10% jitter
		count := rateToCount(fc.rate(timeOfDay)*(0.9+r.Float64()/5), now)
		for range count {
			flows = append(flows, fc.flow(r, uptime))
		}
	}
	return flows
}
