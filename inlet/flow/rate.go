// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flow

import (
	"net/netip"

	"golang.org/x/time/rate"

	"nfcollector/common/schema"
)

// allowFlows returns the flows which can be transmitted, depending on
// the rate limiter configuration. Flows come from one datagram, so
// they share the same exporter.
func (c *Component) allowFlows(exporter netip.Addr, flows []*schema.FlowEnvelope) []*schema.FlowEnvelope {
	count := len(flows)
	if c.config.RateLimit == 0 || count == 0 {
		return flows
	}

	c.limitersLock.Lock()
	exporterLimiter, ok := c.limiters[exporter]
	if !ok {
		burst := max(int(c.config.RateLimit/10), 1)
		exporterLimiter = rate.NewLimiter(c.config.RateLimit, burst)
		c.limiters[exporter] = exporterLimiter
	}
	c.limitersLock.Unlock()

	now := c.d.Clock.Now()
	allowed := 0
	for allowed < count && exporterLimiter.AllowN(now, 1) {
		allowed++
	}
	if allowed < count {
		c.metrics.rateLimited.WithLabelValues(exporter.String()).
			Add(float64(count - allowed))
	}
	return flows[:allowed]
}
