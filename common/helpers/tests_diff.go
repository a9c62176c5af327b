// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package helpers

import (
	"net/netip"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// defaultDiffOptions lets netip values and wrapped errors be compared.
var defaultDiffOptions = cmp.Options{
	cmpopts.EquateComparable(netip.Addr{}, netip.AddrPort{}, netip.Prefix{}),
	cmpopts.EquateErrors(),
}

// Diff returns a human-readable diff between got and want, or an empty
// string when they are equal.
func Diff(got, want any, options ...cmp.Option) string {
	return cmp.Diff(got, want, append(options, defaultDiffOptions)...)
}
