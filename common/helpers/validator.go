// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package helpers

import (
	"net"
	"net/netip"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Validate is a validator instance to be used everywhere.
var Validate *validator.Validate

// isListen validates a <host>:<port> combination for fields used as a
// listening address. The host may be empty, an IP address or a DNS name.
func isListen(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	if portNum, err := strconv.ParseUint(port, 10, 16); err != nil || portNum > 65535 {
		return false
	}
	if host == "" {
		return true
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return true
	}
	return Validate.Var(host, "hostname_rfc1123") == nil
}

func init() {
	Validate = validator.New()
	Validate.RegisterValidation("listen", isListen)
}
