// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

// Package helpers contains small functions usable by any other
// package, both for testing or not.
package helpers

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// functionalTestsEnv forces tests against external services to run.
const functionalTestsEnv = "NFCOLLECTOR_FUNCTIONAL_TESTS"

// CheckExternalService returns the first candidate address (host:port)
// where the named service (like Kafka) accepts TCP connections. The
// test is skipped if there is none, or fails when functionalTestsEnv
// is set.
func CheckExternalService(t *testing.T, name string, candidates []string) string {
	t.Helper()
	if testing.Short() {
		t.Skipf("Skip test with real %s in short mode", name)
	}
	unavailable := t.Skipf
	if os.Getenv(functionalTestsEnv) != "" {
		unavailable = t.Fatalf
	}

	server := firstResolvable(t, candidates)
	if server == "" {
		unavailable("%s cannot be resolved (%s=%q)", name, functionalTestsEnv, os.Getenv(functionalTestsEnv))
		return ""
	}
	if err := waitForTCP(server, time.Second); err != nil {
		unavailable("%s is not running: %v", name, err)
		return ""
	}
	return server
}

func firstResolvable(t *testing.T, candidates []string) string {
	t.Helper()
	resolver := net.Resolver{PreferGo: true}
	for _, candidate := range candidates {
		host, _, err := net.SplitHostPort(candidate)
		if err != nil {
			t.Fatalf("%s is an invalid candidate", candidate)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		_, err = resolver.LookupHost(ctx, host)
		cancel()
		if err == nil {
			return candidate
		}
	}
	return ""
}

// waitForTCP dials address until it succeeds or the timeout expires.
func waitForTCP(address string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "tcp", address)
		if err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// StartStop starts a component and registers its stop as a test
// cleanup. Components without Start or Stop are accepted.
func StartStop(t *testing.T, component any) {
	t.Helper()
	if c, ok := component.(interface{ Start() error }); ok {
		if err := c.Start(); err != nil {
			t.Fatalf("Start() error:\n%+v", err)
		}
	}
	if c, ok := component.(interface{ Stop() error }); ok {
		t.Cleanup(func() {
			if err := c.Stop(); err != nil {
				t.Errorf("Stop() error:\n%+v", err)
			}
		})
	}
}

// Pos is the position of a test case in a source file.
type Pos string

// Mark returns the position of its caller, to be used as a test case
// prefix in error messages.
func Mark() Pos {
	_, file, line, _ := runtime.Caller(1)
	return Pos(fmt.Sprintf("%s:%d: ", filepath.Base(file), line))
}
