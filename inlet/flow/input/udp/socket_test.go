// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package udp

import (
	"context"
	"errors"
	"net"
	"os"
	"runtime"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"nfcollector/common/helpers"
	"nfcollector/common/reporter"
)

func TestParseSocketControlMessage(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("Skip Linux-only test")
	}
	r := reporter.NewMock(t)
	server, err := listenConfig(r, udpSocketOptions).
		ListenPacket(context.Background(), "udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error:\n%+v", err)
	}
	defer server.Close()

	client, err := net.Dial("udp", server.(*net.UDPConn).LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial() error:\n%+v", err)
	}
	defer client.Close()

	overflow := false
outer:
	for _, count := range []int{100, 1000, 10_000, 100_000, 1_000_000} {
		// Write a lot of messages to have some overflow.
		for range count {
			client.Write([]byte("hello"))
		}

		// Empty the queue
		payload := make([]byte, 1000)
		server.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		for range count {
			_, _, err := server.ReadFrom(payload)
			if errors.Is(err, os.ErrDeadlineExceeded) {
				overflow = true
				break outer
			}
		}
	}
	if !overflow {
		t.Fatalf("unable to trigger an overflow")
	}

	// Write one extra message
	server.SetReadDeadline(time.Time{})
	if _, err := client.Write([]byte("bye bye")); err != nil {
		t.Fatalf("Write() error:\n%+v", err)
	}

	// Read it
	payload := make([]byte, 1000)
	oob := make([]byte, oobLength)
	n, oobn, _, _, err := server.(*net.UDPConn).ReadMsgUDP(payload, oob)
	if err != nil {
		t.Fatalf("ReadMsgUDP() error:\n%+v", err)
	}
	if diff := helpers.Diff(string(payload[:n]), "bye bye"); diff != "" {
		t.Errorf("ReadMsgUDP() (-got, +want):\n%s", diff)
	}

	oobMsg, err := parseSocketControlMessage(oob[:oobn])
	if err != nil {
		t.Fatalf("parseSocketControlMessage() error:\n%+v", err)
	}
	if oobMsg.Drops == 0 || oobMsg.Drops > 1_000_000 {
		t.Fatalf("parseSocketControlMessage() drops = %d, expected 1..1000000", oobMsg.Drops)
	}
}

func TestListenConfig(t *testing.T) {
	r := reporter.NewMock(t)
	reuseAddr := socketOption{Name: "SO_REUSEADDR", Level: unix.SOL_SOCKET, Option: unix.SO_REUSEADDR}
	unknown := socketOption{Name: "SO_UNKNOWN", Level: unix.SOL_SOCKET, Option: 9999}
	mandatory := func(opt socketOption) socketOption {
		opt.Mandatory = true
		return opt
	}

	cases := []struct {
		description string
		options     []socketOption
		error       bool
	}{
		{"no option", nil, false},
		{"mandatory option", []socketOption{mandatory(reuseAddr)}, false},
		{"optional unknown option", []socketOption{reuseAddr, unknown}, false},
		{"mandatory unknown option", []socketOption{reuseAddr, mandatory(unknown)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			conn, err := listenConfig(r, tc.options).
				ListenPacket(t.Context(), "udp", "127.0.0.1:0")
			if err == nil {
				conn.Close()
			}
			if tc.error && err == nil {
				t.Fatal("ListenPacket() did not error")
			}
			if !tc.error && err != nil {
				t.Fatalf("ListenPacket() error:\n%+v", err)
			}
		})
	}
}
