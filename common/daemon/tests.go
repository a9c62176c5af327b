// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package daemon

import (
	"testing"

	"gopkg.in/tomb.v2"
)

// mockComponent is a daemon component without signal handling. It
// does not need to be started. Errors from tracked tombs are still
// recorded and available through Err().
type mockComponent struct {
	lifecycle
}

// NewMock creates a daemon component for tests. It is terminated when
// the test ends.
func NewMock(t *testing.T) Component {
	t.Helper()
	c := &mockComponent{lifecycle: newLifecycle()}
	t.Cleanup(c.Terminate)
	return c
}

func (c *mockComponent) Start() error { return nil }

func (c *mockComponent) Stop() error {
	c.Terminate()
	return nil
}

func (c *mockComponent) Track(t *tomb.Tomb, _ string) {
	go func() {
		select {
		case <-t.Dying():
			if err := t.Err(); err != nil && err != tomb.ErrDying {
				c.setErr(err)
			}
		case <-c.Terminated():
		}
	}()
}
