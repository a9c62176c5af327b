// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package daemon handles the process lifecycle: it watches the tombs
// of the other components and signals, and tells everyone when it is
// time to exit.
package daemon

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"gopkg.in/tomb.v2"

	"nfcollector/common/reporter"
)

// Component is the interface the daemon component provides.
type Component interface {
	Start() error
	Stop() error
	Track(t *tomb.Tomb, who string)

	// Lifecycle
	Terminated() <-chan struct{}
	Terminate()
	// Err returns the error of the first tracked component which
	// died because of an error.
	Err() error
}

// lifecycle is the part shared with the mock component.
type lifecycle struct {
	terminateChannel chan struct{}
	terminateOnce    sync.Once
	errLock          sync.Mutex
	err              error
}

func newLifecycle() lifecycle {
	return lifecycle{terminateChannel: make(chan struct{})}
}

// Terminated will return a channel that will be closed when the daemon
// needs to terminate.
func (l *lifecycle) Terminated() <-chan struct{} {
	return l.terminateChannel
}

// Terminate should be called to request termination of a daemon.
func (l *lifecycle) Terminate() {
	l.terminateOnce.Do(func() { close(l.terminateChannel) })
}

// Err returns the first recorded component error.
func (l *lifecycle) Err() error {
	l.errLock.Lock()
	defer l.errLock.Unlock()
	return l.err
}

func (l *lifecycle) setErr(err error) {
	l.errLock.Lock()
	if l.err == nil {
		l.err = err
	}
	l.errLock.Unlock()
}

type trackedTomb struct {
	tomb   *tomb.Tomb
	origin string
}

// realComponent is a non-mock implementation of the Component
// interface.
type realComponent struct {
	r     *reporter.Reporter
	tombs []trackedTomb

	lifecycle
}

// New will create a new daemon component.
func New(r *reporter.Reporter) (Component, error) {
	return &realComponent{
		r:         r,
		lifecycle: newLifecycle(),
	}, nil
}

// Start will make the daemon component active.
func (c *realComponent) Start() error {
	for _, t := range c.tombs {
		go func() {
			<-t.tomb.Dying()
			if err := t.tomb.Err(); err != nil && err != tomb.ErrDying {
				c.setErr(err)
				c.r.Err(err).
					Str("component", t.origin).
					Msg("component error, quitting")
			} else {
				c.r.Debug().
					Str("component", t.origin).
					Msg("component shutting down, quitting")
			}
			c.Terminate()
		}()
	}
	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(signals)
		select {
		case s := <-signals:
			c.r.Info().Stringer("signal", s).Msg("signal received, quitting")
			c.Terminate()
		case <-c.Terminated():
		}
	}()
	return nil
}

// Stop will stop the component.
func (c *realComponent) Stop() error {
	c.Terminate()
	return nil
}

// Track adds a new tomb to be watched. It should only be called
// before Start().
func (c *realComponent) Track(t *tomb.Tomb, who string) {
	c.tombs = append(c.tombs, trackedTomb{
		tomb:   t,
		origin: who,
	})
}
