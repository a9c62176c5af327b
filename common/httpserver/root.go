// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package httpserver handles the internal web server for nfcollector.
// It exposes metrics, healthchecks and version under /api/v0/.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"gopkg.in/tomb.v2"

	"nfcollector/common/daemon"
	"nfcollector/common/reporter"
)

// Component is the HTTP server. Handlers are registered with
// AddHandler or on GinRouter before Start.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	t      tomb.Tomb
	config Configuration

	mux     *http.ServeMux
	metrics metrics
	address net.Addr

	// GinRouter is the router mounted on /api/
	GinRouter *gin.Engine
}

// Dependencies define the dependencies of the HTTP component.
type Dependencies struct {
	Daemon daemon.Component
}

// quietPaths are polled often and only logged at debug level.
var quietPaths = map[string]bool{
	"/api/v0/metrics":     true,
	"/api/v0/healthcheck": true,
}

// New creates a new HTTP component.
func New(r *reporter.Reporter, configuration Configuration, dependencies Dependencies) (*Component, error) {
	c := &Component{
		r:         r,
		d:         &dependencies,
		config:    configuration,
		mux:       http.NewServeMux(),
		GinRouter: gin.New(),
	}
	c.initMetrics()
	c.d.Daemon.Track(&c.t, "common/httpserver")

	c.GinRouter.Use(gin.Recovery())
	c.GinRouter.GET("/api/v0/healthcheck", r.HealthcheckHTTPHandler)
	c.AddHandler("/api/", c.GinRouter)
	c.AddHandler("/api/v0/metrics", r.MetricsHTTPHandler())
	if configuration.Profiler {
		c.mux.HandleFunc("/debug/pprof/", pprof.Index)
		c.mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		c.mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		c.mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		c.mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return c, nil
}

// AddHandler registers a new handler for the provided location. The
// handler is instrumented and its requests are logged.
func (c *Component) AddHandler(location string, handler http.Handler) {
	c.mux.Handle(location, c.instrument(location, c.accessLog(location, handler)))
}

func (c *Component) accessLog(location string, next http.Handler) http.Handler {
	logged := hlog.AccessHandler(func(req *http.Request, status, size int, duration time.Duration) {
		level := zerolog.InfoLevel
		if quietPaths[req.URL.Path] {
			level = zerolog.DebugLevel
		}
		hlog.FromRequest(req).WithLevel(level).
			Str("method", req.Method).
			Stringer("url", req.URL).
			Str("ip", req.RemoteAddr).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("HTTP request")
	})(next)
	return hlog.NewHandler(c.r.With().Str("handler", location).Logger())(logged)
}

func (c *Component) instrument(location string, next http.Handler) http.Handler {
	labels := prometheus.Labels{"handler": location}
	next = promhttp.InstrumentHandlerResponseSize(c.metrics.sizes.MustCurryWith(labels), next)
	next = promhttp.InstrumentHandlerCounter(c.metrics.requests.MustCurryWith(labels), next)
	next = promhttp.InstrumentHandlerDuration(c.metrics.durations.MustCurryWith(labels), next)
	return promhttp.InstrumentHandlerInFlight(c.metrics.inflights, next)
}

// Start starts the HTTP server. Without a listen address, nothing is
// served but the component still follows the daemon lifecycle.
func (c *Component) Start() error {
	if c.config.Listen == "" {
		c.t.Go(func() error {
			<-c.t.Dying()
			return nil
		})
		return nil
	}
	listener, err := net.Listen("tcp", c.config.Listen)
	if err != nil {
		return fmt.Errorf("unable to listen to %v: %w", c.config.Listen, err)
	}
	c.address = listener.Addr()
	c.r.Info().Stringer("listen", c.address).Msg("HTTP server started")

	server := &http.Server{
		Handler:           c.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	c.t.Go(func() error {
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		c.r.Err(err).Stringer("listen", c.address).Msg("HTTP server failed")
		return fmt.Errorf("HTTP server failed: %w", err)
	})
	c.t.Go(func() error {
		<-c.t.Dying()
		ctx, cancel := context.WithTimeout(context.Background(), c.config.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			c.r.Err(err).Msg("unable to shutdown HTTP server")
			return fmt.Errorf("unable to shutdown HTTP server: %w", err)
		}
		return nil
	})
	return nil
}

// Stop stops the HTTP server, waiting for in-flight requests up to the
// configured shutdown timeout.
func (c *Component) Stop() error {
	defer c.r.Info().Msg("HTTP server stopped")
	c.t.Kill(nil)
	return c.t.Wait()
}

// LocalAddr returns the address the HTTP server is listening to, or
// nil when it is not started.
func (c *Component) LocalAddr() net.Addr {
	return c.address
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
