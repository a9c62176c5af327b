// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package reporter

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthcheckStatus represents an healthcheck status.
type HealthcheckStatus int

const (
	// HealthcheckOK says "OK"
	HealthcheckOK HealthcheckStatus = iota
	// HealthcheckWarning says there is a non-fatal condition
	HealthcheckWarning
	// HealthcheckError says there is a big problem with the component
	HealthcheckError
)

func (hs HealthcheckStatus) String() string {
	switch hs {
	case HealthcheckOK:
		return "ok"
	case HealthcheckWarning:
		return "warning"
	case HealthcheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText turns a status into text.
func (hs HealthcheckStatus) MarshalText() ([]byte, error) {
	return []byte(hs.String()), nil
}

// HealthcheckResult combines a status and a reason
type HealthcheckResult struct {
	Status HealthcheckStatus `json:"status"`
	Reason string            `json:"reason"`
}

// MultipleHealthcheckResults aggregates the result of several healthchecks
type MultipleHealthcheckResults struct {
	Status  HealthcheckStatus            `json:"status"`
	Details map[string]HealthcheckResult `json:"details,omitempty"`
}

// HealthcheckFunc defines a function returning an healthcheck result.
type HealthcheckFunc func(context.Context) HealthcheckResult

// RegisterHealthcheck registers a new healthcheck under the given name.
func (r *Reporter) RegisterHealthcheck(name string, hf HealthcheckFunc) {
	r.healthchecksLock.Lock()
	r.healthchecks[name] = hf
	r.healthchecksLock.Unlock()
}

// RunHealthchecks executes all healthchecks in parallel. The global
// status is the worst of the individual ones. A check not answering
// before the context is done is reported as an error.
func (r *Reporter) RunHealthchecks(ctx context.Context) MultipleHealthcheckResults {
	r.healthchecksLock.Lock()
	checks := make(map[string]HealthcheckFunc, len(r.healthchecks))
	for name, hf := range r.healthchecks {
		checks[name] = hf
	}
	r.healthchecksLock.Unlock()

	type oneResult struct {
		name   string
		result HealthcheckResult
	}
	resultChan := make(chan oneResult, len(checks))
	for name, hf := range checks {
		go func() {
			resultChan <- oneResult{name, hf(ctx)}
		}()
	}

	results := MultipleHealthcheckResults{
		Status:  HealthcheckOK,
		Details: make(map[string]HealthcheckResult, len(checks)),
	}
collect:
	for range checks {
		select {
		case <-ctx.Done():
			break collect
		case one := <-resultChan:
			results.Details[one.name] = one.result
		}
	}
	for name := range checks {
		if _, ok := results.Details[name]; !ok {
			results.Details[name] = HealthcheckResult{HealthcheckError, "timeout during check"}
		}
		if status := results.Details[name].Status; status > results.Status {
			results.Status = status
		}
	}
	return results
}

// HealthcheckHTTPHandler is an HTTP handler returning healthcheck results as JSON.
func (r *Reporter) HealthcheckHTTPHandler(gc *gin.Context) {
	ctx, cancel := context.WithTimeout(gc.Request.Context(), 5*time.Second)
	defer cancel()
	results := r.RunHealthchecks(ctx)
	httpStatus := http.StatusOK
	if results.Status == HealthcheckError {
		httpStatus = http.StatusServiceUnavailable
	}
	gc.JSON(httpStatus, results)
}
