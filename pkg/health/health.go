// Package health tracks liveness and readiness probes for the catalog
// service.
//
// Every probe runs on its own goroutine at a fixed interval. A probe turns
// unhealthy after failureThreshold consecutive failures and healthy again
// after successThreshold consecutive successes, so a single failed request
// to the catalog API does not flip readiness.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// CheckFunc returns nil if the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Option configures a probe.
type Option func(*probe)

// WithThresholds overrides the consecutive failure and success counts needed
// to flip a probe. Values below 1 are ignored.
func WithThresholds(failures, successes int) Option {
	return func(p *probe) {
		if failures > 0 {
			p.failureThreshold = failures
		}
		if successes > 0 {
			p.successThreshold = successes
		}
	}
}

// probe is one registered check plus its runtime state.
//
// run is called from a single goroutine, so the counters need no locking.
// healthy and lastErr are read by HTTP handlers and use atomics.
type probe struct {
	name             string
	timeout          time.Duration
	check            CheckFunc
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	consecutiveFails int
	consecutiveOK    int
}

func newProbe(name string, timeout time.Duration, check CheckFunc, opts []Option) *probe {
	p := &probe{
		name:             name,
		timeout:          timeout,
		check:            check,
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	p.healthy.Store(true)
	return p
}

func (p *probe) isHealthy() bool {
	return p.healthy.Load()
}

func (p *probe) lastError() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

// run executes the check once and reports whether the health flag flipped.
func (p *probe) run(ctx context.Context) (flipped bool) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(checkCtx)
	p.lastErr.Store(&err)

	if err != nil {
		p.consecutiveOK = 0
		p.consecutiveFails++
		if p.consecutiveFails >= p.failureThreshold {
			return p.healthy.Swap(false)
		}
		return false
	}

	p.consecutiveFails = 0
	p.consecutiveOK++
	if p.consecutiveOK >= p.successThreshold {
		return !p.healthy.Swap(true)
	}
	return false
}

// Monitor aggregates probes and serves the /livez and /readyz endpoints.
type Monitor struct {
	lg    *zap.Logger
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
}

// New creates a Monitor. It reports not ready until SetReady(true).
func New(lg *zap.Logger) *Monitor {
	return &Monitor{lg: lg}
}

// AddLiveness registers a probe that decides whether the process is alive.
func (m *Monitor) AddLiveness(name string, timeout time.Duration, check CheckFunc, opts ...Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liveness = append(m.liveness, newProbe(name, timeout, check, opts))
}

// AddReadiness registers a probe that decides whether the service should
// receive traffic, e.g. whether the catalog API answers.
func (m *Monitor) AddReadiness(name string, timeout time.Duration, check CheckFunc, opts ...Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readiness = append(m.readiness, newProbe(name, timeout, check, opts))
}

// Run executes every registered probe at interval until ctx is done. Each
// probe runs once immediately. Run returns nil on cancellation.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	m.mu.RLock()
	probes := make([]*probe, 0, len(m.liveness)+len(m.readiness))
	probes = append(probes, m.liveness...)
	probes = append(probes, m.readiness...)
	m.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range probes {
		g.Go(func() error {
			m.loop(ctx, p, interval)
			return nil
		})
	}
	return g.Wait()
}

func (m *Monitor) loop(ctx context.Context, p *probe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if p.run(ctx) && ctx.Err() == nil {
			m.logFlip(p)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) logFlip(p *probe) {
	if p.isHealthy() {
		m.lg.Info("Probe recovered", zap.String("probe", p.name))
		return
	}
	m.lg.Warn("Probe unhealthy",
		zap.String("probe", p.name),
		zap.Error(p.lastError()),
	)
}

// SetReady sets the manual readiness flag. It is set after startup and
// cleared at the beginning of a graceful shutdown.
func (m *Monitor) SetReady(ready bool) {
	m.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// probe passes.
func (m *Monitor) IsReady() bool {
	if !m.ready.Load() {
		return false
	}

	m.mu.RLock()
	probes := m.readiness
	m.mu.RUnlock()

	for _, p := range probes {
		if !p.isHealthy() {
			return false
		}
	}
	return true
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} or
// 503 {"status":"unhealthy","checks":{...}}.
func (m *Monitor) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	m.mu.RLock()
	probes := append([]*probe(nil), m.liveness...)
	m.mu.RUnlock()

	writeResponse(w, collectFailures(probes))
}

// ReadyEndpoint serves /readyz. Besides failing probes it reports
// "_readiness" while the service is not marked ready.
func (m *Monitor) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	ready := m.ready.Load()

	m.mu.RLock()
	probes := append([]*probe(nil), m.readiness...)
	m.mu.RUnlock()

	failures := collectFailures(probes)
	if !ready {
		failures["_readiness"] = "service is not ready"
	}
	writeResponse(w, failures)
}

// collectFailures maps each unhealthy probe to its last error message.
func collectFailures(probes []*probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		if p.isHealthy() {
			continue
		}
		if err := p.lastError(); err != nil {
			failures[p.name] = err.Error()
		} else {
			failures[p.name] = "check is unhealthy"
		}
	}
	return failures
}

func writeResponse(w http.ResponseWriter, failures map[string]string) {
	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("status")
	if len(names) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failures[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already written; a failed write means the client left.
	_, _ = w.Write(e.Bytes())
}
