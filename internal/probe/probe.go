// Package probe exposes readyz/healthz/detailz HTTP endpoints the way
// the teacher's common/probe package does, repurposed to report the
// health of the offload core's own subsystems (port table, registries,
// snapshot store, event publisher) instead of per-microservice health.
package probe

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/flowcore/nicoffload/internal/corelog"
)

var logger = corelog.AddPackage("probe")

// Status is the lifecycle state of one registered subsystem.
type Status int

const (
	StatusUnknown Status = iota
	StatusPreparing
	StatusRunning
	StatusStopped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPreparing:
		return "Preparing"
	case StatusRunning:
		return "Running"
	case StatusStopped:
		return "Stopped"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Probe tracks the status of every registered subsystem and serves it
// over HTTP.
type Probe struct {
	mu        sync.RWMutex
	status    map[string]Status
	isReady   bool
	isHealthy bool
}

// New returns an empty Probe with no registered subsystems.
func New() *Probe {
	return &Probe{status: make(map[string]Status)}
}

// Register adds subsystems in StatusUnknown if not already present.
func (p *Probe) Register(names ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range names {
		if _, ok := p.status[n]; !ok {
			p.status[n] = StatusUnknown
		}
	}
	p.recompute()
}

// Update records a new status for a subsystem.
func (p *Probe) Update(name string, s Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status[name] = s
	p.recompute()
	logger.Debugw("probe-status-updated", corelog.Fields{"subsystem": name, "status": s.String()})
}

// recompute must be called with mu held.
func (p *Probe) recompute() {
	p.isReady = len(p.status) > 0
	p.isHealthy = len(p.status) > 0
	for _, s := range p.status {
		if s != StatusRunning {
			p.isReady = false
		}
		if s == StatusStopped || s == StatusFailed {
			p.isHealthy = false
		}
	}
}

func (p *Probe) readyz(w http.ResponseWriter, _ *http.Request) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.isReady {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
}

func (p *Probe) healthz(w http.ResponseWriter, _ *http.Request) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.isHealthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
}

func (p *Probe) detailz(w http.ResponseWriter, _ *http.Request) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("{"))
	comma := ""
	for name, s := range p.status {
		_, _ = fmt.Fprintf(w, "%s\"%s\": \"%s\"", comma, name, s.String())
		comma = ", "
	}
	_, _ = w.Write([]byte("}"))
}

// ListenAndServe blocks, serving the probe endpoints on host:port.
func (p *Probe) ListenAndServe(host string, port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/readyz", p.readyz)
	mux.HandleFunc("/healthz", p.healthz)
	mux.HandleFunc("/detailz", p.detailz)
	addr := fmt.Sprintf("%s:%d", host, port)
	logger.Infow("probe-listening", corelog.Fields{"addr": addr})
	return http.ListenAndServe(addr, mux)
}
