package observability

import (
	"context"
	"time"
)

// HealthStatus is the state reported by a health check.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health is the result of checking one dependency (store, backend).
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ServiceHealth folds dependency checks into one service status.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// HealthChecker reports the health of a dependency.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// NewServiceHealth returns an empty report with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Status: HealthStatusUp, Version: version}
}

// AddComponent records ch. The service status only ever gets worse:
// down beats degraded beats up.
func (sh *ServiceHealth) AddComponent(ch Health) {
	sh.Components = append(sh.Components, ch)
	switch {
	case ch.Status == HealthStatusDown:
		sh.Status = HealthStatusDown
	case ch.Status == HealthStatusDegraded && sh.Status == HealthStatusUp:
		sh.Status = HealthStatusDegraded
	}
}

// CheckAll runs every checker in order and returns the folded report.
func CheckAll(ctx context.Context, service, version string, checkers ...HealthChecker) *ServiceHealth {
	sh := NewServiceHealth(service, version)
	for _, hc := range checkers {
		sh.AddComponent(hc.CheckHealth(ctx))
	}
	return sh
}

type pingCheck struct {
	name string
	ping func(context.Context) error
}

// PingCheck adapts a ping function into a HealthChecker. A failing ping is
// down with the error as message; the round trip is reported as latency.
func PingCheck(name string, ping func(context.Context) error) HealthChecker {
	return pingCheck{name: name, ping: ping}
}

func (p pingCheck) CheckHealth(ctx context.Context) Health {
	start := time.Now()
	err := p.ping(ctx)
	h := Health{
		Name:    p.name,
		Status:  HealthStatusUp,
		Details: map[string]string{"latency": time.Since(start).Round(time.Microsecond).String()},
	}
	if err != nil {
		h.Status = HealthStatusDown
		h.Message = err.Error()
	}
	return h
}
