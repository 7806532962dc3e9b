package domain

import (
	"sort"
	"time"
)

// Readiness states, ordered from best to worst.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	HealthStatusError    = "error"
)

// SystemHealthCheck is the latest probe result for one backing service
// (Firestore, Cloud Storage, redis, Pub/Sub).
type SystemHealthCheck struct {
	Status string
	Detail string
	// Critical probes turn the whole report to error when they fail.
	Critical  bool
	Latency   time.Duration
	CheckedAt time.Time
}

// Healthy reports whether the probe passed.
func (c SystemHealthCheck) Healthy() bool { return c.Status == HealthStatusOK }

// SystemHealthReport is what /readyz renders.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// Failures returns "name: detail" for each failing probe, sorted by name.
func (r SystemHealthReport) Failures() []string {
	var out []string
	for name, check := range r.Checks {
		if check.Healthy() || check.Detail == "" {
			continue
		}
		out = append(out, name+": "+check.Detail)
	}
	sort.Strings(out)
	return out
}

// StatusFromChecks folds probe results: any critical failure is an error, any other failure degrades.
func StatusFromChecks(checks map[string]SystemHealthCheck) string {
	status := HealthStatusOK
	for _, check := range checks {
		if check.Healthy() {
			continue
		}
		if check.Critical {
			return HealthStatusError
		}
		status = HealthStatusDegraded
	}
	return status
}
