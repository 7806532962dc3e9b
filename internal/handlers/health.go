package handlers

import (
	"net/http"
	"time"

	domain "github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/platform/httpx"
	"github.com/maxg-dev/santiscl/internal/services"
)

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	system services.SystemService
	build  services.BuildInfo
	clock  func() time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthSystemService enables dependency checks on /readyz.
func WithHealthSystemService(svc services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = svc
	}
}

// WithHealthBuildInfo sets the version reported by /healthz.
func WithHealthBuildInfo(info services.BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthClock overrides the clock.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHealthHandlers constructs the probe handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock()
	}
	return h
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Critical  bool   `json:"critical"`
	LatencyMS int64  `json:"latencyMs"`
	CheckedAt string `json:"checkedAt,omitempty"`
}

type readinessResponse struct {
	Status    string                    `json:"status"`
	Version   string                    `json:"version,omitempty"`
	Uptime    string                    `json:"uptime"`
	Timestamp string                    `json:"timestamp"`
	Checks    map[string]readinessCheck `json:"checks"`
	Details   []string                  `json:"details,omitempty"`
}

// Healthz reports liveness without touching dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	httpx.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    domain.HealthStatusOK,
		Version:   h.build.Version,
		Uptime:    h.build.Uptime(now).Truncate(time.Second).String(),
		Timestamp: now.Format(time.RFC3339),
	})
}

// Readyz reports dependency health. Anything other than ok answers 503.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	if h.system == nil {
		httpx.WriteJSON(w, http.StatusOK, readinessResponse{
			Status:    domain.HealthStatusOK,
			Version:   h.build.Version,
			Uptime:    h.build.Uptime(now).Truncate(time.Second).String(),
			Timestamp: now.Format(time.RFC3339),
			Checks:    map[string]readinessCheck{},
		})
		return
	}

	report, err := h.system.HealthReport(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("health_unavailable", err.Error(), http.StatusServiceUnavailable))
		return
	}

	resp := readinessResponse{
		Status:    report.Status,
		Version:   report.Version,
		Uptime:    report.Uptime.Truncate(time.Second).String(),
		Timestamp: now.Format(time.RFC3339),
		Checks:    make(map[string]readinessCheck, len(report.Checks)),
	}
	for name, check := range report.Checks {
		resp.Checks[name] = newReadinessCheck(check)
	}
	resp.Details = report.Failures()

	status := http.StatusOK
	if report.Status != domain.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, resp)
}

func newReadinessCheck(check domain.SystemHealthCheck) readinessCheck {
	rc := readinessCheck{
		Status:    check.Status,
		Detail:    check.Detail,
		Critical:  check.Critical,
		LatencyMS: check.Latency.Milliseconds(),
	}
	if !check.CheckedAt.IsZero() {
		rc.CheckedAt = check.CheckedAt.UTC().Format(time.RFC3339)
	}
	return rc
}
