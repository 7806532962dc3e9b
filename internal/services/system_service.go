package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	StartedAt time.Time
}

// Uptime is the time elapsed since StartedAt, or zero when it is unknown.
func (b BuildInfo) Uptime(now time.Time) time.Duration {
	if b.StartedAt.IsZero() || now.Before(b.StartedAt) {
		return 0
	}
	return now.Sub(b.StartedAt)
}

// SystemServiceDeps bundles collaborators for the readiness report.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
	Build            BuildInfo
}

type systemService struct {
	probes repositories.HealthRepository
	now    func() time.Time
	build  BuildInfo
}

var _ SystemService = (*systemService)(nil)

// NewSystemService builds the readiness report service.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	svc := &systemService{
		probes: deps.HealthRepository,
		now:    func() time.Time { return now().UTC() },
		build:  deps.Build,
	}
	if svc.build.StartedAt.IsZero() {
		svc.build.StartedAt = svc.now()
	}
	return svc, nil
}

// HealthReport runs the probes and fills in whatever the repository left blank.
func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.probes.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}
	now := s.now()
	if report.Checks == nil {
		report.Checks = map[string]domain.SystemHealthCheck{}
	}
	if strings.TrimSpace(report.Status) == "" {
		report.Status = domain.StatusFromChecks(report.Checks)
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	}
	if strings.TrimSpace(report.Version) == "" {
		report.Version = s.build.Version
	}
	if report.Uptime <= 0 {
		report.Uptime = s.build.Uptime(now)
	}
	return report, nil
}
