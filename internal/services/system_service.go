package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	domain "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories"
)

// Storefront capabilities reported by /readyz. Catalog and forum are always wired; the
// rest depend on configuration.
const (
	FeatureCatalog       = "catalog"
	FeatureForum         = "forum"
	FeatureCheckout      = "checkout"
	FeatureUploads       = "uploads"
	FeatureEvents        = "events"
	FeatureAdminSessions = "admin_sessions"
)

const featureCheckPrefix = "feature:"

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	Environment string
	StartedAt   time.Time
}

// SystemServiceDeps bundles collaborators required to construct a system service.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
	Build            BuildInfo
	// Features maps each capability to whether it is wired in this process.
	Features map[string]bool
	// RequiredFeatures degrade readiness while disabled.
	RequiredFeatures []string
}

type systemService struct {
	health   repositories.HealthRepository
	now      func() time.Time
	build    BuildInfo
	features map[string]bool
	required []string
}

var _ SystemService = (*systemService)(nil)

// NewSystemService builds the readiness reporter.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	svc := &systemService{
		health:   deps.HealthRepository,
		now:      func() time.Time { return now().UTC() },
		build:    deps.Build,
		features: make(map[string]bool, len(deps.Features)),
	}
	if svc.build.StartedAt.IsZero() {
		svc.build.StartedAt = svc.now()
	}
	for name, enabled := range deps.Features {
		if name = strings.TrimSpace(name); name != "" {
			svc.features[name] = enabled
		}
	}
	for _, name := range deps.RequiredFeatures {
		if name = strings.TrimSpace(name); name != "" {
			svc.required = append(svc.required, name)
		}
	}
	sort.Strings(svc.required)
	return svc, nil
}

func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}
	now := s.now()

	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	} else {
		report.GeneratedAt = report.GeneratedAt.UTC()
	}
	if strings.TrimSpace(report.Version) == "" {
		report.Version = s.build.Version
	}
	if strings.TrimSpace(report.Environment) == "" {
		report.Environment = s.build.Environment
	}
	if report.Uptime <= 0 {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	if report.Checks == nil {
		report.Checks = map[string]domain.SystemHealthCheck{}
	}

	report.Features = make(map[string]bool, len(s.features))
	for name, enabled := range s.features {
		report.Features[name] = enabled
	}
	for _, name := range s.required {
		if s.features[name] {
			continue
		}
		report.Checks[featureCheckPrefix+name] = domain.SystemHealthCheck{
			Status:    domain.HealthStatusDegraded,
			Detail:    "disabled by configuration",
			CheckedAt: now,
		}
	}

	if strings.TrimSpace(report.Status) == "" || len(s.required) > 0 {
		report.Status = worstStatus(report.Status, report.Checks)
	}
	return report, nil
}

// worstStatus folds the check statuses into one, never improving on current.
func worstStatus(current string, checks map[string]domain.SystemHealthCheck) string {
	rank := func(status string) int {
		switch status {
		case domain.HealthStatusOK, "":
			return 0
		case domain.HealthStatusError:
			return 2
		default:
			return 1
		}
	}
	worst := rank(current)
	for _, check := range checks {
		worst = max(worst, rank(check.Status))
	}
	switch worst {
	case 0:
		return domain.HealthStatusOK
	case 1:
		return domain.HealthStatusDegraded
	default:
		return domain.HealthStatusError
	}
}
