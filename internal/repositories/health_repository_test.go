package repositories

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
)

func TestDependencyHealthRepositoryAllHealthy(t *testing.T) {
	now := time.Date(2025, time.December, 1, 9, 0, 0, 0, time.UTC)
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "postgres", Check: func(context.Context) error { return nil }},
		{Name: "storage", Check: func(context.Context) error { return nil }},
	}, WithDependencyClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusOK || len(report.Checks) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Checks["postgres"].CheckedAt != now || report.GeneratedAt != now {
		t.Fatalf("expected injected clock to be used")
	}
}

func TestDependencyHealthRepositoryDegraded(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "firestore", Check: func(context.Context) error { return errors.New("unavailable") }},
		{Name: "storage", Check: func(context.Context) error { return nil }},
	})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected degraded, got %s", report.Status)
	}
	if got := report.Checks["firestore"]; got.Status != domain.HealthStatusDegraded || got.Error != "unavailable" {
		t.Fatalf("unexpected firestore check %+v", got)
	}
}

func TestDependencyHealthRepositoryTimeoutIsError(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{
			Name:    "stripe",
			Timeout: 5 * time.Millisecond,
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
		{Name: "firestore", Check: func(context.Context) error { return errors.New("slow") }},
	})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected error status to win over degraded, got %s", report.Status)
	}
	if report.Checks["stripe"].Detail != "timeout" {
		t.Fatalf("expected timeout detail, got %q", report.Checks["stripe"].Detail)
	}
}

func TestNewDependencyHealthRepositoryValidatesChecks(t *testing.T) {
	cases := map[string][]DependencyCheck{
		"empty":     nil,
		"no name":   {{Check: func(context.Context) error { return nil }}},
		"no func":   {{Name: "firestore"}},
		"duplicate": {{Name: "a", Check: func(context.Context) error { return nil }}, {Name: "a", Check: func(context.Context) error { return nil }}},
	}
	for name, checks := range cases {
		if _, err := NewDependencyHealthRepository(checks); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDependencyHealthRepositorySharesConcurrentProbes(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	repo, err := NewDependencyHealthRepository([]DependencyCheck{{
		Name: "postgres",
		Check: func(context.Context) error {
			calls.Add(1)
			<-release
			return nil
		},
	}})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	var wg sync.WaitGroup
	reports := make([]domain.SystemHealthReport, 4)
	for i := range reports {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i], _ = repo.Collect(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got < 1 || got > 4 {
		t.Fatalf("unexpected probe count %d", got)
	}
	for i, report := range reports {
		if report.Checks["postgres"].Status != domain.HealthStatusOK {
			t.Fatalf("report %d missing postgres check: %+v", i, report)
		}
	}
	reports[0].Checks["postgres"] = domain.SystemHealthCheck{Status: domain.HealthStatusError}
	if reports[1].Checks["postgres"].Status != domain.HealthStatusOK {
		t.Fatalf("callers must receive independent check maps")
	}
}
