//go:build integration

package firestore

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	pconfig "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/config"
	pfirestore "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/firestore"
)

func TestRegistryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{
		ProjectID:    "storefront-test",
		EmulatorHost: startEmulator(ctx, t),
	})
	reg, err := NewRegistry(provider)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close(context.Background()) })

	t.Run("templates", func(t *testing.T) {
		base := time.Date(2025, time.November, 20, 10, 0, 0, 0, time.UTC)
		for i, seed := range []domain.Template{
			{ID: "snowy-pine", Title: "Snowy Pine", Price: 1.49},
			{ID: "modern-minimal", Title: "Modern Minimal", Price: 1.79},
		} {
			seed.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			seed.UpdatedAt = seed.CreatedAt
			if _, err := reg.Templates().Upsert(ctx, seed); err != nil {
				t.Fatalf("upsert %s: %v", seed.ID, err)
			}
		}

		if err := reg.Templates().UpdateImageURL(ctx, "snowy-pine", "https://cdn.example/snowy.png"); err != nil {
			t.Fatalf("update image: %v", err)
		}
		refreshed, err := reg.Templates().Upsert(ctx, domain.Template{
			ID: "snowy-pine", Title: "Snowy Pine II", Price: 1.59,
			CreatedAt: base.Add(48 * time.Hour), UpdatedAt: base.Add(48 * time.Hour),
		})
		if err != nil {
			t.Fatalf("re-upsert: %v", err)
		}
		if !refreshed.CreatedAt.Equal(base) || refreshed.ImageURL != "https://cdn.example/snowy.png" {
			t.Fatalf("expected created_at and image to survive, got %+v", refreshed)
		}

		list, err := reg.Templates().List(ctx, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].ID != "modern-minimal" {
			t.Fatalf("expected newest first, got %+v", list)
		}

		if _, err := reg.Templates().FindByID(ctx, "missing"); !isNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
		if err := reg.Templates().UpdateImageURL(ctx, "missing", "x"); !isNotFound(err) {
			t.Fatalf("expected not found on image update, got %v", err)
		}
	})

	t.Run("forum", func(t *testing.T) {
		now := time.Now().UTC()
		for i, text := range []string{"first", "second", "third"} {
			msg := domain.ForumMessage{
				ID:        fmt.Sprintf("msg-%d", i),
				User:      "Visitor",
				Text:      text,
				CreatedAt: now.Add(time.Duration(i) * time.Minute),
			}
			if err := reg.ForumMessages().Insert(ctx, msg); err != nil {
				t.Fatalf("insert message: %v", err)
			}
		}
		recent, err := reg.ForumMessages().ListRecent(ctx, 2)
		if err != nil {
			t.Fatalf("list recent: %v", err)
		}
		if len(recent) != 2 || recent[0].Text != "third" {
			t.Fatalf("unexpected recent messages %+v", recent)
		}

		like := domain.ForumLike{MessageID: "msg-0", UserName: "Visitor", CreatedAt: now}
		for i := 0; i < 2; i++ {
			if err := reg.ForumLikes().Insert(ctx, like); err != nil {
				t.Fatalf("insert like %d: %v", i, err)
			}
		}
		if err := reg.ForumLikes().Insert(ctx, domain.ForumLike{MessageID: "msg-0", UserName: "Ana", CreatedAt: now}); err != nil {
			t.Fatalf("insert second user like: %v", err)
		}
		count, err := reg.ForumLikes().CountByMessage(ctx, "msg-0")
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 2 {
			t.Fatalf("expected duplicate like to be ignored, count=%d", count)
		}

		if err := reg.ForumLikes().Delete(ctx, "msg-0", "Visitor"); err != nil {
			t.Fatalf("delete like: %v", err)
		}
		if err := reg.ForumLikes().Delete(ctx, "msg-0", "Visitor"); err != nil {
			t.Fatalf("delete missing like: %v", err)
		}
		if count, _ := reg.ForumLikes().CountByMessage(ctx, "msg-0"); count != 1 {
			t.Fatalf("expected one like after unlike, got %d", count)
		}
	})

	report, err := reg.Health().Collect(ctx)
	if err != nil {
		t.Fatalf("collect health: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected healthy firestore, got %+v", report)
	}
}

func startEmulator(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators",
			ExposedPorts: []string{"8080/tcp"},
			Cmd: []string{
				"gcloud", "beta", "emulators", "firestore", "start",
				"--host-port=0.0.0.0:8080", "--quiet",
			},
			WaitingFor: wait.ForLog("Dev App Server is now running").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skip("firestore emulator unavailable: " + err.Error())
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "8080")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port())
}
