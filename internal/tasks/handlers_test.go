package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/avelora/keygate-api/internal/domain/apikey"
	"github.com/avelora/keygate-api/internal/domain/usage"
	"github.com/avelora/keygate-api/internal/storage/memstorage"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func TestUsagePruneHandler(t *testing.T) {
	repo := memstorage.NewUsageRepository()
	orgID := uuid.New()
	now := time.Now().UTC()

	// One row inside the window, one far outside it.
	if err := repo.Increment(context.Background(), orgID, now.AddDate(0, 0, -10), usage.SourceAPI, "/v1/things", 1, 1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := repo.Increment(context.Background(), orgID, now.AddDate(0, 0, -500), usage.SourceAPI, "/v1/things", 1, 1); err != nil {
		t.Fatalf("seed: %v", err)
	}

	task, err := NewUsagePruneTask(400)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}

	handler := NewUsagePruneHandler(repo, zap.NewNop())
	if err := handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}

	totals, err := repo.SumSince(context.Background(), orgID, now.AddDate(-2, 0, 0))
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if totals.TotalRequests != 1 {
		t.Errorf("surviving rows = %d, want only the recent one", totals.TotalRequests)
	}
}

func TestUsagePruneHandlerClampsRetention(t *testing.T) {
	repo := memstorage.NewUsageRepository()
	orgID := uuid.New()
	now := time.Now().UTC()

	// 50 days old: inside the clamped 62-day minimum even though the task
	// asks for a 7-day window.
	if err := repo.Increment(context.Background(), orgID, now.AddDate(0, 0, -50), usage.SourceAPI, "/v1/things", 1, 1); err != nil {
		t.Fatalf("seed: %v", err)
	}

	task, err := NewUsagePruneTask(7)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}

	handler := NewUsagePruneHandler(repo, zap.NewNop())
	if err := handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}

	totals, err := repo.SumSince(context.Background(), orgID, now.AddDate(-1, 0, 0))
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if totals.TotalRequests != 1 {
		t.Error("a row inside the minimum retention window was pruned")
	}
}

func TestUsagePruneHandlerRejectsWrongType(t *testing.T) {
	handler := NewUsagePruneHandler(memstorage.NewUsageRepository(), zap.NewNop())

	task := asynq.NewTask("some:other:task", nil)
	if err := handler.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected an error for a mismatched task type")
	}
}

func TestAPIKeySweepHandler(t *testing.T) {
	repo := memstorage.NewAPIKeyRepository()
	orgID := uuid.New()
	past := time.Now().UTC().AddDate(0, 0, -1)

	id, err := repo.Create(context.Background(), &apikey.APIKey{
		OrganizationID: orgID,
		SecretHash:     "hash-expired",
		Prefix:         "abcd1234",
		Environment:    apikey.EnvLive,
		IsActive:       true,
		ExpiresAt:      &past,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.Create(context.Background(), &apikey.APIKey{
		OrganizationID: orgID,
		SecretHash:     "hash-live",
		Prefix:         "efgh5678",
		Environment:    apikey.EnvLive,
		IsActive:       true,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	task, err := NewAPIKeySweepTask()
	if err != nil {
		t.Fatalf("new task: %v", err)
	}

	handler := NewAPIKeySweepHandler(repo, zap.NewNop())
	if err := handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}

	keys, err := repo.ListByOrganization(context.Background(), orgID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, k := range keys {
		if k.ID == id && k.IsActive {
			t.Error("expired key was not disabled")
		}
		if k.ID != id && !k.IsActive {
			t.Error("unexpired key was disabled")
		}
	}
}
