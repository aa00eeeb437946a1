package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Additional-Code/handyman/internal/database/databasetest"
)

func TestUpsertKeepsOneRowPerPhone(t *testing.T) {
	repo := NewRepository(databasetest.New(t))
	ctx := context.Background()
	now := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.Upsert(ctx, "+48123456789", "111111", now.Add(10*time.Minute), now); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	first, err := repo.GetByPhone(ctx, "+48123456789")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := repo.MarkVerified(ctx, first.ID); err != nil {
		t.Fatalf("mark verified: %v", err)
	}

	later := now.Add(time.Minute)
	if err := repo.Upsert(ctx, "+48123456789", "222222", later.Add(10*time.Minute), later); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	second, err := repo.GetByPhone(ctx, "+48123456789")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same row to be reused, got ids %d and %d", first.ID, second.ID)
	}
	if second.Code != "222222" {
		t.Fatalf("expected code to be replaced, got %s", second.Code)
	}
	if second.IsVerified {
		t.Fatalf("expected verified flag to be reset")
	}
	if !second.ExpiresAt.Equal(later.Add(10 * time.Minute)) {
		t.Fatalf("expected expiry to move, got %s", second.ExpiresAt)
	}
}

func TestGetByPhoneNotFound(t *testing.T) {
	repo := NewRepository(databasetest.New(t))
	if _, err := repo.GetByPhone(context.Background(), "+48000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
