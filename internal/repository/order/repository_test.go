package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Additional-Code/handyman/internal/database/databasetest"
	"github.com/Additional-Code/handyman/internal/entity"
)

func newOrder(phone, date, status string, created time.Time) *entity.Order {
	return &entity.Order{
		Phone:        phone,
		Address:      "ul. Długa 1, Gdańsk",
		Description:  "Leaking kitchen tap needs replacing",
		SelectedDate: date,
		Status:       status,
		CreatedAt:    created,
	}
}

func TestCreateEnforcesPhoneLimit(t *testing.T) {
	repo := NewRepository(databasetest.New(t))
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if err := repo.Create(ctx, newOrder("+48123456789", "2030-01-10", entity.StatusNew, now), 2); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	err := repo.Create(ctx, newOrder("+48123456789", "2030-01-10", entity.StatusNew, now), 2)
	if !errors.Is(err, ErrPhoneLimit) {
		t.Fatalf("expected ErrPhoneLimit, got %v", err)
	}
	count, err := repo.CountByPhone(ctx, "+48123456789")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
}

func TestCreateStoresPhotos(t *testing.T) {
	repo := NewRepository(databasetest.New(t))
	ctx := context.Background()

	order := newOrder("+48111222333", "2030-01-10", entity.StatusNew, time.Now().UTC())
	order.Photos = []string{"a.jpg", "b.png"}
	if err := repo.Create(ctx, order, 2); err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}

	got, err := repo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Photos) != 2 || got.Photos[0] != "a.jpg" || got.Photos[1] != "b.png" {
		t.Fatalf("unexpected photos %v", got.Photos)
	}
	if !got.UpdatedAt.IsZero() {
		t.Fatalf("expected updated_at to be empty before first status change")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewRepository(databasetest.New(t))
	if _, err := repo.GetByID(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirstWithFilter(t *testing.T) {
	repo := NewRepository(databasetest.New(t))
	ctx := context.Background()
	base := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

	first := newOrder("+48100000001", "2030-01-10", entity.StatusNew, base)
	second := newOrder("+48100000002", "2030-01-11", entity.StatusCompleted, base.Add(time.Hour))
	third := newOrder("+48100000003", "2030-01-12", entity.StatusNew, base.Add(2*time.Hour))
	for _, o := range []*entity.Order{first, second, third} {
		if err := repo.Create(ctx, o, 2); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := repo.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != third.ID || all[2].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}

	fresh, err := repo.List(ctx, entity.StatusNew)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(fresh) != 2 {
		t.Fatalf("expected 2 new orders, got %d", len(fresh))
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := NewRepository(databasetest.New(t))
	ctx := context.Background()

	order := newOrder("+48100000001", "2030-01-10", entity.StatusNew, time.Now().UTC())
	if err := repo.Create(ctx, order, 2); err != nil {
		t.Fatalf("create: %v", err)
	}

	at := time.Date(2030, 1, 2, 9, 0, 0, 0, time.UTC)
	updated, previous, err := repo.UpdateStatus(ctx, order.ID, entity.StatusInProgress, at)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if previous != entity.StatusNew || updated.Status != entity.StatusInProgress {
		t.Fatalf("unexpected transition %s -> %s", previous, updated.Status)
	}

	reloaded, err := repo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != entity.StatusInProgress || !reloaded.UpdatedAt.Equal(at) {
		t.Fatalf("status change not persisted: %+v", reloaded)
	}

	if _, _, err := repo.UpdateStatus(ctx, 999, entity.StatusCompleted, at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := NewRepository(databasetest.New(t))
	ctx := context.Background()

	order := newOrder("+48100000001", "2030-01-10", entity.StatusNew, time.Now().UTC())
	if err := repo.Create(ctx, order, 2); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Delete(ctx, order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, order.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestLoadByDateIgnoresCancelled(t *testing.T) {
	repo := NewRepository(databasetest.New(t))
	ctx := context.Background()
	now := time.Now().UTC()

	fixtures := []*entity.Order{
		newOrder("+48100000001", "2030-01-10", entity.StatusNew, now),
		newOrder("+48100000002", "2030-01-10", entity.StatusInProgress, now),
		newOrder("+48100000003", "2030-01-11", entity.StatusNew, now),
		newOrder("+48100000004", "2030-01-11", entity.StatusCancelled, now),
		newOrder("+48100000005", "2030-01-09", entity.StatusCompleted, now),
		newOrder("+48100000006", "2030-01-09", entity.StatusNew, now),
	}
	for _, o := range fixtures {
		if err := repo.Create(ctx, o, 2); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	loads, err := repo.LoadByDate(ctx, 2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loads) != 2 {
		t.Fatalf("expected 2 full dates, got %+v", loads)
	}
	if loads[0].SelectedDate != "2030-01-09" || loads[1].SelectedDate != "2030-01-10" {
		t.Fatalf("expected ascending dates, got %+v", loads)
	}
	if loads[0].OrderCount != 2 {
		t.Fatalf("expected count 2, got %d", loads[0].OrderCount)
	}
}
