package availability

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/database/databasetest"
	"github.com/Additional-Code/handyman/internal/entity"
	daterepo "github.com/Additional-Code/handyman/internal/repository/availability"
	orderrepo "github.com/Additional-Code/handyman/internal/repository/order"
	"github.com/Additional-Code/handyman/pkg/errorbank"
)

func newTestService(t *testing.T) (*Service, *orderrepo.Repository) {
	t.Helper()
	conns := databasetest.New(t)
	orders := orderrepo.NewRepository(conns)
	svc := NewService(Params{
		Dates:  daterepo.NewRepository(conns),
		Orders: orders,
		Config: config.Config{Booking: config.Booking{CapacityPerDay: 2, Location: time.UTC}},
		Logger: zaptest.NewLogger(t),
	})
	svc.now = func() time.Time { return time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC) }
	return svc, orders
}

func TestCreateScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// 2099-01-02 is a Friday.
	created, err := svc.Create(ctx, "2099-01-02", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 || created.Date != "2099-01-02" || !created.IsAvailable {
		t.Fatalf("unexpected date %+v", created)
	}

	_, err = svc.Create(ctx, "2099-01-02", true)
	if !errorbank.Is(err, errorbank.KindConflict) {
		t.Fatalf("expected conflict on duplicate, got %v", err)
	}

	res, err := svc.BulkCreate(ctx, "2099-01-02", "2099-01-08", true)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if res.Created != 4 || res.Skipped != 3 {
		t.Fatalf("expected created=4 skipped=3, got %+v", res)
	}

	again, err := svc.BulkCreate(ctx, "2099-01-02", "2099-01-08", true)
	if err != nil {
		t.Fatalf("bulk rerun: %v", err)
	}
	if again.Created != 0 || again.Skipped != 7 {
		t.Fatalf("expected idempotent rerun, got %+v", again)
	}
}

func TestBulkCreateCountsEveryDay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ranges := []struct {
		start, end string
		skip       bool
		days       int
	}{
		{"2099-02-01", "2099-02-28", true, 28},
		{"2099-03-01", "2099-03-01", false, 1},
		{"2099-12-25", "2100-01-05", false, 12},
		{"2099-02-10", "2099-03-10", false, 29},
	}
	for _, r := range ranges {
		res, err := svc.BulkCreate(ctx, r.start, r.end, r.skip)
		if err != nil {
			t.Fatalf("bulk %s..%s: %v", r.start, r.end, err)
		}
		if res.Created+res.Skipped != r.days {
			t.Fatalf("%s..%s: created+skipped=%d, want %d", r.start, r.end, res.Created+res.Skipped, r.days)
		}
	}
}

func TestBulkCreateWithoutWeekendSkip(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.BulkCreate(context.Background(), "2099-01-03", "2099-01-04", false)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if res.Created != 2 || res.Skipped != 0 {
		t.Fatalf("expected weekend days to be created, got %+v", res)
	}
}

func TestBulkCreateRejectsBadRanges(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, r := range [][2]string{
		{"2099-01-10", "2099-01-01"},
		{"2099-13-01", "2099-12-01"},
		{"2099-01-01", "tomorrow"},
	} {
		if _, err := svc.BulkCreate(ctx, r[0], r[1], true); !errorbank.Is(err, errorbank.KindBadRequest) {
			t.Fatalf("expected bad request for %v, got %v", r, err)
		}
	}
}

func TestCreateValidatesDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "2030-03-14", true); !errorbank.Is(err, errorbank.KindBadRequest) {
		t.Fatalf("expected past date rejection, got %v", err)
	}
	if _, err := svc.Create(ctx, "15/03/2030", true); !errorbank.Is(err, errorbank.KindBadRequest) {
		t.Fatalf("expected format rejection, got %v", err)
	}
	if _, err := svc.Create(ctx, "2030-03-15", true); err != nil {
		t.Fatalf("today must be accepted: %v", err)
	}
}

func TestListOpenFromToday(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, d := range []string{"2030-03-15", "2030-03-16", "2030-03-17"} {
		if _, err := svc.Create(ctx, d, true); err != nil {
			t.Fatalf("create %s: %v", d, err)
		}
	}
	closed, err := svc.Create(ctx, "2030-03-18", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SetAvailability(ctx, closed.ID, false); err != nil {
		t.Fatalf("close: %v", err)
	}

	svc.now = func() time.Time { return time.Date(2030, 3, 16, 8, 0, 0, 0, time.UTC) }
	open, err := svc.ListOpenFromToday(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 2 || open[0].Date != "2030-03-16" || open[1].Date != "2030-03-17" {
		t.Fatalf("unexpected open dates %+v", open)
	}
}

func TestSetAvailabilityAndDeleteNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SetAvailability(ctx, 77, true); !errorbank.Is(err, errorbank.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, 77); !errorbank.Is(err, errorbank.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOccupiedDates(t *testing.T) {
	svc, orders := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	add := func(phone, date, status string) {
		t.Helper()
		o := &entity.Order{Phone: phone, Address: "Main St 1", Description: "Broken window frame", SelectedDate: date, Status: status, CreatedAt: now}
		if err := orders.Create(ctx, o, 2); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}
	add("+48100000001", "2099-01-05", entity.StatusNew)
	add("+48100000002", "2099-01-05", entity.StatusCompleted)
	add("+48100000003", "2099-01-06", entity.StatusNew)
	add("+48100000004", "2099-01-06", entity.StatusCancelled)

	report, err := svc.OccupiedDates(ctx)
	if err != nil {
		t.Fatalf("occupied: %v", err)
	}
	if report.MaxOrdersPerDay != 2 {
		t.Fatalf("expected capacity 2, got %d", report.MaxOrdersPerDay)
	}
	if len(report.OccupiedDates) != 1 || report.OccupiedDates[0] != "2099-01-05" {
		t.Fatalf("unexpected occupied dates %v", report.OccupiedDates)
	}
}
