package migration

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/database/databasetest"
	"github.com/Additional-Code/handyman/internal/entity"
)

func TestUpCreatesSchemaAndDownDropsIt(t *testing.T) {
	conns := databasetest.Empty(t)
	cfg := config.Config{Database: config.Database{Driver: "sqlite"}}
	mig, err := New(cfg, conns, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if err := mig.Up(ctx); err != nil {
		t.Fatalf("up: %v", err)
	}
	version, err := mig.Version(ctx)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 3 {
		t.Fatalf("expected version 3, got %d", version)
	}
	if err := mig.Up(ctx); err != nil {
		t.Fatalf("second up must be a no-op: %v", err)
	}

	order := &entity.Order{
		Phone:        "+48123456789",
		Address:      "Main St 1",
		Description:  "Broken window frame",
		SelectedDate: "2030-01-10",
		Photos:       []string{"a.jpg"},
		Status:       entity.StatusNew,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := conns.Writer.NewInsert().Model(order).Exec(ctx); err != nil {
		t.Fatalf("insert order into migrated schema: %v", err)
	}
	date := &entity.AvailableDate{Date: "2030-01-10", IsAvailable: true, CreatedAt: time.Now().UTC()}
	if _, err := conns.Writer.NewInsert().Model(date).Exec(ctx); err != nil {
		t.Fatalf("insert date: %v", err)
	}
	if _, err := conns.Writer.NewInsert().Model(&entity.AvailableDate{Date: "2030-01-10", CreatedAt: time.Now().UTC()}).Exec(ctx); err == nil {
		t.Fatalf("expected unique constraint on date")
	}

	if err := mig.Down(ctx, 0, true); err != nil {
		t.Fatalf("down: %v", err)
	}
	if _, err := conns.Writer.NewSelect().Model((*entity.Order)(nil)).Count(ctx); err == nil {
		t.Fatalf("expected orders table to be dropped")
	}
}

func TestGooseDialect(t *testing.T) {
	for driver, want := range map[string]string{"pg": "postgres", "postgres": "postgres", "mysql": "mysql", "sqlite": "sqlite3"} {
		got, err := gooseDialect(driver)
		if err != nil || got != want {
			t.Fatalf("%s: got %q %v", driver, got, err)
		}
	}
	if _, err := gooseDialect("oracle"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
