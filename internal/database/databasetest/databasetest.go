// Package databasetest provides throwaway in-memory databases for package tests.
package databasetest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/Additional-Code/handyman/internal/database"
	"github.com/Additional-Code/handyman/internal/entity"
)

// New opens a private in-memory SQLite database with every table created.
// Writer and Reader share the same handle.
func New(t testing.TB) *database.Connections {
	t.Helper()

	conns := Empty(t)
	ctx := context.Background()
	models := []any{
		(*entity.Order)(nil),
		(*entity.AvailableDate)(nil),
		(*entity.SMSVerification)(nil),
	}
	for _, model := range models {
		if _, err := conns.Writer.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return conns
}

// Empty opens a private in-memory SQLite database without any schema.
func Empty(t testing.TB) *database.Connections {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	return &database.Connections{Writer: db, Reader: db}
}
