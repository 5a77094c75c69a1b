package database

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDatabase_SQLiteInMemory(t *testing.T) {
	ctx := context.Background()

	db, err := NewDatabase(ctx, "sqlite:///:memory:")
	if err != nil {
		t.Fatalf("NewDatabase() error: %v", err)
	}
	defer func() { _ = db.Close() }()

	if !db.IsSQLite() {
		t.Error("IsSQLite() should be true")
	}
	if db.IsPostgres() {
		t.Error("IsPostgres() should be false")
	}
	if err := db.Ping(ctx); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestNewDatabase_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := NewDatabase(ctx, "sqlite:///"+path)
	if err != nil {
		t.Fatalf("NewDatabase() error: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Session(ctx).Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)").Error; err != nil {
		t.Errorf("Exec() error: %v", err)
	}
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	ctx := context.Background()

	_, err := NewDatabase(ctx, "mysql://user@host/db")
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestDatabase_ConfigurePool(t *testing.T) {
	ctx := context.Background()

	db, err := NewDatabase(ctx, "sqlite:///:memory:")
	if err != nil {
		t.Fatalf("NewDatabase() error: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.ConfigurePool(5, 2, time.Minute); err != nil {
		t.Errorf("ConfigurePool() error: %v", err)
	}
}

func TestTruncateSQL(t *testing.T) {
	short := "SELECT 1"
	if truncateSQL(short) != short {
		t.Errorf("short SQL should be unchanged")
	}

	long := strings.Repeat("SELECT * FROM embeddings ", 20)
	got := truncateSQL(long)
	if len(got) > maxSQLLength {
		t.Errorf("truncated SQL length = %d, want <= %d", len(got), maxSQLLength)
	}
	if !strings.Contains(got, "...") {
		t.Error("truncated SQL should contain ellipsis")
	}
}
