package gormsqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildDSNIncludesPerConnectionPragmas(t *testing.T) {
	reader := buildDSN("./db.sqlite", roleReader)
	writer := buildDSN("./db.sqlite", roleWriter)

	checks := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=trusted_schema(OFF)",
	}
	for _, c := range checks {
		if !strings.Contains(reader, c) {
			t.Fatalf("reader dsn missing %q: %s", c, reader)
		}
		if !strings.Contains(writer, c) {
			t.Fatalf("writer dsn missing %q: %s", c, writer)
		}
	}

	if !strings.Contains(reader, "_pragma=query_only(1)") {
		t.Fatalf("reader dsn missing query_only(1): %s", reader)
	}
	if !strings.Contains(writer, "_pragma=query_only(0)") {
		t.Fatalf("writer dsn missing query_only(0): %s", writer)
	}
	if strings.Contains(reader, "_txlock") {
		t.Fatalf("reader dsn must not take write locks: %s", reader)
	}
	if !strings.Contains(writer, "_txlock=immediate") {
		t.Fatalf("writer dsn missing _txlock=immediate: %s", writer)
	}
	if !strings.HasPrefix(reader, "file:./db.sqlite?") {
		t.Fatalf("unexpected dsn prefix: %s", reader)
	}
}

func TestBuildDSNKeepsExistingURI(t *testing.T) {
	dsn := buildDSN("file:test.sqlite?mode=rwc", roleWriter)
	if !strings.HasPrefix(dsn, "file:test.sqlite?mode=rwc&_pragma=") {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
}

func TestReaderRejectsWrites(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "rw.sqlite"), Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	err = db.WriteTX(ctx, func(tx *Tx) error {
		return tx.Exec("CREATE TABLE widgets (id INTEGER PRIMARY KEY)").Error
	})
	if err != nil {
		t.Fatalf("writer create table: %v", err)
	}

	err = db.ReadTX(ctx, func(tx *Tx) error {
		return tx.Exec("INSERT INTO widgets (id) VALUES (1)").Error
	})
	if err == nil {
		t.Fatal("expected reader insert to fail")
	}

	var count int64
	err = db.ReadTX(ctx, func(tx *Tx) error {
		return tx.Raw("SELECT COUNT(*) FROM widgets").Scan(&count).Error
	})
	if err != nil {
		t.Fatalf("reader count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty table, got %d rows", count)
	}
}

func TestWriteTXRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "tx.sqlite"), Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.WriteTX(ctx, func(tx *Tx) error {
		return tx.Exec("CREATE TABLE widgets (id INTEGER PRIMARY KEY)").Error
	}); err != nil {
		t.Fatalf("create table: %v", err)
	}

	boom := errors.New("boom")
	err = db.WriteTX(ctx, func(tx *Tx) error {
		if err := tx.Exec("INSERT INTO widgets (id) VALUES (1)").Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int64
	if err := db.ReadTX(ctx, func(tx *Tx) error {
		return tx.Raw("SELECT COUNT(*) FROM widgets").Scan(&count).Error
	}); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, got %d rows", count)
	}
}

func TestWriterPoolHoldsSingleConnection(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "pool.sqlite"), Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("writer sql db: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected writer capped at 1 connection, got %d", got)
	}
	if roleReader.maxConns() < 1 {
		t.Fatalf("reader pool must allow at least one connection")
	}
}
