package gormsqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	gormdriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// DB pairs a pooled read-only handle with a single-connection writer so that
// SQLite writes are serialised in process instead of fighting over the lock.
type DB struct {
	R *gorm.DB
	W *gorm.DB
}

type Tx struct {
	*gorm.DB
}

type cbfn func(tx *Tx) error

type Options struct {
	// LogSQL turns on gorm statement logging.
	LogSQL bool
}

func (db *DB) ReadTX(ctx context.Context, fn cbfn) error {
	return db.R.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Tx{DB: tx})
	}, &sql.TxOptions{ReadOnly: true})
}

func (db *DB) WriteTX(ctx context.Context, fn cbfn) error {
	return db.W.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Tx{DB: tx})
	})
}

func (db *DB) WriteSQLDB() (*sql.DB, error) {
	return db.W.DB()
}

func (db *DB) Close() error {
	var firstErr error
	for _, g := range []*gorm.DB{db.R, db.W} {
		if err := closeGORM(g); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ io.Closer = (*DB)(nil)

// Open connects a reader pool and a writer to the SQLite file. Both share
// one gorm logger, silent unless opts.LogSQL is set.
func Open(file string, opts Options) (*DB, error) {
	level := logger.Silent
	if opts.LogSQL {
		level = logger.Info
	}
	sqlLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})

	reader, err := openPool(file, roleReader, sqlLogger)
	if err != nil {
		return nil, err
	}
	writer, err := openPool(file, roleWriter, sqlLogger)
	if err != nil {
		_ = closeGORM(reader)
		return nil, err
	}
	return &DB{R: reader, W: writer}, nil
}

type role int

const (
	roleReader role = iota
	roleWriter
)

func (r role) String() string {
	if r == roleWriter {
		return "writer"
	}
	return "reader"
}

// maxConns caps the pool: SQLite admits one writer at a time, so the writer
// holds a single connection while readers scale with the CPUs.
func (r role) maxConns() int {
	if r == roleWriter {
		return 1
	}
	return runtime.NumCPU()
}

func openPool(file string, r role, sqlLogger logger.Interface) (*gorm.DB, error) {
	g, err := gorm.Open(gormdriver.Dialector{DriverName: "sqlite", DSN: buildDSN(file, r)}, &gorm.Config{
		PrepareStmt: true,
		Logger:      sqlLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", r, err)
	}
	sqlDB, err := g.DB()
	if err != nil {
		_ = closeGORM(g)
		return nil, fmt.Errorf("%s sql db: %w", r, err)
	}
	sqlDB.SetMaxOpenConns(r.maxConns())
	sqlDB.SetMaxIdleConns(r.maxConns())
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)
	return g, nil
}

var sharedPragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
	"wal_autocheckpoint(1000)",
	"cache_size(-20000)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"trusted_schema(OFF)",
}

// buildDSN carries the pragmas in the DSN so the modernc driver applies them
// to every pooled connection, not just the first one. Only the writer begins
// transactions with BEGIN IMMEDIATE.
func buildDSN(file string, r role) string {
	params := make([]string, 0, len(sharedPragmas)+2)
	for _, p := range sharedPragmas {
		params = append(params, "_pragma="+p)
	}
	switch r {
	case roleWriter:
		params = append(params, "_pragma=query_only(0)", "_txlock=immediate")
	default:
		params = append(params, "_pragma=query_only(1)")
	}

	path := file
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

func closeGORM(g *gorm.DB) error {
	if g == nil {
		return nil
	}
	sqlDB, err := g.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
