// Package sqldb is the database/sql implementation of storage.Storage.
//
// One *sql.DB (a connection pool) is opened at startup and shared by every
// request. Two drivers are registered:
//
//	mysql  : the production database (github.com/go-sql-driver/mysql)
//	sqlite3: a single-file database for local runs and tests
//
// The dialect picks which statement table is used; the execution path is
// identical for both.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/aanand-mishra/records-api/internal/config"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/types"

	// Blank import: registers the "sqlite3" driver with database/sql.
	_ "github.com/mattn/go-sqlite3"
)

// DB is the concrete implementation of storage.Storage.
type DB struct {
	db           *sql.DB
	dialect      storage.Dialect
	queryTimeout time.Duration
}

var _ storage.Storage = (*DB)(nil)

// Connect opens a raw pool for cfg without touching the network.
// multiStatements allows several ';'-separated statements per Exec, which
// only the migration runner needs.
func Connect(cfg config.Database, multiStatements bool) (*sql.DB, error) {
	var dsn string

	switch cfg.Driver {
	case config.DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.Username
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Name
		mc.MultiStatements = multiStatements
		dsn = mc.FormatDSN()
	case config.DriverSQLite:
		// Foreign keys are off by default in SQLite.
		dsn = "file:" + cfg.Path + "?_foreign_keys=on"
	default:
		return nil, fmt.Errorf("sqldb.Connect: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb.Connect: open db: %w", err)
	}
	return db, nil
}

// Open builds the shared pool from cfg, applies the pool bounds and
// verifies that one connection can be acquired.
func Open(ctx context.Context, cfg config.Database) (*DB, error) {
	db, err := Connect(cfg, false)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqldb.Open: ping: %w", err)
	}

	s := NewWithDB(db, storage.Dialect(cfg.Driver))
	s.queryTimeout = cfg.QueryTimeout
	return s, nil
}

// NewWithDB wraps an already opened pool. Tests use it with sqlmock.
func NewWithDB(db *sql.DB, dialect storage.Dialect) *DB {
	return &DB{db: db, dialect: dialect}
}

// SetQueryTimeout bounds every subsequent statement; zero disables it.
func (s *DB) SetQueryTimeout(d time.Duration) { s.queryTimeout = d }

// Dialect reports which statement table the pool runs.
func (s *DB) Dialect() storage.Dialect { return s.dialect }

func (s *DB) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) prepare(ctx context.Context, stmt storage.Statement) (*sql.Stmt, error) {
	query, ok := s.dialect.SQL(stmt)
	if !ok {
		return nil, fmt.Errorf("%s (%s): %w", stmt, s.dialect, storage.ErrUnknownStatement)
	}
	return s.db.PrepareContext(ctx, query)
}

func (s *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// ─────────────────────────────────────────────────────────────────────────────
// Query runs a read statement and returns every row as a column → value map.
//
// The SELECT list is owned by the statement table, so columns are not
// known here. Each value is scanned into an `any` and then normalised:
// text comes back from the drivers as []byte and is turned into a string,
// DECIMAL and DATE values are turned into numbers and YYYY-MM-DD strings.
// Binary columns stay []byte, which encoding/json writes as base64.
// ─────────────────────────────────────────────────────────────────────────────
func (s *DB) Query(ctx context.Context, stmt storage.Statement, args ...any) ([]types.Row, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ps, err := s.prepare(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("sqldb.Query: prepare %s: %w", stmt, err)
	}
	defer ps.Close()

	rows, err := ps.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb.Query: %s: %w", stmt, err)
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("sqldb.Query: %s: column types: %w", stmt, err)
	}

	// Empty, not nil: an empty table is "[]" in JSON.
	result := make([]types.Row, 0)

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqldb.Query: %s: scan row: %w", stmt, err)
		}

		row := make(types.Row, len(cols))
		for i, col := range cols {
			row[col.Name()] = normalize(col.DatabaseTypeName(), values[i])
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb.Query: %s: rows iteration: %w", stmt, err)
	}

	return result, nil
}

// Exec runs a single mutating statement and reports the number of
// affected rows, plus the generated key for inserts.
func (s *DB) Exec(ctx context.Context, stmt storage.Statement, args ...any) (types.Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ps, err := s.prepare(ctx, stmt)
	if err != nil {
		return types.Result{}, fmt.Errorf("sqldb.Exec: prepare %s: %w", stmt, err)
	}
	defer ps.Close()

	res, err := ps.ExecContext(ctx, args...)
	if err != nil {
		return types.Result{}, fmt.Errorf("sqldb.Exec: %s: %w", stmt, err)
	}

	// SQLite keeps the last rowid of the connection across statements,
	// so the key is only read for inserts.
	var lastID int64
	if stmt.Inserts() {
		lastID, err = res.LastInsertId()
		if err != nil {
			return types.Result{}, fmt.Errorf("sqldb.Exec: %s: last insert id: %w", stmt, err)
		}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return types.Result{}, fmt.Errorf("sqldb.Exec: %s: rows affected: %w", stmt, err)
	}

	return types.Result{InsertID: lastID, AffectedRows: affected}, nil
}

func normalize(dbType string, v any) any {
	base := strings.ToUpper(dbType)
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = base[:i]
	}

	switch val := v.(type) {
	case []byte:
		if isBinary(base) {
			return val
		}
		return normalizeText(base, string(val))
	case string:
		return normalizeText(base, val)
	case time.Time:
		if base == "DATE" {
			return val.Format(time.DateOnly)
		}
		return val
	default:
		return v
	}
}

func normalizeText(base, s string) any {
	switch base {
	case "DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return s
}

func isBinary(base string) bool {
	switch base {
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BINARY", "VARBINARY":
		return true
	}
	return false
}
