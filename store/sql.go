package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// timeResolution is the precision of stored timestamps. Whole seconds keep
// SQLite's text timestamps comparable as strings.
const timeResolution = time.Second

// Dialect selects the SQL flavour spoken by the underlying driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect accepts the driver names used in configuration.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", s)
}

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on top of database/sql.
type SQLStore struct {
	db      *sql.DB
	q       dbtx
	dialect Dialect
	inTx    bool
	now     func() time.Time
	log     zerolog.Logger
}

var _ Store = (*SQLStore)(nil)

// Open connects to the database described by dialect and dsn. For SQLite the
// dsn is a file path; its directory is created if needed.
func Open(ctx context.Context, dialect Dialect, dsn string, opts ...OpenOption) (*SQLStore, error) {
	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case DialectSQLite:
		db, err = openSQLite(ctx, dsn)
	case DialectPostgres:
		db, err = openPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return nil, err
	}
	st := New(db, dialect)
	for _, opt := range opts {
		opt(st)
	}
	return st, nil
}

// OpenOption configures a store returned by Open.
type OpenOption func(*SQLStore)

// WithLogger sets the logger used for migration output.
func WithLogger(l zerolog.Logger) OpenOption {
	return func(s *SQLStore) {
		s.log = l
	}
}

// New wraps an existing connection pool.
func New(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		q:       db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC().Truncate(timeResolution) },
		log:     zerolog.Nop(),
	}
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed while a writer holds the lock; NORMAL sync is
	// safe under WAL.
	if _, err := db.ExecContext(ctx, `
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	return db, nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded goose migrations for the store's dialect.
func (s *SQLStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{log: s.log.With().Str("component", "migrate").Logger()})
	defer goose.SetLogger(goose.NopLogger())
	gooseDialect := "sqlite3"
	if s.dialect == DialectPostgres {
		gooseDialect = "postgres"
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, "migrations/"+string(s.dialect)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// gooseLogger sends goose progress messages to zerolog.
type gooseLogger struct {
	log zerolog.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.log.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.log.Fatal().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// DB exposes the underlying pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Ping checks that the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the underlying pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// WithTx begins a transaction, runs fn with a transaction-bound store, and
// commits on success or rolls back on error or panic. Nested calls reuse the
// outer transaction.
func (s *SQLStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) (err error) {
	if s.inTx {
		return fn(ctx, s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	txs := &SQLStore{db: s.db, q: tx, dialect: s.dialect, inTx: true, now: s.now}
	return fn(ctx, txs)
}

func (s *SQLStore) Users() UserRepository { return userRepo{s} }
func (s *SQLStore) Products() ProductRepository { return productRepo{s} }
func (s *SQLStore) BlogPosts() BlogPostRepository { return blogRepo{s} }
func (s *SQLStore) ContactMessages() ContactMessageRepository { return contactRepo{s} }
func (s *SQLStore) JobApplications() JobApplicationRepository { return jobRepo{s} }
func (s *SQLStore) Notifications() NotificationRepository { return notificationRepo{s} }
func (s *SQLStore) Admins() AdminRepository { return adminRepo{s} }
func (s *SQLStore) Outbox() OutboxRepository { return outboxRepo{s} }
func (s *SQLStore) Images() ImageRepository { return imageRepo{s} }

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.rebind(query), args...)
}

// execOne runs a statement that must touch exactly one row.
func (s *SQLStore) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// dbError translates driver errors into the package's sentinel errors.
func dbError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return fmt.Errorf("db error: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
