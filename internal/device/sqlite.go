package device

import (
	"context"
	"database/sql"
	stderrors "errors"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// migrations is the registry schema, applied on Open.
//
//go:embed migrations/*.sql
var migrations embed.FS

// goose configuration is process-global.
var migrateMu sync.Mutex

// SQLiteStore is a Store backed by a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
	now func() time.Time
}

// Open opens (creating if needed) the registry at path and brings its
// schema up to date. A nil log discards messages.
func Open(ctx context.Context, path string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.Noop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, registryError(err, "Failed to open device registry "+path)
	}
	// One connection: SQLite serializes writers anyway, and this avoids
	// SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode=WAL;`, `PRAGMA foreign_keys=ON;`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, registryError(err, "Failed to configure device registry "+path)
		}
	}

	if err := migrate(db, log); err != nil {
		db.Close()
		return nil, registryError(err, "Failed to migrate device registry "+path)
	}

	log.Debug("device registry open at %s", path)
	return &SQLiteStore{
		db:  db,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func migrate(db *sql.DB, log logger.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}
	return nil
}

// gooseLogger routes migration chatter to debug.
type gooseLogger struct{ log logger.Logger }

func (g gooseLogger) Printf(format string, v ...interface{}) { g.log.Debug(format, v...) }
func (g gooseLogger) Fatalf(format string, v ...interface{}) { g.log.Error(format, v...) }

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const deviceColumns = `id, name, host, port, username, password, description, status, last_seen, created_at, updated_at`

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, in NewDevice) (*Device, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	now := s.now()
	d := &Device{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Host:        in.Host,
		Port:        in.Port,
		Username:    in.Username,
		Password:    in.Password,
		Description: in.Description,
		Status:      StatusUnknown,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO devices (`+deviceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		d.ID, d.Name, d.Host, d.Port, d.Username, d.Password, d.Description, d.Status,
		toMillis(now), toMillis(now))
	if err != nil {
		return nil, registryError(err, "Failed to save device "+in.Name)
	}

	// Round-trip precision so the returned record equals a later Get.
	d.CreatedAt = fromMillis(toMillis(now))
	d.UpdatedAt = d.CreatedAt
	return d, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Device, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	d, err := scanDevice(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, registryError(err, "Failed to load device "+id)
	}
	return d, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, registryError(err, "Failed to list devices")
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, registryError(err, "Failed to read device row")
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, registryError(err, "Failed to list devices")
	}
	return devices, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound(id)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return registryError(err, "Failed to delete device "+id)
	}
	return requireRow(res, id)
}

// RecordStatus implements Store.
func (s *SQLiteStore) RecordStatus(ctx context.Context, id string, online bool, seen time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound(id)
	}

	now := toMillis(s.now())
	var (
		res sql.Result
		err error
	)
	if online {
		res, err = s.db.ExecContext(ctx,
			`UPDATE devices SET status = ?, last_seen = ?, updated_at = ? WHERE id = ?`,
			StatusOnline, toMillis(seen), now, id)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE devices SET status = ?, updated_at = ? WHERE id = ?`,
			StatusOffline, now, id)
	}
	if err != nil {
		return registryError(err, "Failed to update device "+id)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return registryError(err, "Failed to update device "+id)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row scanner) (*Device, error) {
	var (
		d                    Device
		lastSeen             sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(&d.ID, &d.Name, &d.Host, &d.Port, &d.Username, &d.Password,
		&d.Description, &d.Status, &lastSeen, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if lastSeen.Valid {
		t := fromMillis(lastSeen.Int64)
		d.LastSeen = &t
	}
	d.CreatedAt = fromMillis(createdAt)
	d.UpdatedAt = fromMillis(updatedAt)
	return &d, nil
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func registryError(err error, msg string) error {
	return errors.WrapWithCode(err, errors.ErrDevice, msg,
		"Check registry.path in your config and that the file is writable")
}
