package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/studiosync/internal/client/migrations"
	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/client/repositories/records"
	"github.com/dmitrijs2005/studiosync/internal/client/repositories/serverconfig"
	"github.com/dmitrijs2005/studiosync/internal/client/repositories/syncstate"
	"github.com/dmitrijs2005/studiosync/internal/common"
	"github.com/dmitrijs2005/studiosync/internal/dbx"
	"github.com/dmitrijs2005/studiosync/internal/filex"
	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/timex"
)

type Options struct {
	Path        string
	BusyTimeout time.Duration
}

type Store struct {
	read   *sql.DB
	write  *sql.DB
	tables []string
	log    logging.Logger
}

// RunMigrations applies the embedded schema migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open creates or upgrades the database at opts.Path and enumerates its
// business tables. Any error here means the cache is unusable.
func Open(ctx context.Context, opts Options, log logging.Logger) (*Store, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if _, err := filex.EnsureParentDir(opts.Path); err != nil {
		return nil, err
	}
	dsn := dbx.SQLiteDSN(opts.Path, opts.BusyTimeout)

	write, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open write handle: %w", err)
	}
	write.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, write); err != nil {
		_ = write.Close()
		return nil, fmt.Errorf("migrate %s: %w", opts.Path, err)
	}

	tables, err := records.EnumerateTables(ctx, write)
	if err != nil {
		_ = write.Close()
		return nil, fmt.Errorf("enumerate tables: %w", err)
	}

	read, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = write.Close()
		return nil, fmt.Errorf("open read handle: %w", err)
	}

	s := &Store{read: read, write: write, tables: tables, log: log.With("module", "store")}
	s.log.Info(ctx, "local store opened", "path", opts.Path, "tables", len(tables))
	return s, nil
}

// Writer returns the write handle. Only the write queue may use it.
func (s *Store) Writer() *sql.DB {
	return s.write
}

// Tables returns the enumerated business tables in name order.
func (s *Store) Tables() []string {
	out := make([]string, len(s.tables))
	copy(out, s.tables)
	return out
}

// HasTable reports whether name is a known business table.
func (s *Store) HasTable(name string) bool {
	for _, t := range s.tables {
		if t == name {
			return true
		}
	}
	return false
}

// Records returns a records repository bound to db (a transaction of the
// write queue, usually) that accepts this store's tables.
func (s *Store) Records(db dbx.DBTX) records.Repository {
	return records.NewSQLiteRepository(db, s.tables)
}

func (s *Store) reader() records.Repository {
	return s.Records(s.read)
}

// fault logs err and converts it into a *StorageError. Lookup misses and
// unknown tables are returned unchanged.
func (s *Store) fault(ctx context.Context, op string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return err
	}
	if errors.Is(err, common.ErrUnknownTable) {
		s.log.Warn(ctx, "read from unknown table", "op", op, "error", err)
		return err
	}
	se := NewStorageError(err)
	s.log.Error(ctx, "local read failed", append([]any{"op", op}, se.LogArgs()...)...)
	return se
}

func (s *Store) Get(ctx context.Context, table, uuid string) (*models.Record, error) {
	rec, err := s.reader().Get(ctx, table, uuid)
	if err != nil {
		return nil, s.fault(ctx, "get", err)
	}
	return rec, nil
}

func (s *Store) ListUUIDs(ctx context.Context, table string, includeRemoved bool) ([]string, error) {
	ids, err := s.reader().ListUUIDs(ctx, table, includeRemoved)
	if err != nil {
		return []string{}, s.fault(ctx, "list_uuids", err)
	}
	return ids, nil
}

func (s *Store) ListModifiedSince(ctx context.Context, table string, since time.Time) ([]models.Record, error) {
	recs, err := s.reader().ListModifiedSince(ctx, table, since)
	if err != nil {
		return nil, s.fault(ctx, "list_modified_since", err)
	}
	return recs, nil
}

func (s *Store) Contains(ctx context.Context, table, uuid string, includeRemoved bool) (bool, error) {
	ok, err := s.reader().Contains(ctx, table, uuid, includeRemoved)
	if err != nil {
		return false, s.fault(ctx, "contains", err)
	}
	return ok, nil
}

func (s *Store) FindUser(ctx context.Context, userName string) (*models.Record, error) {
	rec, err := s.reader().FindUser(ctx, userName)
	if err != nil {
		return nil, s.fault(ctx, "find_user", err)
	}
	return rec, nil
}

// ServerConfig returns the persisted connection settings or common.ErrNotFound.
func (s *Store) ServerConfig(ctx context.Context) (*models.ServerConfig, error) {
	cfg, err := serverconfig.NewSQLiteRepository(s.read).Get(ctx)
	if err != nil {
		return nil, s.fault(ctx, "server_config", err)
	}
	return cfg, nil
}

// SaveServerConfig replaces the settings row in one transaction on db,
// which is the write handle when called from a queued operation.
func (s *Store) SaveServerConfig(ctx context.Context, db *sql.DB, cfg models.ServerConfig) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return serverconfig.NewSQLiteRepository(tx).Save(ctx, cfg)
	})
}

// LastSync returns the sync watermark, the epoch on failure.
func (s *Store) LastSync(ctx context.Context) (time.Time, error) {
	t, err := syncstate.NewSQLiteRepository(s.read).LastSync(ctx)
	if err != nil {
		return timex.Epoch, s.fault(ctx, "last_sync", err)
	}
	return t, nil
}

// Close closes both handles. The write queue must be stopped first.
func (s *Store) Close() error {
	return errors.Join(s.read.Close(), s.write.Close())
}
