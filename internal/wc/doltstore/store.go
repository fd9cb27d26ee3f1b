// Package doltstore provides a SQL-backed working-copy store.
//
// The working copy's conflict metadata lives in a versioned Dolt database,
// opened through the embedded driver by default or over the wire against a
// dolt sql-server. Conflict descriptors are stored as JSON documents keyed
// by local path; write locks and move records get their own tables.
package doltstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	embedded "github.com/dolthub/driver"
	"github.com/go-sql-driver/mysql"

	"github.com/aboseley/subversion/internal/debug"
)

const (
	openMaxElapsed = 30 * time.Second

	// accessLockFile guards the embedded database directory against
	// concurrent processes. It lives alongside the dolt data directory.
	accessLockFile = "wc-access.lock"

	lockPollInterval = 50 * time.Millisecond
)

// Config describes how to open the store.
type Config struct {
	// Path is the directory holding the embedded database. Ignored in
	// server mode.
	Path string

	// Database is the database name. Defaults to "wc".
	Database string

	CommitterName  string
	CommitterEmail string

	// OpenTimeout bounds how long to wait for the process-level access
	// lock. Zero skips the access lock entirely.
	OpenTimeout time.Duration

	// ServerMode connects to a running dolt sql-server instead of opening
	// the database in-process.
	ServerMode     bool
	ServerHost     string
	ServerPort     int
	ServerUser     string
	ServerPassword string
}

func (c *Config) database() string {
	if c.Database == "" {
		return "wc"
	}
	return c.Database
}

// Store is a SQL-backed wc.Store.
type Store struct {
	db        *sql.DB
	connector *embedded.Connector
	lock      *accessLock
	dbPath    string
}

func newOpenBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = openMaxElapsed
	return bo
}

// New opens (and if needed creates) the store described by cfg.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg.ServerMode {
		return newServerMode(ctx, cfg)
	}
	return newEmbeddedMode(ctx, cfg)
}

func newEmbeddedMode(ctx context.Context, cfg *Config) (*Store, error) {
	if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// The embedded driver treats its directory as a working directory;
	// relative paths end up doubled. Always hand it an absolute path.
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve database directory: %w", err)
	}

	var lock *accessLock
	if cfg.OpenTimeout > 0 {
		lock, err = acquireAccessLock(absPath, cfg.OpenTimeout)
		if err != nil {
			return nil, fmt.Errorf("acquire store access lock: %w", err)
		}
	}

	initDSN := fmt.Sprintf("file://%s?commitname=%s&commitemail=%s",
		absPath, cfg.CommitterName, cfg.CommitterEmail)
	dbDSN := initDSN + "&database=" + cfg.database()

	if err := withEmbedded(ctx, initDSN, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.database()))
		return err
	}); err != nil {
		lock.release()
		return nil, fmt.Errorf("create database: %w", err)
	}

	db, connector, err := openEmbeddedConnection(dbDSN)
	if err != nil {
		lock.release()
		return nil, err
	}

	// The embedded driver derives a session context from the first
	// Connect and reuses it across statements; a caller context that gets
	// canceled after New returns would poison the pool.
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		_ = connector.Close()
		lock.release()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db, connector: connector, lock: lock, dbPath: absPath}
	if err := store.initSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	debug.Logf("doltstore: opened embedded database at %s", absPath)
	return store, nil
}

func openEmbeddedConnection(dsn string) (*sql.DB, *embedded.Connector, error) {
	openCfg, err := embedded.ParseDSN(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse DSN: %w", err)
	}
	openCfg.BackOff = newOpenBackoff()

	connector, err := embedded.NewConnector(openCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create connector: %w", err)
	}
	db := sql.OpenDB(connector)

	// Embedded mode is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, connector, nil
}

// withEmbedded runs fn against a short-lived embedded connection, used for
// one-shot setup work before the long-lived store connection exists.
func withEmbedded(ctx context.Context, dsn string, fn func(context.Context, *sql.DB) error) error {
	db, connector, err := openEmbeddedConnection(dsn)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
		_ = connector.Close()
	}()
	return fn(ctx, db)
}

func newServerMode(ctx context.Context, cfg *Config) (*Store, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.ServerUser
	mc.Passwd = cfg.ServerPassword
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
	mc.DBName = cfg.database()
	mc.ParseTime = true

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open server connection: %w", err)
	}

	ping := func() error { return db.PingContext(ctx) }
	if err := backoff.Retry(ping, backoff.WithContext(newOpenBackoff(), ctx)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s: %w", mc.Addr, err)
	}

	store := &Store{db: db}
	if err := store.initSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	debug.Logf("doltstore: connected to server at %s", mc.Addr)
	return store, nil
}

// Close closes the database connection and releases the access lock.
func (s *Store) Close() error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.connector != nil {
		errs = append(errs, s.connector.Close())
	}
	s.lock.release()
	return errors.Join(errs...)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS conflicts (
		local_path VARCHAR(1024) NOT NULL,
		kind VARCHAR(16) NOT NULL,
		prop_name VARCHAR(255) NOT NULL DEFAULT '',
		descriptor JSON NOT NULL,
		PRIMARY KEY (local_path, kind, prop_name)
	)`,
	`CREATE TABLE IF NOT EXISTS wc_locks (
		lock_path VARCHAR(1024) NOT NULL,
		acquired_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (lock_path)
	)`,
	`CREATE TABLE IF NOT EXISTS moves (
		src VARCHAR(1024) NOT NULL,
		dst VARCHAR(1024) NOT NULL,
		PRIMARY KEY (src)
	)`,
	`CREATE TABLE IF NOT EXISTS resolutions (
		local_path VARCHAR(1024) NOT NULL,
		kind VARCHAR(16) NOT NULL,
		prop_name VARCHAR(255) NOT NULL DEFAULT '',
		choice VARCHAR(32) NOT NULL,
		resolved_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// runInTransaction executes fn inside a transaction, retrying on transient
// serialization failures with exponential backoff.
func (s *Store) runInTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	return backoff.Retry(func() error {
		err := s.runTransactionOnce(ctx, fn)
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
}

func (s *Store) runTransactionOnce(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func isRetryable(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1205 lock wait timeout, 1213 deadlock.
		return mysqlErr.Number == 1205 || mysqlErr.Number == 1213
	}
	return false
}
