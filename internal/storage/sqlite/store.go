// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package sqlite provides a SQLite-backed storage.Storage.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/staranto/swcache/internal/snapshot"
	"github.com/staranto/swcache/internal/storage"
)

//go:embed schema.sql
var schema string

// Store persists namespaces in one SQLite database.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps upserts serialized without relying on busy retries.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Open(ctx context.Context, name string) (storage.Namespace, error) {
	if err := storage.CheckName(name); err != nil {
		return nil, err
	}
	if _, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO namespaces (name, created_at) VALUES (?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		name,
		toMillis(time.Now()),
	); err != nil {
		return nil, fmt.Errorf("open namespace %s: %w", name, err)
	}
	return &Namespace{name: name, sqlDB: s.sqlDB}, nil
}

func (s *Store) Has(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM namespaces WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has namespace %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM namespaces WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete namespace %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete namespace %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, s.sqlDB, `SELECT name FROM namespaces ORDER BY id`)
}

// Namespace is a row in the namespaces table.
type Namespace struct {
	name  string
	sqlDB *sql.DB
}

func (n *Namespace) Name() string { return n.name }

func (n *Namespace) Match(ctx context.Context, key string) (*snapshot.Snapshot, bool, error) {
	var (
		snap     snapshot.Snapshot
		header   string
		captured int64
	)
	err := n.sqlDB.QueryRowContext(
		ctx,
		`SELECT e.url, e.method, e.status, e.header, e.body, e.captured_at
		   FROM entries e
		   JOIN namespaces ns ON ns.id = e.namespace_id
		  WHERE ns.name = ? AND e.cache_key = ?`,
		n.name,
		key,
	).Scan(&snap.URL, &snap.Method, &snap.Status, &header, &snap.Body, &captured)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("match %s: %w", key, err)
	}
	snap.Header = http.Header{}
	if err := json.Unmarshal([]byte(header), &snap.Header); err != nil {
		return nil, false, fmt.Errorf("decode header for %s: %w", key, err)
	}
	snap.Captured = fromMillis(captured)
	return &snap, true, nil
}

func (n *Namespace) Put(ctx context.Context, key string, s *snapshot.Snapshot) error {
	if err := storage.CheckPut(key, s); err != nil {
		return err
	}
	header, err := json.Marshal(s.Header)
	if err != nil {
		return fmt.Errorf("encode header for %s: %w", key, err)
	}
	method := s.Method
	if method == "" {
		method = http.MethodGet
	}
	captured := s.Captured
	if captured.IsZero() {
		captured = time.Now()
	}

	res, err := n.sqlDB.ExecContext(
		ctx,
		`INSERT INTO entries (namespace_id, cache_key, url, method, status, header, body, captured_at)
		 SELECT id, ?, ?, ?, ?, ?, ?, ? FROM namespaces WHERE name = ?
		 ON CONFLICT(namespace_id, cache_key) DO UPDATE SET
		   url = excluded.url,
		   method = excluded.method,
		   status = excluded.status,
		   header = excluded.header,
		   body = excluded.body,
		   captured_at = excluded.captured_at`,
		key,
		s.URL,
		method,
		s.Status,
		string(header),
		s.Body,
		toMillis(captured),
		n.name,
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("put %s: namespace %s no longer exists", key, n.name)
	}
	return nil
}

func (n *Namespace) Delete(ctx context.Context, key string) (bool, error) {
	res, err := n.sqlDB.ExecContext(
		ctx,
		`DELETE FROM entries
		  WHERE cache_key = ?
		    AND namespace_id = (SELECT id FROM namespaces WHERE name = ?)`,
		key,
		n.name,
	)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return rows > 0, nil
}

func (n *Namespace) Keys(ctx context.Context) ([]string, error) {
	return queryStrings(
		ctx,
		n.sqlDB,
		`SELECT e.cache_key
		   FROM entries e
		   JOIN namespaces ns ON ns.id = e.namespace_id
		  WHERE ns.name = ?
		  ORDER BY e.rowid`,
		n.name,
	)
}

func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}
