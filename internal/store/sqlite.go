package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/weather-cli/internal/weather"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS providers (
	position   INTEGER PRIMARY KEY,
	id         TEXT    NOT NULL UNIQUE,
	api_key    TEXT    NOT NULL DEFAULT '',
	is_default INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS aliases (
	position   INTEGER PRIMARY KEY,
	name       TEXT    NOT NULL UNIQUE,
	address    TEXT    NOT NULL,
	is_default INTEGER NOT NULL DEFAULT 0
);`

// SQLiteBackend persists settings in a SQLite database. Every save rewrites both tables
// in one transaction; row position keeps insertion order.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load(ctx context.Context) (Settings, error) {
	var s Settings

	rows, err := b.db.QueryContext(ctx, `SELECT id, api_key, is_default FROM providers ORDER BY position`)
	if err != nil {
		return Settings{}, fmt.Errorf("query providers: %w", err)
	}
	for rows.Next() {
		var p weather.ProviderConfig
		var id string
		if err := rows.Scan(&id, &p.APIKey, &p.IsDefault); err != nil {
			rows.Close()
			return Settings{}, fmt.Errorf("scan provider: %w", err)
		}
		p.ID = weather.ProviderID(id)
		s.Providers = append(s.Providers, p)
	}
	if err := rows.Close(); err != nil {
		return Settings{}, err
	}

	rows, err = b.db.QueryContext(ctx, `SELECT name, address, is_default FROM aliases ORDER BY position`)
	if err != nil {
		return Settings{}, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a weather.Alias
		if err := rows.Scan(&a.Name, &a.Address, &a.IsDefault); err != nil {
			return Settings{}, fmt.Errorf("scan alias: %w", err)
		}
		s.Aliases = append(s.Aliases, a)
	}
	return s, rows.Err()
}

func (b *SQLiteBackend) Save(ctx context.Context, s Settings) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM providers`); err != nil {
		return fmt.Errorf("clear providers: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM aliases`); err != nil {
		return fmt.Errorf("clear aliases: %w", err)
	}

	for i, p := range s.Providers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO providers (position, id, api_key, is_default) VALUES (?, ?, ?, ?)`,
			i, string(p.ID), p.APIKey, p.IsDefault,
		); err != nil {
			return fmt.Errorf("insert provider %s: %w", p.ID, err)
		}
	}
	for i, a := range s.Aliases {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO aliases (position, name, address, is_default) VALUES (?, ?, ?, ?)`,
			i, a.Name, a.Address, a.IsDefault,
		); err != nil {
			return fmt.Errorf("insert alias %s: %w", a.Name, err)
		}
	}

	return tx.Commit()
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
