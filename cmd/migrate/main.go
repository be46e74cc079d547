// Command migrate applies or rolls back the embedded schema migrations.
//
//	migrate up            apply every pending migration
//	migrate down [-steps] roll back the newest applied migrations (default 1)
//	migrate status        list migrations and whether they are applied
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/chatcat/chatcat/migrations"
)

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	fsFlags := flag.NewFlagSet("migrate", flag.ExitOnError)
	dsn := fsFlags.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	steps := fsFlags.Int("steps", 1, "number of migrations to roll back with down")
	timeout := fsFlags.Duration("timeout", time.Minute, "overall timeout")
	_ = fsFlags.Parse(os.Args[1:])

	command := fsFlags.Arg(0)
	if command == "" {
		command = "up"
	}
	if *dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, logger, *dsn, command, *steps); err != nil {
		logger.Error("migration failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, dsn, command string, steps int) error {
	all, err := migrations.All()
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createVersionTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		pending := pendingUp(all, applied)
		for _, m := range pending {
			if err := apply(ctx, db, m.Version, m.Up, true); err != nil {
				return err
			}
			logger.Info("applied", "version", m.Version)
		}
		logger.Info("up to date", "applied", len(pending))
		return nil

	case "down":
		rollback := pendingDown(all, applied, steps)
		for _, m := range rollback {
			if err := apply(ctx, db, m.Version, m.Down, false); err != nil {
				return err
			}
			logger.Info("rolled back", "version", m.Version)
		}
		return nil

	case "status":
		for _, m := range all {
			state := "pending"
			if applied[m.Version] {
				state = "applied"
			}
			fmt.Printf("%s\t%s\n", m.Version, state)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q: want up, down or status", command)
	}
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// apply runs one migration body and records the version change in the same
// transaction.
func apply(ctx context.Context, db *sql.DB, version, body string, up bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("execute %s: %w", version, err)
	}

	if up {
		_, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version)
	}
	if err != nil {
		return fmt.Errorf("record %s: %w", version, err)
	}

	return tx.Commit()
}

// pendingUp returns unapplied migrations in ascending order.
func pendingUp(all []migrations.Migration, applied map[string]bool) []migrations.Migration {
	var out []migrations.Migration
	for _, m := range all {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// pendingDown returns up to steps applied migrations, newest first.
func pendingDown(all []migrations.Migration, applied map[string]bool, steps int) []migrations.Migration {
	var out []migrations.Migration
	for i := len(all) - 1; i >= 0 && len(out) < steps; i-- {
		if applied[all[i].Version] {
			out = append(out, all[i])
		}
	}
	return out
}
