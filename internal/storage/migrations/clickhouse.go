package migrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	chstore "solana-kalshi-copier/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the DSN's database when missing, applies the embedded
// schema files and returns a connection bound to that database. The files are written
// to be idempotent, so they are re-applied on every start.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	o, err := chstore.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	db := o.Auth.Database
	if db == "" {
		return nil, errors.New("clickhouse dsn must name a database")
	}

	files, err := load(clickhouseFiles, "clickhouse")
	if err != nil {
		return nil, err
	}

	admin, err := chstore.Open(ctx, dsn, chstore.WithDatabase(""))
	if err != nil {
		return nil, err
	}
	err = admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(db))
	_ = admin.Close()
	if err != nil {
		return nil, fmt.Errorf("create database %s: %w", db, err)
	}

	conn, err := chstore.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	for _, m := range files {
		stmts, err := statements(m.sql)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migration %s: %w", m.name, err)
		}
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", m.name, err)
			}
		}
	}
	return conn, nil
}

// statements splits a schema file into single statements, since the native protocol
// executes one per call. "--" comments are dropped; a ';' inside a quoted literal is
// refused rather than parsed.
func statements(sql string) ([]string, error) {
	var b strings.Builder
	inQuote := false
	for _, line := range strings.Split(sql, "\n") {
		if !inQuote && strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		for i := 0; i < len(line); i++ {
			switch c := line[i]; {
			case c == '\'':
				inQuote = !inQuote
			case c == ';' && inQuote:
				return nil, fmt.Errorf("';' inside a string literal: %q", strings.TrimSpace(line))
			}
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var out []string
	for _, part := range strings.Split(b.String(), ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
