// Command report renders a follower's copy-trading ledger as REPORT.md and LEDGER.csv.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"solana-kalshi-copier/internal/ledger"
	"solana-kalshi-copier/internal/reporting"
	"solana-kalshi-copier/internal/storage"
	chstore "solana-kalshi-copier/internal/storage/clickhouse"
	"solana-kalshi-copier/internal/storage/migrations"
	pgstore "solana-kalshi-copier/internal/storage/postgres"
)

func main() {
	follower := flag.String("follower", "", "Follower wallet address (required)")
	from := flag.String("from", "", "Window start, RFC3339 (optional)")
	to := flag.String("to", "", "Window end, RFC3339 (optional)")
	outputDir := flag.String("output-dir", "", "Directory for REPORT.md and LEDGER.csv; empty prints markdown to stdout")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for daily volume (optional)")
	flag.Parse()

	if *follower == "" || *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --follower and --postgres-dsn are required")
		os.Exit(1)
	}

	fromMs, err := parseBound(*from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: --from: %v\n", err)
		os.Exit(1)
	}
	toMs, err := parseBound(*to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: --to: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, *follower, fromMs, toMs, *outputDir, *postgresDSN, *clickhouseDSN); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, follower string, from, to int64, outputDir, postgresDSN, clickhouseDSN string) error {
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	var analytics storage.LedgerAnalyticsStore
	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect clickhouse: %w", err)
		}
		defer func() { _ = conn.Close() }()
		analytics = chstore.NewLedgerAnalyticsStore(conn)
	}

	led := ledger.New(ledger.Options{Store: pgstore.NewLedgerStore(pool)})
	report, err := reporting.NewGenerator(led, analytics).Generate(ctx, follower, from, to)
	if err != nil {
		return err
	}

	md := reporting.RenderMarkdown(report)
	if outputDir == "" {
		_, err := fmt.Fprint(os.Stdout, md)
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outputDir, "REPORT.md"), []byte(md), 0o644); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(outputDir, "LEDGER.csv"))
	if err != nil {
		return err
	}
	if err := reporting.WriteLedgerCSV(f, report.Entries); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Println("Report generated:")
	fmt.Printf("  - %s\n", filepath.Join(outputDir, "REPORT.md"))
	fmt.Printf("  - %s\n", filepath.Join(outputDir, "LEDGER.csv"))
	return nil
}

// parseBound converts an RFC3339 timestamp to unix ms. Empty means unbounded.
func parseBound(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, errors.New("expected RFC3339, e.g. 2025-01-02T15:04:05Z")
	}
	return t.UnixMilli(), nil
}
