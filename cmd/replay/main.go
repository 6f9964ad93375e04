// Command replay feeds recorded webhook payload files through the ingestion pipeline
// against in-memory stores in simulation mode and prints the resulting ledger.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-kalshi-copier/internal/catalog"
	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/engine"
	"solana-kalshi-copier/internal/ingestion"
	"solana-kalshi-copier/internal/kalshi"
	"solana-kalshi-copier/internal/ledger"
	"solana-kalshi-copier/internal/matcher"
	"solana-kalshi-copier/internal/notify"
	"solana-kalshi-copier/internal/storage/memory"
)

func main() {
	settingsPath := flag.String("settings", "", "JSON file mapping follower wallet to its copy settings list (required)")
	marketsPath := flag.String("markets", "", "JSON file in the Kalshi GET /markets response shape; empty uses the live catalog")
	kalshiURL := flag.String("kalshi-url", "https://api.elections.kalshi.com/trade-api/v2", "Kalshi API base URL for the live catalog")
	bankroll := flag.Float64("bankroll", 10000, "Simulated bankroll in USD")
	minScore := flag.Float64("min-score", matcher.DefaultMinScore, "Minimum match score")
	outputJSON := flag.Bool("json", false, "Output the ledger as JSON")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	if *settingsPath == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: replay --settings settings.json [--markets markets.json] payload.json...")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		settingsPath: *settingsPath,
		marketsPath:  *marketsPath,
		kalshiURL:    *kalshiURL,
		bankroll:     *bankroll,
		minScore:     *minScore,
		outputJSON:   *outputJSON,
		payloads:     flag.Args(),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	settingsPath string
	marketsPath  string
	kalshiURL    string
	bankroll     float64
	minScore     float64
	outputJSON   bool
	payloads     []string
}

func run(ctx context.Context, logger *zap.Logger, opts options) error {
	settings := memory.NewCopySettingStore()
	followers, err := loadSettings(ctx, opts.settingsPath, settings)
	if err != nil {
		return err
	}

	var src catalog.Source = kalshi.NewClient(opts.kalshiURL, nil, kalshi.WithLogger(logger))
	if opts.marketsPath != "" {
		markets, err := loadMarkets(opts.marketsPath)
		if err != nil {
			return err
		}
		src = staticMarkets(markets)
	}

	led := ledger.New(ledger.Options{Store: memory.NewLedgerStore(), Logger: logger})
	emitter := notify.New(notify.Options{Store: memory.NewNotificationStore(), Logger: logger})
	eng := engine.New(engine.Options{
		Settings: settings,
		Matcher:  matcher.New(catalog.New(src, catalog.Options{Logger: logger}), opts.minScore, logger),
		Ledger:   led,
		Executor: engine.SimulatedExecutor{},
		Bankroll: engine.FixedBankroll(decimal.NewFromFloat(opts.bankroll)),
		Notifier: emitter,
		Logger:   logger,
	})
	ingestor := ingestion.New(ingestion.Options{
		Processor:  eng,
		Signatures: memory.NewSignatureLog(time.Hour, 50),
		Logger:     logger,
	})

	for _, path := range opts.payloads {
		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		res, err := ingestor.Ingest(ctx, body, domain.EventSourceReplay)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "%s: received=%d accepted=%d duplicates=%d rejected=%d failed=%d\n",
			path, res.Received, res.Accepted, res.Duplicates, res.Rejected, res.Failed)
	}

	var entries []*domain.LedgerEntry
	for offset := 0; ; {
		page, err := led.RecentGlobal(ctx, ledger.MaxLimit, offset)
		if err != nil {
			return err
		}
		entries = append(entries, page.Entries...)
		offset += len(page.Entries)
		if !page.HasMore || len(page.Entries) == 0 {
			break
		}
	}

	if opts.outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "FOLLOWER\tSTATUS\tTICKER\tSIDE\tACTION\tSIZE\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			e.Follower, e.Status, e.KalshiTicker, e.OrderSide, e.OrderAction, e.SizeUSD, e.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, f := range followers {
		stats, err := led.Stats(ctx, f)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s: trades=%d executed=%d failed=%d skipped=%d winRate=%.2f volume=$%.2f\n",
			f, stats.TradeCount, stats.Executed, stats.Failed, stats.Skipped, stats.WinRate, stats.VolumeUSD)
	}
	return nil
}

// loadSettings reads {"<follower>": [settings...]} and stores each list.
func loadSettings(ctx context.Context, path string, store *memory.CopySettingStore) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	var byFollower map[string][]map[string]any
	if err := json.Unmarshal(raw, &byFollower); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	followers := make([]string, 0, len(byFollower))
	for follower, list := range byFollower {
		settings, err := domain.NormalizeCopySettings(list)
		if err != nil {
			return nil, fmt.Errorf("settings for %s: %w", follower, err)
		}
		if err := store.Replace(ctx, follower, settings); err != nil {
			return nil, err
		}
		followers = append(followers, follower)
	}
	return followers, nil
}

func loadMarkets(path string) ([]domain.Market, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markets: %w", err)
	}
	var resp kalshi.MarketsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse markets: %w", err)
	}
	markets := make([]domain.Market, 0, len(resp.Markets))
	for i := range resp.Markets {
		markets = append(markets, resp.Markets[i].ToDomain())
	}
	return markets, nil
}

type staticMarkets []domain.Market

func (s staticMarkets) OpenMarkets(context.Context, int) ([]domain.Market, error) {
	return s, nil
}
