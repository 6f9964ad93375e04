// Package matcher resolves free-text trade descriptions to exchange tickers.
package matcher

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"solana-kalshi-copier/internal/catalog"
	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/observability"
)

// DefaultMinScore is the lowest similarity that counts as a match.
const DefaultMinScore = 0.3

// containmentBonus is added when the whole query phrase occurs in the market text.
const containmentBonus = 0.5

// Catalog is the subset of *catalog.Catalog the matcher needs.
type Catalog interface {
	Current(ctx context.Context) (*catalog.Snapshot, error)
	Invalidate()
}

// Candidate is a scored market.
type Candidate struct {
	Market     domain.Market `json:"market"`
	Score      float64       `json:"score"`
	TitleMatch bool          `json:"titleMatch"` // query phrase found in the title
}

// Matcher scores catalog markets against queries. It holds no state of its own.
type Matcher struct {
	catalog  Catalog
	minScore float64
	logger   *zap.Logger
}

// New creates a Matcher. minScore <= 0 uses DefaultMinScore.
func New(cat Catalog, minScore float64, logger *zap.Logger) *Matcher {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{catalog: cat, minScore: minScore, logger: logger.Named("matcher")}
}

// Match returns the best market for query, or ok=false when nothing clears the threshold.
// A stale catalog is used as is; only domain.ErrCatalogUnavailable is returned.
func (m *Matcher) Match(ctx context.Context, query string) (Candidate, bool, error) {
	ranked, err := m.Rank(ctx, query, 1)
	if err != nil {
		return Candidate{}, false, err
	}
	observability.RecordMatch(len(ranked) > 0)
	if len(ranked) == 0 {
		return Candidate{}, false, nil
	}
	return ranked[0], true, nil
}

// Rank returns up to limit candidates above the threshold, best first. limit <= 0 returns all.
func (m *Matcher) Rank(ctx context.Context, query string, limit int) ([]Candidate, error) {
	snap, err := m.catalog.Current(ctx)
	if snap == nil {
		return nil, err
	}
	if err != nil && errors.Is(err, domain.ErrCatalogStale) {
		m.logger.Warn("matching against stale catalog", zap.Error(err))
	}

	ranked := Rank(snap.Markets, query, m.minScore)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// ClearCache invalidates the catalog so the next match refetches markets.
func (m *Matcher) ClearCache() {
	m.catalog.Invalidate()
}

// Rank scores markets against query and sorts the candidates at or above minScore.
//
// Ordering: score desc, title phrase match first, volume desc, created desc, ticker asc.
func Rank(markets []domain.Market, query string, minScore float64) []Candidate {
	qTokens := Tokens(query)
	if len(qTokens) == 0 {
		return nil
	}
	qPhrase := strings.Join(qTokens, " ")

	var out []Candidate
	for _, mk := range markets {
		score, titleMatch := score(qTokens, qPhrase, mk)
		if score < minScore {
			continue
		}
		out = append(out, Candidate{Market: mk, Score: score, TitleMatch: titleMatch})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TitleMatch != b.TitleMatch {
			return a.TitleMatch
		}
		if a.Market.Volume != b.Market.Volume {
			return a.Market.Volume > b.Market.Volume
		}
		if a.Market.CreatedAt != b.Market.CreatedAt {
			return a.Market.CreatedAt > b.Market.CreatedAt
		}
		return a.Market.Ticker < b.Market.Ticker
	})
	return out
}

// score is the fraction of query tokens found in title+subtitle, plus a bonus when
// the query phrase occurs verbatim.
func score(qTokens []string, qPhrase string, mk domain.Market) (float64, bool) {
	titleTokens := strings.Join(Tokens(mk.Title), " ")
	textTokens := Tokens(mk.Title + " " + mk.Subtitle)

	set := make(map[string]struct{}, len(textTokens))
	for _, t := range textTokens {
		set[t] = struct{}{}
	}
	hits := 0
	for _, t := range qTokens {
		if _, ok := set[t]; ok {
			hits++
		}
	}
	if hits == 0 {
		return 0, false
	}

	s := float64(hits) / float64(len(qTokens))
	titleMatch := containsPhrase(titleTokens, qPhrase)
	if titleMatch || containsPhrase(strings.Join(textTokens, " "), qPhrase) {
		s += containmentBonus
	}
	return s, titleMatch
}
