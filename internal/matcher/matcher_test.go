package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-kalshi-copier/internal/catalog"
	"solana-kalshi-copier/internal/domain"
)

type staticCatalog struct {
	snap        *catalog.Snapshot
	err         error
	invalidated int
}

func (s *staticCatalog) Current(context.Context) (*catalog.Snapshot, error) { return s.snap, s.err }
func (s *staticCatalog) Invalidate()                                        { s.invalidated++ }

func market(ticker, title, subtitle string, volume, created int64) domain.Market {
	return domain.Market{
		Ticker: ticker, Title: title, Subtitle: subtitle,
		Status: domain.MarketStatusOpen, Volume: volume, CreatedAt: created,
	}
}

func TestNormalizeAndTokens(t *testing.T) {
	assert.Equal(t, "will btc close above 100k", Normalize("  Will BTC close above $100K?! "))
	assert.Equal(t, []string{"btc", "close", "above", "100k"}, Tokens("Will BTC close above $100K? BTC"))
	assert.Empty(t, Tokens("the of and ..."))
}

func TestRank_Scoring(t *testing.T) {
	markets := []domain.Market{
		market("FED", "Fed rate cut in March", "", 10, 1),
		market("BTC", "Bitcoin above 100k", "Year end", 10, 1),
		market("ETH", "Ethereum above 5k", "", 10, 1),
	}

	ranked := Rank(markets, "bitcoin above 100k", DefaultMinScore)
	require.NotEmpty(t, ranked)
	assert.Equal(t, "BTC", ranked[0].Market.Ticker)
	assert.InDelta(t, 1.5, ranked[0].Score, 1e-9)
	assert.True(t, ranked[0].TitleMatch)

	// "above" alone is 1/3 overlap with ETH and clears 0.3.
	require.Len(t, ranked, 2)
	assert.Equal(t, "ETH", ranked[1].Market.Ticker)
	assert.InDelta(t, 1.0/3, ranked[1].Score, 1e-9)
}

func TestRank_SubtitleCounts(t *testing.T) {
	markets := []domain.Market{market("X", "Election winner", "Democratic party", 0, 0)}
	ranked := Rank(markets, "democratic party", DefaultMinScore)
	require.Len(t, ranked, 1)
	assert.InDelta(t, 1.5, ranked[0].Score, 1e-9)
	assert.False(t, ranked[0].TitleMatch)
}

func TestRank_NoOverlapIsNoMatch(t *testing.T) {
	markets := []domain.Market{market("BTC", "Bitcoin above 100k", "", 0, 0)}
	assert.Empty(t, Rank(markets, "super bowl champion", DefaultMinScore))
	assert.Empty(t, Rank(markets, "", DefaultMinScore))
	assert.Empty(t, Rank(markets, "swapped 2 SOL for", DefaultMinScore))
}

func TestRank_TieBreaks(t *testing.T) {
	tests := []struct {
		name    string
		markets []domain.Market
		query   string
		want    string
	}{
		{
			name: "title phrase beats subtitle phrase",
			markets: []domain.Market{
				market("SUB", "Winner", "golden state warriors", 100, 5),
				market("TTL", "golden state warriors", "", 1, 1),
			},
			query: "golden state warriors",
			want:  "TTL",
		},
		{
			name: "higher volume wins",
			markets: []domain.Market{
				market("LOW", "Rain in Seattle", "", 5, 9),
				market("HIGH", "Rain in Seattle", "", 50, 1),
			},
			query: "rain seattle",
			want:  "HIGH",
		},
		{
			name: "newer market wins on equal volume",
			markets: []domain.Market{
				market("OLD", "Rain in Seattle", "", 5, 1),
				market("NEW", "Rain in Seattle", "", 5, 9),
			},
			query: "rain seattle",
			want:  "NEW",
		},
		{
			name: "ticker order settles full ties",
			markets: []domain.Market{
				market("B", "Rain in Seattle", "", 5, 1),
				market("A", "Rain in Seattle", "", 5, 1),
			},
			query: "rain seattle",
			want:  "A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				ranked := Rank(tt.markets, tt.query, DefaultMinScore)
				require.NotEmpty(t, ranked)
				assert.Equal(t, tt.want, ranked[0].Market.Ticker)
			}
		})
	}
}

func TestMatcher_Match(t *testing.T) {
	cat := &staticCatalog{snap: &catalog.Snapshot{Markets: []domain.Market{
		market("BTC", "Bitcoin above 100k", "", 0, 0),
	}}}
	m := New(cat, 0, nil)

	c, ok, err := m.Match(context.Background(), "Bought YES on Bitcoin above 100k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "BTC", c.Market.Ticker)

	_, ok, err = m.Match(context.Background(), "nothing relevant here")
	require.NoError(t, err)
	assert.False(t, ok)

	m.ClearCache()
	assert.Equal(t, 1, cat.invalidated)
}

func TestMatcher_StaleCatalogStillMatches(t *testing.T) {
	cat := &staticCatalog{
		snap: &catalog.Snapshot{Markets: []domain.Market{market("BTC", "Bitcoin above 100k", "", 0, 0)}},
		err:  domain.ErrCatalogStale,
	}
	c, ok, err := New(cat, 0, nil).Match(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "BTC", c.Market.Ticker)
}

func TestMatcher_CatalogUnavailable(t *testing.T) {
	cat := &staticCatalog{err: domain.ErrCatalogUnavailable}
	_, ok, err := New(cat, 0, nil).Match(context.Background(), "bitcoin")
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestMatcher_RankLimit(t *testing.T) {
	cat := &staticCatalog{snap: &catalog.Snapshot{Markets: []domain.Market{
		market("A", "Rain in Seattle", "", 3, 0),
		market("B", "Rain in Portland", "", 2, 0),
		market("C", "Rain in Denver", "", 1, 0),
	}}}
	ranked, err := New(cat, 0, nil).Rank(context.Background(), "rain", 2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "A", ranked[0].Market.Ticker)
}
