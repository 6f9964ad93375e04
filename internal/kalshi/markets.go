package kalshi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"solana-kalshi-copier/internal/domain"
)

// maxPageSize is the largest page the markets endpoint serves.
const maxPageSize = 1000

// Markets fetches markets with the given status, following cursors until limit
// markets were collected. limit <= 0 fetches every page.
func (c *Client) Markets(ctx context.Context, status string, limit int) ([]domain.Market, error) {
	var out []domain.Market
	cursor := ""

	for {
		pageSize := maxPageSize
		if limit > 0 && limit-len(out) < pageSize {
			pageSize = limit - len(out)
		}

		query := url.Values{}
		query.Set("limit", strconv.Itoa(pageSize))
		if status != "" {
			query.Set("status", status)
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var resp MarketsResponse
		if err := c.get(ctx, "/markets", query, false, &resp); err != nil {
			return nil, fmt.Errorf("get markets: %w", err)
		}
		for i := range resp.Markets {
			out = append(out, resp.Markets[i].ToDomain())
		}

		if resp.Cursor == "" || len(resp.Markets) == 0 || (limit > 0 && len(out) >= limit) {
			break
		}
		cursor = resp.Cursor
	}

	return out, nil
}

// OpenMarkets fetches up to limit open markets.
func (c *Client) OpenMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	return c.Markets(ctx, string(domain.MarketStatusOpen), limit)
}

// GetMarket fetches a single market by ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (*domain.Market, error) {
	var resp SingleMarketResponse
	if err := c.get(ctx, "/markets/"+url.PathEscape(ticker), nil, false, &resp); err != nil {
		return nil, fmt.Errorf("get market %s: %w", ticker, err)
	}
	m := resp.Market.ToDomain()
	return &m, nil
}

// ToDomain converts the API market. Unknown statuses of tradable markets map to open.
func (m *APIMarket) ToDomain() domain.Market {
	subtitle := m.Subtitle
	if subtitle == "" {
		subtitle = m.YesSubTitle
	}
	return domain.Market{
		Ticker:      m.Ticker,
		EventTicker: m.EventTicker,
		Title:       m.Title,
		Subtitle:    subtitle,
		Status:      marketStatus(m.Status),
		Volume:      m.Volume,
		CreatedAt:   parseTimestamp(m.CreatedTime),
		YesAsk:      m.YesAsk,
		NoAsk:       m.NoAsk,
	}
}

func marketStatus(s string) domain.MarketStatus {
	switch s {
	case "open", "active", "initialized":
		return domain.MarketStatusOpen
	case "settled", "finalized", "determined":
		return domain.MarketStatusSettled
	default:
		return domain.MarketStatusClosed
	}
}

// parseTimestamp returns unix ms, or 0 for empty or invalid input.
func parseTimestamp(iso string) int64 {
	if iso == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05", iso)
		if err != nil {
			return 0
		}
	}
	return t.UnixMilli()
}
