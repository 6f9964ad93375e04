package httpapi

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-kalshi-copier/internal/catalog"
	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/ingestion"
	"solana-kalshi-copier/internal/ledger"
	"solana-kalshi-copier/internal/matcher"
	"solana-kalshi-copier/internal/notify"
	"solana-kalshi-copier/internal/storage/memory"
)

type recordingProcessor struct {
	mu     sync.Mutex
	events []*domain.TradeEvent
	err    error
}

func (p *recordingProcessor) Process(_ context.Context, e *domain.TradeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type staticSource struct {
	markets []domain.Market
	err     error
}

func (s *staticSource) OpenMarkets(context.Context, int) ([]domain.Market, error) {
	return s.markets, s.err
}

type fixture struct {
	router    http.Handler
	processor *recordingProcessor
	settings  *memory.CopySettingStore
	ledger    *ledger.Ledger
	notify    *notify.Emitter
	source    *staticSource
}

func newWallet(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub)
}

func newFixture(t *testing.T, webhookToken, jwtSecret string) *fixture {
	t.Helper()

	proc := &recordingProcessor{}
	sigs := memory.NewSignatureLog(time.Hour, 10)
	settings := memory.NewCopySettingStore()
	led := ledger.New(ledger.Options{Store: memory.NewLedgerStore()})
	em := notify.New(notify.Options{Store: memory.NewNotificationStore()})
	src := &staticSource{markets: []domain.Market{
		{Ticker: "KXBTC-100K", Title: "Will Bitcoin reach 100k", Status: domain.MarketStatusOpen},
	}}
	cat := catalog.New(src, catalog.Options{})

	router := NewRouter(Deps{
		Ingestor:      ingestion.New(ingestion.Options{Processor: proc, Signatures: sigs}),
		Settings:      settings,
		Signatures:    sigs,
		Ledger:        led,
		Notifications: em,
		Stream:        notify.NewHub(nil),
		Markets:       matcher.New(cat, 0, nil),
		Status: func(context.Context) map[string]any {
			return map[string]any{"watcher": map[string]any{"tracked": 3}}
		},
		WebhookToken: webhookToken,
		JWTSecret:    jwtSecret,
	})

	return &fixture{router: router, processor: proc, settings: settings, ledger: led, notify: em, source: src}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealthStatusMetrics(t *testing.T) {
	f := newFixture(t, "", "")

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code)

	rec := f.do(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tracked":3`)

	rec = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "copier_")
}

func TestWebhook(t *testing.T) {
	f := newFixture(t, "hook-secret", "")
	wallet := newWallet(t)
	body := fmt.Sprintf(`[{"signature":"s1","feePayer":%q,"description":"Bitcoin 100k","timestamp":1700000000},{"signature":"s2"}]`, wallet)

	rec := f.do(t, http.MethodPost, "/webhooks/activity", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/webhooks/activity", body, "Authorization", "hook-secret")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool             `json:"success"`
		Result  ingestion.Result `json:"result"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Result.Received)
	assert.Equal(t, 1, resp.Result.Accepted)
	assert.Equal(t, 1, resp.Result.Rejected)
	require.Len(t, f.processor.events, 1)

	// Redelivery is short-circuited.
	rec = f.do(t, http.MethodPost, "/webhooks/activity", body, "Authorization", "Bearer hook-secret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.processor.events, 1)

	rec = f.do(t, http.MethodGet, "/api/wallets/"+wallet+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sourceSignature":"s1"`)

	rec = f.do(t, http.MethodPost, "/webhooks/activity", `"nope"`, "Authorization", "hook-secret")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_FailedBatchAsksForRedelivery(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"persistence failure", domain.Persistence("insert entry", errors.New("connection refused")), http.StatusServiceUnavailable},
		{"permanent failure", errors.New("bad state"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "", "")
			f.processor.err = tt.err
			body := fmt.Sprintf(`{"signature":"s1","feePayer":%q,"description":"Bitcoin 100k"}`, newWallet(t))

			rec := f.do(t, http.MethodPost, "/webhooks/activity", body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var resp struct {
				Success bool             `json:"success"`
				Result  ingestion.Result `json:"result"`
			}
			decode(t, rec, &resp)
			assert.False(t, resp.Success)
			assert.Equal(t, 1, resp.Result.Failed)

			// The signature was not recorded, so the redelivery reaches the processor again.
			f.processor.err = nil
			rec = f.do(t, http.MethodPost, "/webhooks/activity", body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Len(t, f.processor.events, 2)
		})
	}
}

func TestSettingsReplaceAndNotify(t *testing.T) {
	f := newFixture(t, "", "")
	follower := newWallet(t)
	trader := newWallet(t)
	idle := newWallet(t)

	body := fmt.Sprintf(`{"settings":[{"traderId":%q,"isActive":"true","allocationUsd":"100","maxPositionPercent":10},{"traderId":%q,"isActive":false}]}`, trader, idle)
	rec := f.do(t, http.MethodPut, "/api/followers/"+follower+"/settings", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/followers/"+follower+"/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Settings []domain.CopySetting `json:"settings"`
	}
	decode(t, rec, &got)
	require.Len(t, got.Settings, 2)
	assert.True(t, got.Settings[0].IsActive)
	assert.Equal(t, 100.0, got.Settings[0].AllocationUSD)
	assert.False(t, got.Settings[1].IsActive)

	// Replacing with the same active trader does not notify again.
	rec = f.do(t, http.MethodPut, "/api/followers/"+follower+"/settings", body)
	require.Equal(t, http.StatusOK, rec.Code)

	inbox, err := f.notify.List(context.Background(), follower, 0)
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, trader, inbox.Notifications[0].WalletAddress)
}

func TestSettingsValidation(t *testing.T) {
	f := newFixture(t, "", "")
	follower := newWallet(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"not a list", `{"foo":1}`},
		{"missing trader", `[{"isActive":true}]`},
		{"bad trader address", `[{"traderId":"not-a-wallet","isActive":true}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPut, "/api/followers/"+follower+"/settings", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := f.do(t, http.MethodPut, "/api/followers/bogus/settings", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFollowerTrades(t *testing.T) {
	f := newFixture(t, "", "")
	ctx := context.Background()
	follower := newWallet(t)

	for i := 0; i < 15; i++ {
		side := domain.OrderSideYes
		if i%3 == 0 {
			side = domain.OrderSideNo
		}
		_, _, err := f.ledger.Append(ctx, &domain.LedgerEntry{
			ID: fmt.Sprintf("id-%02d", i), Follower: follower, TraderID: "t", Platform: domain.PlatformKalshi,
			Status: domain.LedgerStatusExecuted, OrderSide: side, OrderAction: domain.OrderActionBuy,
			SizeUSD: 10, CreatedAt: int64(1000 + i),
		})
		require.NoError(t, err)
	}

	var first, second domain.LedgerPage
	rec := f.do(t, http.MethodGet, "/api/followers/"+follower+"/trades?limit=10&offset=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &first)
	rec = f.do(t, http.MethodGet, "/api/followers/"+follower+"/trades?limit=10&offset=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &second)

	assert.Equal(t, 15, first.Total)
	assert.Len(t, first.Entries, 10)
	assert.True(t, first.HasMore)
	assert.Len(t, second.Entries, 5)
	assert.False(t, second.HasMore)

	var filtered domain.LedgerPage
	rec = f.do(t, http.MethodGet, "/api/followers/"+follower+"/trades?side=no&from=1003", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &filtered)
	assert.Equal(t, 4, filtered.Total)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/followers/"+follower+"/trades?side=maybe", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/followers/"+follower+"/trades?limit=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/followers/"+follower+"/trades?offset=-1", "").Code)

	var stats domain.LedgerStats
	rec = f.do(t, http.MethodGet, "/api/followers/"+follower+"/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &stats)
	assert.Equal(t, 15, stats.TradeCount)
	assert.Equal(t, 150.0, stats.VolumeUSD)

	var global domain.LedgerPage
	rec = f.do(t, http.MethodGet, "/api/trades?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &global)
	assert.Len(t, global.Entries, 5)
	assert.Equal(t, "id-14", global.Entries[0].ID)
}

func TestNotifications(t *testing.T) {
	f := newFixture(t, "", "")
	user := newWallet(t)
	base := "/api/followers/" + user + "/notifications"

	rec := f.do(t, http.MethodPost, base, `{"kind":"generic","title":"Hello","message":"world"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var n domain.Notification
	decode(t, rec, &n)
	assert.Equal(t, domain.NotificationInfo, n.Type)

	rec = f.do(t, http.MethodPost, base, `{"kind":"price-alert","ticker":"KX-1","priceCents":55}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, base, `{"kind":"party"}`).Code)

	var inbox notify.Inbox
	rec = f.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &inbox)
	assert.Len(t, inbox.Notifications, 2)
	assert.Equal(t, 2, inbox.UnreadCount)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/"+n.ID+"/read", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, base+"/missing/read", "").Code)

	rec = f.do(t, http.MethodGet, base, "")
	decode(t, rec, &inbox)
	assert.Equal(t, 1, inbox.UnreadCount)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/read-all", "").Code)
	rec = f.do(t, http.MethodGet, base, "")
	decode(t, rec, &inbox)
	assert.Equal(t, 0, inbox.UnreadCount)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, base, "").Code)
	rec = f.do(t, http.MethodGet, base, "")
	decode(t, rec, &inbox)
	assert.Empty(t, inbox.Notifications)
}

func TestFollowerAuth(t *testing.T) {
	f := newFixture(t, "", "jwt-secret")
	user := newWallet(t)
	path := "/api/followers/" + user + "/notifications"

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, path, "", "Authorization", "Bearer garbage").Code)

	other, err := SignFollowerToken("jwt-secret", newWallet(t), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, path, "", "Authorization", "Bearer "+other).Code)

	forged, err := SignFollowerToken("other-secret", user, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, path, "", "Authorization", "Bearer "+forged).Code)

	expired, err := SignFollowerToken("jwt-secret", user, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, path, "", "Authorization", "Bearer "+expired).Code)

	token, err := SignFollowerToken("jwt-secret", user, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, "", "Authorization", "Bearer "+token).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path+"?token="+token, "").Code)

	// Public routes stay open.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/trades", "").Code)
}

func TestMatchMarkets(t *testing.T) {
	f := newFixture(t, "", "")

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/markets/match", "").Code)

	rec := f.do(t, http.MethodGet, "/api/markets/match?q=bitcoin+100k", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Ticker     *string             `json:"ticker"`
		Candidates []matcher.Candidate `json:"candidates"`
	}
	decode(t, rec, &resp)
	require.NotNil(t, resp.Ticker)
	assert.Equal(t, "KXBTC-100K", *resp.Ticker)

	rec = f.do(t, http.MethodGet, "/api/markets/match?q=lakers+parade", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp.Ticker = nil
	decode(t, rec, &resp)
	assert.Nil(t, resp.Ticker)
	assert.Empty(t, resp.Candidates)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/markets/cache/clear", "").Code)
}

func TestMatchMarkets_CatalogUnavailable(t *testing.T) {
	f := newFixture(t, "", "")
	f.source.err = errors.New("exchange down")

	rec := f.do(t, http.MethodGet, "/api/markets/match?q=bitcoin", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(&domain.ValidationError{Field: "x", Reason: "y"}))
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("entry: %w", domain.ErrNotFound)))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.ErrCatalogUnavailable))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(domain.ClassifyUpstream("op", context.DeadlineExceeded)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.Persistence("op", errors.New("x"))))
}
