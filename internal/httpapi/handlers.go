package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/notify"
	"solana-kalshi-copier/internal/solana"
)

const maxWebhookBody = 5 << 20

func (a *api) ingest(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		a.fail(c, &domain.ValidationError{Field: "body", Reason: err.Error()})
		return
	}

	res, err := a.Ingestor.Ingest(c.Request.Context(), body, domain.EventSourceWebhook)
	if err != nil {
		a.fail(c, err)
		return
	}
	if !res.Succeeded() {
		// Providers only redeliver after a non-2xx answer.
		status := http.StatusInternalServerError
		if res.Retryable > 0 {
			status = http.StatusServiceUnavailable
		}
		a.logger.Warn("webhook batch failed",
			zap.Int("failed", res.Failed),
			zap.Int("retryable", res.Retryable))
		c.JSON(status, gin.H{"success": false, "result": res})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

func (a *api) getSettings(c *gin.Context) {
	follower := c.GetString(followerKey)
	settings, err := a.Settings.Get(c.Request.Context(), follower)
	if err != nil {
		a.fail(c, domain.Persistence("get settings", err))
		return
	}
	if settings == nil {
		settings = []domain.CopySetting{}
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// putSettings replaces the follower's whole list. The body is either the list itself
// or {"settings": [...]}. Traders that become active get a trader-followed notice.
func (a *api) putSettings(c *gin.Context) {
	ctx := c.Request.Context()
	follower := c.GetString(followerKey)
	if err := solana.ValidateWalletAddress(follower); err != nil {
		a.fail(c, &domain.ValidationError{Field: "wallet", Reason: err.Error()})
		return
	}

	raw, err := decodeSettingsBody(c.Request.Body)
	if err != nil {
		a.fail(c, err)
		return
	}
	settings, err := domain.NormalizeCopySettings(raw)
	if err != nil {
		a.fail(c, err)
		return
	}
	for i, s := range settings {
		if err := solana.ValidateWalletAddress(s.TraderID); err != nil {
			a.fail(c, &domain.ValidationError{Field: "settings[" + strconv.Itoa(i) + "].traderId", Reason: err.Error()})
			return
		}
	}

	previous, err := a.Settings.Get(ctx, follower)
	if err != nil {
		a.fail(c, domain.Persistence("get settings", err))
		return
	}
	if err := a.Settings.Replace(ctx, follower, settings); err != nil {
		a.fail(c, domain.Persistence("replace settings", err))
		return
	}

	wasActive := make(map[string]bool, len(previous))
	for _, s := range previous {
		wasActive[s.TraderID] = s.IsActive
	}
	for _, s := range settings {
		if !s.IsActive || wasActive[s.TraderID] {
			continue
		}
		if _, err := a.Notifications.Emit(ctx, follower, notify.TraderFollowed(s.TraderID)); err != nil {
			a.logger.Warn("trader-followed notification failed",
				zap.String("follower", follower), zap.String("trader", s.TraderID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func decodeSettingsBody(r io.Reader) ([]map[string]any, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &domain.ValidationError{Field: "body", Reason: "invalid JSON"}
	}

	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Settings []map[string]any `json:"settings"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.Settings == nil {
		return nil, &domain.ValidationError{Field: "body", Reason: "expected a settings array"}
	}
	return wrapped.Settings, nil
}

func (a *api) recentTrades(c *gin.Context) {
	limit, offset, err := pageParams(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	page, err := a.Ledger.RecentGlobal(c.Request.Context(), limit, offset)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *api) followerTrades(c *gin.Context) {
	limit, offset, err := pageParams(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	filter, err := filterParams(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	page, err := a.Ledger.ByWallet(c.Request.Context(), c.GetString(followerKey), limit, offset, filter)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *api) followerStats(c *gin.Context) {
	stats, err := a.Ledger.Stats(c.Request.Context(), c.GetString(followerKey))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func pageParams(c *gin.Context) (int, int, error) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := intQuery(c, "offset")
	if err != nil {
		return 0, 0, err
	}
	if offset < 0 {
		return 0, 0, &domain.ValidationError{Field: "offset", Reason: "must not be negative"}
	}
	return limit, offset, nil
}

func filterParams(c *gin.Context) (domain.LedgerFilter, error) {
	f := domain.LedgerFilter{
		Platform: strings.ToLower(c.Query("platform")),
		Side:     strings.ToLower(c.Query("side")),
		Action:   strings.ToLower(c.Query("action")),
	}
	if f.Side != "" && f.Side != domain.OrderSideYes && f.Side != domain.OrderSideNo {
		return f, &domain.ValidationError{Field: "side", Reason: "must be yes or no"}
	}
	if f.Action != "" && f.Action != domain.OrderActionBuy && f.Action != domain.OrderActionSell {
		return f, &domain.ValidationError{Field: "action", Reason: "must be buy or sell"}
	}

	var err error
	if f.From, err = int64Query(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = int64Query(c, "to"); err != nil {
		return f, err
	}
	if f.From > 0 && f.To > 0 && f.From > f.To {
		return f, &domain.ValidationError{Field: "from", Reason: "after to"}
	}
	return f, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &domain.ValidationError{Field: key, Reason: "must be an integer"}
	}
	return n, nil
}

func int64Query(c *gin.Context, key string) (int64, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &domain.ValidationError{Field: key, Reason: "must be unix milliseconds"}
	}
	return n, nil
}

func (a *api) listNotifications(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		a.fail(c, err)
		return
	}
	inbox, err := a.Notifications.List(c.Request.Context(), c.GetString(followerKey), limit)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inbox)
}

func (a *api) createNotification(c *gin.Context) {
	var req notify.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, &domain.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}
	n, err := a.Notifications.EmitRequest(c.Request.Context(), c.GetString(followerKey), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (a *api) markRead(c *gin.Context) {
	if err := a.Notifications.MarkRead(c.Request.Context(), c.GetString(followerKey), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *api) markAllRead(c *gin.Context) {
	if err := a.Notifications.MarkAllRead(c.Request.Context(), c.GetString(followerKey)); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *api) clearNotifications(c *gin.Context) {
	if err := a.Notifications.Clear(c.Request.Context(), c.GetString(followerKey)); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *api) stream(c *gin.Context) {
	if a.Stream == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "streaming disabled"})
		return
	}
	a.Stream.ServeWS(c.Writer, c.Request, c.GetString(followerKey))
}

func (a *api) matchMarkets(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		a.fail(c, &domain.ValidationError{Field: "q", Reason: "required"})
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		a.fail(c, err)
		return
	}
	if limit <= 0 || limit > 50 {
		limit = 5
	}

	ranked, err := a.Markets.Rank(c.Request.Context(), q, limit)
	if err != nil {
		a.fail(c, err)
		return
	}
	resp := gin.H{"query": q, "candidates": ranked, "ticker": nil}
	if len(ranked) > 0 {
		resp["ticker"] = ranked[0].Market.Ticker
	}
	c.JSON(http.StatusOK, resp)
}

func (a *api) clearMarketCache(c *gin.Context) {
	a.Markets.ClearCache()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *api) walletHistory(c *gin.Context) {
	if a.Signatures == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "history disabled"})
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		a.fail(c, err)
		return
	}
	if limit <= 0 {
		limit = 20
	}
	events, err := a.Signatures.History(c.Request.Context(), c.Param("wallet"), limit)
	if err != nil {
		a.fail(c, domain.Persistence("wallet history", err))
		return
	}
	if events == nil {
		events = []*domain.TradeEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
