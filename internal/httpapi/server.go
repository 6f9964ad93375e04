// Package httpapi exposes the copier over HTTP: webhook ingestion, follower settings,
// ledger queries, notifications and operator tools.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/ingestion"
	"solana-kalshi-copier/internal/matcher"
	"solana-kalshi-copier/internal/notify"
	"solana-kalshi-copier/internal/observability"
	"solana-kalshi-copier/internal/storage"
)

// Ingestor accepts webhook bodies.
type Ingestor interface {
	Ingest(ctx context.Context, body []byte, source string) (ingestion.Result, error)
}

// Ledger answers trade history queries.
type Ledger interface {
	RecentGlobal(ctx context.Context, limit, offset int) (domain.LedgerPage, error)
	ByWallet(ctx context.Context, wallet string, limit, offset int, filter domain.LedgerFilter) (domain.LedgerPage, error)
	Stats(ctx context.Context, wallet string) (domain.LedgerStats, error)
}

// Notifications manages per-follower notices.
type Notifications interface {
	EmitRequest(ctx context.Context, user string, req notify.Request) (*domain.Notification, error)
	Emit(ctx context.Context, user string, n domain.Notification) (*domain.Notification, error)
	List(ctx context.Context, user string, limit int) (*notify.Inbox, error)
	MarkRead(ctx context.Context, user, id string) error
	MarkAllRead(ctx context.Context, user string) error
	Clear(ctx context.Context, user string) error
}

// Stream upgrades a request into a live notification feed.
type Stream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, user string)
}

// Markets ranks catalog markets for operator tooling.
type Markets interface {
	Rank(ctx context.Context, query string, limit int) ([]matcher.Candidate, error)
	ClearCache()
}

// StatusFunc reports component state for GET /status.
type StatusFunc func(ctx context.Context) map[string]any

// Deps wires the API to the pipeline.
type Deps struct {
	Ingestor      Ingestor
	Settings      storage.CopySettingStore
	Signatures    storage.SignatureLog // optional, enables wallet history
	Ledger        Ledger
	Notifications Notifications
	Stream        Stream // optional
	Markets       Markets
	Status        StatusFunc // optional

	WebhookToken string // empty disables the check
	JWTSecret    string // empty disables follower auth
	Logger       *zap.Logger
}

type api struct {
	Deps
	logger *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	a := &api{Deps: d, logger: d.Logger.Named("http")}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.logger))

	r.GET("/health", a.health)
	r.GET("/status", a.status)
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	r.POST("/webhooks/activity", webhookAuth(d.WebhookToken), a.ingest)

	g := r.Group("/api")
	g.GET("/trades", a.recentTrades)
	g.GET("/markets/match", a.matchMarkets)
	g.POST("/markets/cache/clear", a.clearMarketCache)
	g.GET("/wallets/:wallet/history", a.walletHistory)

	f := g.Group("/followers/:wallet", followerAuth(d.JWTSecret))
	f.GET("/settings", a.getSettings)
	f.PUT("/settings", a.putSettings)
	f.GET("/trades", a.followerTrades)
	f.GET("/stats", a.followerStats)
	f.GET("/notifications", a.listNotifications)
	f.POST("/notifications", a.createNotification)
	f.DELETE("/notifications", a.clearNotifications)
	f.POST("/notifications/read-all", a.markAllRead)
	f.POST("/notifications/:id/read", a.markRead)
	f.GET("/notifications/stream", a.stream)

	return r
}

// NewServer wraps the router in an http.Server.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (a *api) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *api) status(c *gin.Context) {
	out := gin.H{"status": "ok"}
	if a.Status != nil {
		for k, v := range a.Status(c.Request.Context()) {
			out[k] = v
		}
	}
	c.JSON(http.StatusOK, out)
}
