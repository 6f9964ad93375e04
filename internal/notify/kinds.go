package notify

import (
	"fmt"
	"strings"

	"solana-kalshi-copier/internal/domain"
)

// Kind is the closed set of notices callers may request.
type Kind string

const (
	KindTraderFollowed Kind = "trader-followed"
	KindTradeDetected  Kind = "trade-detected"
	KindCopyExecuted   Kind = "copy-executed"
	KindPriceAlert     Kind = "price-alert"
	KindGeneric        Kind = "generic"
)

// IsValid checks if the kind is a valid value.
func (k Kind) IsValid() bool {
	switch k {
	case KindTraderFollowed, KindTradeDetected, KindCopyExecuted, KindPriceAlert, KindGeneric:
		return true
	}
	return false
}

// Request describes a notice to build from caller-supplied fields.
type Request struct {
	Kind          Kind                    `json:"kind"`
	Type          domain.NotificationType `json:"type,omitempty"` // generic only
	Title         string                  `json:"title,omitempty"`
	Message       string                  `json:"message,omitempty"`
	WalletAddress string                  `json:"walletAddress,omitempty"`
	TxSignature   string                  `json:"txSignature,omitempty"`
	Ticker        string                  `json:"ticker,omitempty"`
	Market        string                  `json:"market,omitempty"`
	PriceCents    int                     `json:"priceCents,omitempty"`
	SizeUSD       float64                 `json:"sizeUsd,omitempty"`
}

// Build turns a request into a notification.
func Build(req Request) (domain.Notification, error) {
	switch req.Kind {
	case KindTraderFollowed:
		if req.WalletAddress == "" {
			return domain.Notification{}, &domain.ValidationError{Field: "walletAddress", Reason: "required"}
		}
		return TraderFollowed(req.WalletAddress), nil
	case KindTradeDetected:
		if req.WalletAddress == "" {
			return domain.Notification{}, &domain.ValidationError{Field: "walletAddress", Reason: "required"}
		}
		return TradeDetected(&domain.TradeEvent{
			WalletAddress:   req.WalletAddress,
			SourceSignature: req.TxSignature,
			RawDescription:  req.Market,
		}), nil
	case KindCopyExecuted:
		if req.Ticker == "" {
			return domain.Notification{}, &domain.ValidationError{Field: "ticker", Reason: "required"}
		}
		return domain.Notification{
			Type:          domain.NotificationTrade,
			Title:         "Trade copied",
			Message:       fmt.Sprintf("Copied $%.2f on %s", req.SizeUSD, req.Ticker),
			WalletAddress: req.WalletAddress,
			TxSignature:   req.TxSignature,
		}, nil
	case KindPriceAlert:
		if req.Ticker == "" {
			return domain.Notification{}, &domain.ValidationError{Field: "ticker", Reason: "required"}
		}
		return PriceAlert(req.Ticker, req.Market, req.PriceCents), nil
	case KindGeneric:
		if strings.TrimSpace(req.Title) == "" {
			return domain.Notification{}, &domain.ValidationError{Field: "title", Reason: "required"}
		}
		t := req.Type
		if t == "" {
			t = domain.NotificationInfo
		}
		if !t.IsValid() {
			return domain.Notification{}, &domain.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", t)}
		}
		return domain.Notification{
			Type:          t,
			Title:         req.Title,
			Message:       req.Message,
			WalletAddress: req.WalletAddress,
			TxSignature:   req.TxSignature,
		}, nil
	default:
		return domain.Notification{}, &domain.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", req.Kind)}
	}
}

// TraderFollowed announces a newly followed trader wallet.
func TraderFollowed(trader string) domain.Notification {
	return domain.Notification{
		Type:          domain.NotificationInfo,
		Title:         "Now following trader",
		Message:       fmt.Sprintf("Trades by %s will be copied", shortAddress(trader)),
		WalletAddress: trader,
	}
}

// TradeDetected announces on-chain activity by a followed trader.
func TradeDetected(e *domain.TradeEvent) domain.Notification {
	msg := fmt.Sprintf("%s made a trade", shortAddress(e.WalletAddress))
	if e.RawDescription != "" {
		msg = fmt.Sprintf("%s: %s", shortAddress(e.WalletAddress), e.RawDescription)
	}
	return domain.Notification{
		Type:          domain.NotificationInfo,
		Title:         "Trade detected",
		Message:       msg,
		WalletAddress: e.WalletAddress,
		TxSignature:   e.SourceSignature,
	}
}

// PriceAlert announces a market price level.
func PriceAlert(ticker, title string, priceCents int) domain.Notification {
	name := ticker
	if title != "" {
		name = title
	}
	return domain.Notification{
		Type:    domain.NotificationInfo,
		Title:   "Price alert",
		Message: fmt.Sprintf("%s is at %d¢", name, priceCents),
	}
}

// ForLedgerEntry builds the notice for a terminal ledger entry. Skipped entries get
// none. The dedup key makes a second notice for the same entry impossible.
func ForLedgerEntry(e *domain.LedgerEntry) (domain.Notification, bool) {
	n := domain.Notification{
		WalletAddress: e.TraderID,
		TxSignature:   e.SourceSignature,
		DedupKey:      LedgerDedupKey(e),
	}
	mode := ""
	if e.IsSimulation {
		mode = " (simulated)"
	}

	switch {
	case e.Status == domain.LedgerStatusExecuted:
		n.Type = domain.NotificationTrade
		n.Title = "Trade copied" + mode
		n.Message = fmt.Sprintf("%s %s $%.2f on %s", capitalize(e.OrderAction),
			strings.ToUpper(e.OrderSide), e.SizeUSD, e.KalshiTicker)
	case e.Status == domain.LedgerStatusFailed && e.Error == domain.NoMatchMessage:
		n.Type = domain.NotificationWarning
		n.Title = "No matching market"
		n.Message = fmt.Sprintf("Could not find a market for %q", e.OriginalTrade.Market)
	case e.Status == domain.LedgerStatusFailed:
		n.Type = domain.NotificationError
		n.Title = "Copy failed" + mode
		n.Message = e.Error
	default:
		return domain.Notification{}, false
	}
	return n, true
}

// LedgerDedupKey identifies the notice for one ledger entry.
func LedgerDedupKey(e *domain.LedgerEntry) string {
	return "ledger:" + e.Follower + ":" + e.ID
}

func shortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:4] + "…" + addr[len(addr)-4:]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
