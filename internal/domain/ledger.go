package domain

// LedgerStatus is the processing state of a copied trade.
type LedgerStatus string

const (
	LedgerStatusPending  LedgerStatus = "pending"
	LedgerStatusExecuted LedgerStatus = "executed"
	LedgerStatusFailed   LedgerStatus = "failed"
	LedgerStatusSkipped  LedgerStatus = "skipped"
)

// IsTerminal reports whether no further transition is allowed.
func (s LedgerStatus) IsTerminal() bool {
	return s == LedgerStatusExecuted || s == LedgerStatusFailed || s == LedgerStatusSkipped
}

// Order sides and actions on the destination exchange.
const (
	OrderSideYes = "yes"
	OrderSideNo  = "no"

	OrderActionBuy  = "buy"
	OrderActionSell = "sell"

	PlatformKalshi = "kalshi"
)

// OriginalTrade is the copied part of the source TradeEvent.
type OriginalTrade struct {
	Market        string `json:"market"` // raw description of the source trade
	Side          Side   `json:"side"`
	WalletAddress string `json:"walletAddress"`
}

// LedgerEntry records the outcome of copying one TradeEvent for one follower.
// ID = sha256(sourceSignature|traderId); rows are scoped by Follower.
type LedgerEntry struct {
	ID              string        `json:"id"`
	Follower        string        `json:"follower"`
	TraderID        string        `json:"traderId"`
	SourceSignature string        `json:"sourceSignature"`
	OriginalTrade   OriginalTrade `json:"originalTrade"`
	Status          LedgerStatus  `json:"status"`
	Platform        string        `json:"platform"`
	KalshiTicker    string        `json:"kalshiTicker,omitempty"`
	OrderSide       string        `json:"side"`   // yes | no
	OrderAction     string        `json:"action"` // buy | sell
	SizeUSD         float64       `json:"sizeUsd"`
	OrderID         string        `json:"orderId,omitempty"`
	Error           string        `json:"error,omitempty"`
	IsSimulation    bool          `json:"isSimulation"`
	CreatedAt       int64         `json:"createdAt"`            // unix ms
	ResolvedAt      int64         `json:"resolvedAt,omitempty"` // unix ms, 0 while pending
}

// Resolution is the terminal write applied to a pending entry.
type Resolution struct {
	Status       LedgerStatus
	KalshiTicker string
	SizeUSD      float64
	OrderID      string
	Error        string
	ResolvedAt   int64
}

// LedgerFilter narrows ledger queries. Zero values mean "any"; fields compose conjunctively.
type LedgerFilter struct {
	Platform string
	Side     string // yes | no
	Action   string // buy | sell
	From     int64  // inclusive, unix ms
	To       int64  // inclusive, unix ms
}

// Matches reports whether e satisfies every set field of the filter.
func (f LedgerFilter) Matches(e *LedgerEntry) bool {
	if f.Platform != "" && e.Platform != f.Platform {
		return false
	}
	if f.Side != "" && e.OrderSide != f.Side {
		return false
	}
	if f.Action != "" && e.OrderAction != f.Action {
		return false
	}
	if f.From > 0 && e.CreatedAt < f.From {
		return false
	}
	if f.To > 0 && e.CreatedAt > f.To {
		return false
	}
	return true
}

// LedgerQuery selects a page of entries, newest first.
type LedgerQuery struct {
	Follower string // empty = all followers
	Filter   LedgerFilter
	Limit    int
	Offset   int
}

// LedgerPage is one page of a ledger query.
type LedgerPage struct {
	Entries []*LedgerEntry `json:"trades"`
	Total   int            `json:"total"`
	HasMore bool           `json:"hasMore"`
}

// LedgerStats aggregates a follower's entries.
type LedgerStats struct {
	Follower   string  `json:"wallet"`
	TradeCount int     `json:"tradeCount"`
	Executed   int     `json:"executed"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
	Pending    int     `json:"pending"`
	WinRate    float64 `json:"winRate"` // executed / (executed + failed)
	VolumeUSD  float64 `json:"volumeUsd"`
}
