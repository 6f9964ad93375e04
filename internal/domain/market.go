package domain

// MarketStatus is the lifecycle state of an exchange market.
type MarketStatus string

const (
	MarketStatusOpen    MarketStatus = "open"
	MarketStatusClosed  MarketStatus = "closed"
	MarketStatusSettled MarketStatus = "settled"
)

// Market is a tradable market on the destination exchange.
// Owned by the catalog; snapshots are replaced wholesale.
type Market struct {
	Ticker      string
	EventTicker string
	Title       string
	Subtitle    string
	Status      MarketStatus
	Volume      int64 // contracts traded, used as a liquidity proxy
	CreatedAt   int64 // unix ms, 0 when unknown
	YesAsk      int   // cents
	NoAsk       int   // cents
}
