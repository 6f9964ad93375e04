package kalshi

// MarketsResponse from GET /markets.
type MarketsResponse struct {
	Markets []APIMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

// APIMarket is a market as returned by the API. Prices are in cents.
type APIMarket struct {
	Ticker      string `json:"ticker"`
	EventTicker string `json:"event_ticker"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	YesSubTitle string `json:"yes_sub_title"`
	Status      string `json:"status"`
	YesAsk      int    `json:"yes_ask"`
	NoAsk       int    `json:"no_ask"`
	Volume      int64  `json:"volume"`
	CreatedTime string `json:"created_time"` // ISO 8601
}

// SingleMarketResponse from GET /markets/{ticker}.
type SingleMarketResponse struct {
	Market APIMarket `json:"market"`
}

// BalanceResponse from GET /portfolio/balance.
type BalanceResponse struct {
	Balance int64 `json:"balance"` // cents
}

// CreateOrderRequest is the body of POST /portfolio/orders.
type CreateOrderRequest struct {
	Ticker        string `json:"ticker"`
	ClientOrderID string `json:"client_order_id"`
	Side          string `json:"side"`   // yes | no
	Action        string `json:"action"` // buy | sell
	Count         int64  `json:"count"`
	Type          string `json:"type"` // market | limit
	BuyMaxCost    int64  `json:"buy_max_cost,omitempty"`
}

// Order is the API representation of a placed order.
type Order struct {
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	Ticker        string `json:"ticker"`
	Status        string `json:"status"`
	Side          string `json:"side"`
	Action        string `json:"action"`
}

// CreateOrderResponse from POST /portfolio/orders.
type CreateOrderResponse struct {
	Order Order `json:"order"`
}
