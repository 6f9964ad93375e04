package solana

import "encoding/json"

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
	Memo      string
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// EnhancedTransaction is the parsed-activity shape delivered by webhook providers and
// returned by the enhanced transactions API. Unknown fields are ignored.
type EnhancedTransaction struct {
	Signature       string            `json:"signature"`
	FeePayer        string            `json:"feePayer"`
	Description     string            `json:"description"`
	Type            string            `json:"type,omitempty"`
	Source          string            `json:"source,omitempty"`
	Timestamp       int64             `json:"timestamp,omitempty"` // epoch seconds, 0 when absent
	TokenTransfers  []TokenTransfer   `json:"tokenTransfers,omitempty"`
	NativeTransfers []NativeTransfer  `json:"nativeTransfers,omitempty"`
	AccountData     []json.RawMessage `json:"accountData,omitempty"`
}

// TokenTransfer is an SPL token movement between user accounts.
type TokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	Mint            string  `json:"mint"`
	TokenAmount     float64 `json:"tokenAmount"`
}

// NativeTransfer is a SOL movement in lamports.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// Well-known quote mints. Transfers of these are the payment leg of a trade.
const (
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
	USDCMint       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint       = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// IsQuoteMint reports whether mint is SOL or a USD stablecoin.
func IsQuoteMint(mint string) bool {
	switch mint {
	case WrappedSOLMint, USDCMint, USDTMint:
		return true
	}
	return false
}
