package solana

import "context"

// RPCClient is the subset of the Solana JSON-RPC HTTP API the watcher relies on.
type RPCClient interface {
	// GetSignaturesForAddress returns signatures involving address, newest first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves a confirmed transaction. Returns nil, nil when unknown.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSlot returns the current slot, used as a liveness probe.
	GetSlot(ctx context.Context) (int64, error)
}

// Transaction is a confirmed transaction reduced to what trade inference needs.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// FeePayer returns the first account key, which pays fees and signs.
func (t *Transaction) FeePayer() string {
	if t == nil || t.Message == nil || len(t.Message.AccountKeys) == 0 {
		return ""
	}
	return t.Message.AccountKeys[0]
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// TokenBalance is one SPL token account balance before or after a transaction.
type TokenBalance struct {
	AccountIndex int     `json:"accountIndex"`
	Mint         string  `json:"mint"`
	Owner        string  `json:"owner"`
	UIAmount     float64 `json:"-"`
}
