package solana

import "sort"

// TokenTransfersFromBalances derives owner's net SPL token movements from the pre/post
// balances of tx. A positive delta becomes a transfer to owner, a negative one a transfer
// from owner. Results are ordered by mint for determinism.
func TokenTransfersFromBalances(tx *Transaction, owner string) []TokenTransfer {
	if tx == nil || tx.Meta == nil || owner == "" {
		return nil
	}

	delta := make(map[string]float64)
	for _, b := range tx.Meta.PreTokenBalances {
		if b.Owner == owner {
			delta[b.Mint] -= b.UIAmount
		}
	}
	for _, b := range tx.Meta.PostTokenBalances {
		if b.Owner == owner {
			delta[b.Mint] += b.UIAmount
		}
	}

	mints := make([]string, 0, len(delta))
	for mint, d := range delta {
		if d != 0 {
			mints = append(mints, mint)
		}
	}
	sort.Strings(mints)

	transfers := make([]TokenTransfer, 0, len(mints))
	for _, mint := range mints {
		d := delta[mint]
		t := TokenTransfer{Mint: mint}
		if d > 0 {
			t.ToUserAccount = owner
			t.TokenAmount = d
		} else {
			t.FromUserAccount = owner
			t.TokenAmount = -d
		}
		transfers = append(transfers, t)
	}
	return transfers
}

// ActivityFromTransaction builds an EnhancedTransaction-shaped record from a raw
// transaction so RPC-sourced activity flows through the same event parser.
func ActivityFromTransaction(tx *Transaction, wallet, description string) EnhancedTransaction {
	a := EnhancedTransaction{
		Signature:   tx.Signature,
		FeePayer:    tx.FeePayer(),
		Description: description,
		Timestamp:   tx.BlockTime,
	}
	if a.FeePayer == "" {
		a.FeePayer = wallet
	}
	a.TokenTransfers = TokenTransfersFromBalances(tx, wallet)
	return a
}
