package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeLedgerID computes a deterministic ledger entry id using SHA256.
// Formula: SHA256(source_signature|trader_id)
// Returns hex-encoded hash (64 characters).
func ComputeLedgerID(sourceSignature, traderID string) string {
	data := fmt.Sprintf("%s|%s", sourceSignature, traderID)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
