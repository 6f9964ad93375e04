package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestComputeLedgerID(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		traderID  string
	}{
		{
			name:      "typical signature",
			signature: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
			traderID:  "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		},
		{
			name:      "empty trader",
			signature: "sig",
			traderID:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLedgerID(tt.signature, tt.traderID)

			if len(got) != 64 {
				t.Errorf("ComputeLedgerID() length = %d, want 64", len(got))
			}

			sum := sha256.Sum256([]byte(tt.signature + "|" + tt.traderID))
			if want := hex.EncodeToString(sum[:]); got != want {
				t.Errorf("ComputeLedgerID() = %s, want %s", got, want)
			}

			if again := ComputeLedgerID(tt.signature, tt.traderID); again != got {
				t.Errorf("ComputeLedgerID() not deterministic: %s != %s", got, again)
			}
		})
	}
}

func TestComputeLedgerID_DistinctInputs(t *testing.T) {
	a := ComputeLedgerID("sig1", "traderA")
	b := ComputeLedgerID("sig1", "traderB")
	c := ComputeLedgerID("sig2", "traderA")

	if a == b || a == c || b == c {
		t.Errorf("expected distinct ids, got %s %s %s", a, b, c)
	}

	// Separator prevents "ab|c" colliding with "a|bc".
	if ComputeLedgerID("ab", "c") == ComputeLedgerID("a", "bc") {
		t.Error("separator collision")
	}
}
