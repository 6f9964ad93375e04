package domain

import "testing"

func TestLedgerFilter_Matches(t *testing.T) {
	entry := &LedgerEntry{
		Platform:    PlatformKalshi,
		OrderSide:   OrderSideYes,
		OrderAction: OrderActionBuy,
		CreatedAt:   1_000,
	}

	tests := []struct {
		name   string
		filter LedgerFilter
		want   bool
	}{
		{"empty filter", LedgerFilter{}, true},
		{"platform match", LedgerFilter{Platform: PlatformKalshi}, true},
		{"platform mismatch", LedgerFilter{Platform: "other"}, false},
		{"side mismatch", LedgerFilter{Side: OrderSideNo}, false},
		{"action match", LedgerFilter{Action: OrderActionBuy}, true},
		{"inside range", LedgerFilter{From: 500, To: 1_000}, true},
		{"before range", LedgerFilter{From: 1_001}, false},
		{"after range", LedgerFilter{To: 999}, false},
		{"conjunction fails on one field", LedgerFilter{Platform: PlatformKalshi, Action: OrderActionSell}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(entry); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLedgerStatus_IsTerminal(t *testing.T) {
	if LedgerStatusPending.IsTerminal() {
		t.Error("pending must not be terminal")
	}
	for _, s := range []LedgerStatus{LedgerStatusExecuted, LedgerStatusFailed, LedgerStatusSkipped} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}
