package reporting

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"solana-kalshi-copier/internal/domain"
)

var ledgerHeader = []string{
	"id", "created_at", "resolved_at", "status", "trader", "source_signature", "description",
	"ticker", "side", "action", "size_usd", "order_id", "simulation", "error",
}

// WriteLedgerCSV writes entries as CSV with a header row.
func WriteLedgerCSV(w io.Writer, entries []*domain.LedgerEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledgerHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			e.ID,
			formatMillis(e.CreatedAt),
			formatMillis(e.ResolvedAt),
			string(e.Status),
			e.TraderID,
			e.SourceSignature,
			e.OriginalTrade.Market,
			e.KalshiTicker,
			e.OrderSide,
			e.OrderAction,
			strconv.FormatFloat(e.SizeUSD, 'f', 2, 64),
			e.OrderID,
			strconv.FormatBool(e.IsSimulation),
			e.Error,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
