package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Copy Trading Report\n\n")
	sb.WriteString(fmt.Sprintf("Follower: `%s`\n\n", r.Follower))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Window: %s → %s\n\n", windowBound(r.From, "start"), windowBound(r.To, "now")))

	// Summary
	s := r.Stats
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.TradeCount))
	sb.WriteString(fmt.Sprintf("| Executed | %d |\n", s.Executed))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", s.Failed))
	sb.WriteString(fmt.Sprintf("| Skipped | %d |\n", s.Skipped))
	sb.WriteString(fmt.Sprintf("| Pending | %d |\n", s.Pending))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", s.WinRate*100))
	sb.WriteString(fmt.Sprintf("| Volume (USD) | %.2f |\n", s.VolumeUSD))
	sb.WriteString("\n")

	sb.WriteString("## Markets\n\n")
	if len(r.Markets) > 0 {
		sb.WriteString("| Ticker | Executed | Failed | Volume (USD) |\n")
		sb.WriteString("|--------|----------|--------|--------------|\n")
		for _, m := range r.Markets {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f |\n", m.Ticker, m.Executed, m.Failed, m.VolumeUSD))
		}
	} else {
		sb.WriteString("No markets traded.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Daily Volume\n\n")
	if len(r.Daily) > 0 {
		sb.WriteString("| Day | Trades | Volume (USD) |\n")
		sb.WriteString("|-----|--------|--------------|\n")
		for _, d := range r.Daily {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f |\n", d.Day, d.Trades, d.VolumeUSD))
		}
	} else {
		sb.WriteString("No executed trades.\n")
	}
	sb.WriteString("\n")

	if len(r.Failures) > 0 {
		sb.WriteString("## Failure Reasons\n\n")
		sb.WriteString("| Reason | Count |\n")
		sb.WriteString("|--------|-------|\n")
		for _, f := range r.Failures {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", escapeCell(f.Reason), f.Count))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func windowBound(ms int64, open string) string {
	if ms == 0 {
		return open
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
