package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CopySetting is one follower's copy rule for a tracked trader wallet.
// Treated as an immutable value; the whole list is replaced on update.
type CopySetting struct {
	TraderID           string   `json:"traderId"`
	IsActive           bool     `json:"isActive"`
	AllocationUSD      float64  `json:"allocationUsd"`
	MaxPositionPercent float64  `json:"maxPositionPercent"`
	StopLossPercent    *float64 `json:"stopLossPercent,omitempty"` // stored, not enforced
	CopyOpenPositions  bool     `json:"copyOpenPositions"`
}

// FollowerSetting binds a CopySetting to the follower that owns it.
type FollowerSetting struct {
	Follower string
	Setting  CopySetting
}

// TraderSubscription is a tracked trader wallet referenced by at least one active setting.
type TraderSubscription struct {
	Wallet            string
	CopyOpenPositions bool // true when any active follower asked to copy open positions
}

// NormalizeCopySettings coerces loosely-typed settings objects into CopySettings.
// traderId is stringified, isActive becomes a boolean and numeric fields default to zero.
// Entries without a traderId are rejected. A repeated traderId keeps the last entry,
// at the position of its first occurrence.
func NormalizeCopySettings(raw []map[string]any) ([]CopySetting, error) {
	out := make([]CopySetting, 0, len(raw))
	index := make(map[string]int, len(raw))

	for i, item := range raw {
		traderID := strings.TrimSpace(coerceString(item["traderId"]))
		if traderID == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("settings[%d].traderId", i), Reason: "required"}
		}

		s := CopySetting{
			TraderID:           traderID,
			IsActive:           coerceBool(item["isActive"]),
			AllocationUSD:      math.Max(0, coerceFloat(item["allocationUsd"])),
			MaxPositionPercent: clampPercent(coerceFloat(item["maxPositionPercent"])),
			CopyOpenPositions:  coerceBool(item["copyOpenPositions"]),
		}
		if v, ok := item["stopLossPercent"]; ok && v != nil {
			pct := clampPercent(coerceFloat(v))
			s.StopLossPercent = &pct
		}

		if pos, seen := index[traderID]; seen {
			out[pos] = s
			continue
		}
		index[traderID] = len(out)
		out = append(out, s)
	}

	return out, nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
