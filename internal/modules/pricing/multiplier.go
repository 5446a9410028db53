package pricing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const neutralMultiplier = 1.0

// ResolveMultiplier looks up key in m and returns its numeric value. Anything
// missing or unparsable yields 1.0; the value is otherwise returned as stored,
// so sellers may configure discounts (<1) and surcharges (>1).
func ResolveMultiplier(m Multipliers, key string) float64 {
	if len(m) == 0 || key == "" {
		return neutralMultiplier
	}
	raw, ok := m[key]
	if !ok {
		return neutralMultiplier
	}
	v, ok := toFloat(raw)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return neutralMultiplier
	}
	return v
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
