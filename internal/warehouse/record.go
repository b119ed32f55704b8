package warehouse

import (
	"encoding/json"
	"math/big"
	"strings"
	"time"
)

// Record is one result row keyed by column name.
type Record map[string]any

// NormalizeColumn is Normalize with the column's database type taken into
// account: DATE values render as a calendar date without a time part.
func NormalizeColumn(v any, dbType string) any {
	if t, ok := v.(time.Time); ok && strings.EqualFold(dbType, "DATE") {
		return t.Format(time.DateOnly)
	}
	return Normalize(v)
}

// Normalize converts a driver value into something encoding/json renders
// faithfully.
func Normalize(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []byte:
		return strings.ToValidUTF8(string(x), "\uFFFD")
	case string:
		return strings.ToValidUTF8(x, "\uFFFD")
	case *big.Rat:
		if x == nil {
			return nil
		}
		f, _ := x.Float64()
		return f
	case *big.Float:
		if x == nil {
			return nil
		}
		f, _ := x.Float64()
		return f
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	}
	return v
}
