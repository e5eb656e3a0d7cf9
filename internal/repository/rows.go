package repository

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"shuttle-ledger/internal/store"
)

// Column readers tolerate what each backend hands back: lib/pq gives native values,
// PostgREST gives json.Number and RFC3339 strings, the memory store gives whatever was
// written.

func getString(r store.Row, col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return toText(v)
	}
}

func getStringPtr(r store.Row, col string) *string {
	if r[col] == nil {
		return nil
	}
	s := getString(r, col)
	return &s
}

func getInt64(r store.Row, col string) int64 {
	switch v := r[col].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(math.Round(v))
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return int64(math.Round(f))
	case string:
		i, _ := strconv.ParseInt(v, 10, 64)
		return i
	case []byte:
		i, _ := strconv.ParseInt(string(v), 10, 64)
		return i
	default:
		return 0
	}
}

func getInt(r store.Row, col string) int {
	return int(getInt64(r, col))
}

func getIntPtr(r store.Row, col string) *int {
	if r[col] == nil {
		return nil
	}
	i := getInt(r, col)
	return &i
}

func getBool(r store.Row, col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

func getTime(r store.Row, col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func getTimePtr(r store.Row, col string) *time.Time {
	if r[col] == nil {
		return nil
	}
	t := getTime(r, col)
	if t.IsZero() {
		return nil
	}
	return &t
}

// nullable writes nil for a nil pointer so the column is stored as null
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func toText(v any) string {
	switch x := v.(type) {
	case json.Number:
		return x.String()
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
