package resolver

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gatekit/checkin/internal/types"
)

// Str returns the first present, non-empty value among keys, stringified.
// Numbers are rendered without a decimal tail when integral.
func Str(raw types.RawRecord, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case json.Number:
			return t.String()
		case float64:
			if t == float64(int64(t)) {
				return strconv.FormatInt(int64(t), 10)
			}
			return strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			return strconv.Itoa(t)
		case int64:
			return strconv.FormatInt(t, 10)
		case bool:
			return strconv.FormatBool(t)
		default:
			if s := strings.TrimSpace(fmt.Sprintf("%v", t)); s != "" {
				return s
			}
		}
	}
	return ""
}

// Bool interprets the upstream's assorted truthiness encodings: true, 1,
// "1", "true", "yes". A "0"/"false"/absent value is false.
func Bool(raw types.RawRecord, keys ...string) bool {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t
		case float64:
			return t != 0
		case int:
			return t != 0
		case json.Number:
			n, _ := t.Float64()
			return n != 0
		case string:
			s := strings.ToLower(strings.TrimSpace(t))
			return s == "1" || s == "true" || s == "yes"
		}
	}
	return false
}

// timeLayouts covers the formats observed from the upstream API.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// Time parses the first present key as a timestamp; zero time when nothing
// parses. Unix-second numbers are accepted too.
func Time(raw types.RawRecord, keys ...string) time.Time {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				continue
			}
			for _, layout := range timeLayouts {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts
				}
			}
		case float64:
			if t > 0 {
				return time.Unix(int64(t), 0).UTC()
			}
		case json.Number:
			if n, err := t.Int64(); err == nil && n > 0 {
				return time.Unix(n, 0).UTC()
			}
		}
	}
	return time.Time{}
}

// Price parses the first present key as a money amount; zero when absent or
// unparseable.
func Price(raw types.RawRecord, keys ...string) decimal.Decimal {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return decimal.NewFromFloat(t)
		case int:
			return decimal.NewFromInt(int64(t))
		case json.Number:
			if d, err := decimal.NewFromString(t.String()); err == nil {
				return d
			}
		case string:
			s := strings.TrimSpace(strings.TrimPrefix(t, "$"))
			if d, err := decimal.NewFromString(s); err == nil {
				return d
			}
		}
	}
	return decimal.Zero
}
