package gateway

import (
	"encoding/json"

	"github.com/gatekit/checkin/internal/types"
)

// The upstream wraps payloads inconsistently: a bare array, {"msg": [...]},
// {"msg": {...}}, {"data": [...]}, {"guests": [...]}, or a bare object.
// Nothing past this file ever sees the envelope.

var listEnvelopeKeys = []string{"msg", "data", "guests", "attendees", "result"}

// decodeRecords normalizes any listing-shaped body to a flat record slice.
// A body that matches no known shape degrades to an empty slice, never an
// error: a malformed bulk listing must render as "no guests", not a crash.
func decodeRecords(body []byte) []types.RawRecord {
	var asAny any
	if err := json.Unmarshal(body, &asAny); err != nil {
		return []types.RawRecord{}
	}
	return recordsFrom(asAny)
}

func recordsFrom(v any) []types.RawRecord {
	switch t := v.(type) {
	case []any:
		out := make([]types.RawRecord, 0, len(t))
		for _, item := range t {
			if rec, ok := item.(map[string]any); ok {
				out = append(out, rec)
			}
		}
		return out
	case map[string]any:
		// The presence of an envelope key decides the shape outright: an
		// empty enveloped listing is an event with zero guests, not a
		// one-record listing of the envelope itself.
		enveloped := false
		for _, k := range listEnvelopeKeys {
			inner, ok := t[k]
			if !ok {
				continue
			}
			enveloped = true
			switch iv := inner.(type) {
			case []any:
				return recordsFrom(iv)
			case map[string]any:
				return recordsFrom(iv)
			}
		}
		if enveloped {
			return []types.RawRecord{}
		}
		// Bare object: treat as a one-record listing.
		return []types.RawRecord{t}
	}
	return []types.RawRecord{}
}

// decodeValidation normalizes a validate/scan response body. msg may be a
// plain string or an object carrying {message, info}; info may also sit at
// the top level, and is meaningful even on error responses.
func decodeValidation(status int, body []byte) types.ValidationResult {
	res := types.ValidationResult{Status: status, Error: status < 200 || status >= 300}

	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		if res.Error {
			res.Message = string(body)
		}
		return res
	}

	if v, ok := envelope["error"]; ok {
		switch t := v.(type) {
		case bool:
			res.Error = t
		case float64:
			res.Error = t != 0
		}
	}
	if info, ok := envelope["info"].(map[string]any); ok {
		res.Info = info
	}

	switch m := envelope["msg"].(type) {
	case string:
		res.Message = m
	case map[string]any:
		if s, ok := m["message"].(string); ok {
			res.Message = s
		}
		if res.Info == nil {
			if info, ok := m["info"].(map[string]any); ok {
				res.Info = info
			} else if _, hasMessage := m["message"]; !hasMessage {
				// {"msg": {...}} with no message key: the object IS the detail.
				res.Info = m
			}
		}
	}
	if res.Message == "" {
		if s, ok := envelope["message"].(string); ok {
			res.Message = s
		}
	}
	return res
}
