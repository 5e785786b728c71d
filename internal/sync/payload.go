package sync

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/dmfranc/stripemirror/pkg/currency"
)

// Payload is one decoded processor object. Synchronizers read fields straight
// off the map so an absent key and an explicit null stay distinguishable.
type Payload = map[string]any

// DecodePayload unmarshals a raw processor object.
func DecodePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func str(p Payload, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func strPtr(p Payload, key string) *string {
	if v, ok := p[key].(string); ok {
		return &v
	}
	return nil
}

func boolean(p Payload, key string) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return false
}

func boolPtr(p Payload, key string) *bool {
	if v, ok := p[key].(bool); ok {
		return &v
	}
	return nil
}

func integer(p Payload, key string) int {
	if v, ok := numeric(p[key]); ok {
		return int(v)
	}
	return 0
}

func intPtr(p Payload, key string) *int {
	if v, ok := numeric(p[key]); ok {
		n := int(v)
		return &n
	}
	return nil
}

func int64Val(p Payload, key string) int64 {
	if v, ok := numeric(p[key]); ok {
		return v
	}
	return 0
}

func int64Ptr(p Payload, key string) *int64 {
	if v, ok := numeric(p[key]); ok {
		return &v
	}
	return nil
}

func numeric(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func subObject(p Payload, key string) Payload {
	if v, ok := p[key].(map[string]any); ok {
		return v
	}
	return nil
}

func list(p Payload, key string) []Payload {
	raw, ok := p[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Payload, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// objectList unwraps the processor's {"object": "list", "data": [...]} shape.
func objectList(p Payload, key string) []Payload {
	wrapper := subObject(p, key)
	if wrapper == nil {
		return nil
	}
	return list(wrapper, "data")
}

func has(p Payload, key string) bool {
	_, ok := p[key]
	return ok
}

// amount reads an integer minor-unit amount and scales it per the payload's
// currency.
func amount(p Payload, amountKey, currencyKey string) decimal.Decimal {
	v, _ := numeric(p[amountKey])
	return currency.AmountForDB(v, str(p, currencyKey))
}

func amountPtr(p Payload, amountKey, currencyKey string) *decimal.Decimal {
	v, ok := numeric(p[amountKey])
	if !ok {
		return nil
	}
	d := currency.AmountForDB(v, str(p, currencyKey))
	return &d
}

// decimalPtr reads an unscaled numeric field (e.g. a percentage) as a decimal.
func decimalPtr(p Payload, key string) *decimal.Decimal {
	switch n := p[key].(type) {
	case float64:
		d := decimal.NewFromFloat(n)
		return &d
	case int64:
		d := decimal.NewFromInt(n)
		return &d
	case int:
		d := decimal.NewFromInt(int64(n))
		return &d
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return nil
		}
		return &d
	default:
		return nil
	}
}

// rawJSON re-encodes a sub-object for jsonb storage. Returns nil when the key
// is absent or null.
func rawJSON(p Payload, key string) json.RawMessage {
	v, ok := p[key]
	if !ok || v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// objectID accepts either an expanded object or a bare id string.
func objectID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if id, ok := t["id"].(string); ok {
			return id
		}
	}
	return ""
}
