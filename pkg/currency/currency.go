// Package currency converts between Stripe's wire representation of money and
// time and the mirror's storage representation. Stripe reports amounts as
// integers in the currency's minor unit, except for zero-decimal currencies
// where the integer already is the human amount.
package currency

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ZeroDecimalCurrencies are the currencies whose integer representation needs
// no 1/100 scaling.
// https://support.stripe.com/questions/which-zero-decimal-currencies-does-stripe-support
var ZeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

var hundred = decimal.NewFromInt(100)

// IsZeroDecimal reports whether the currency needs no minor-unit scaling.
func IsZeroDecimal(currency string) bool {
	return ZeroDecimalCurrencies[strings.ToLower(currency)]
}

// AmountForDB converts a Stripe integer amount into the decimal stored by the
// mirror. The division is exact decimal arithmetic, never binary float.
func AmountForDB(amount int64, currency string) decimal.Decimal {
	if currency == "" {
		currency = "usd"
	}
	d := decimal.NewFromInt(amount)
	if IsZeroDecimal(currency) {
		return d
	}
	return d.Div(hundred)
}

// AmountForAPI converts a stored decimal back into Stripe's integer
// representation.
func AmountForAPI(amount decimal.Decimal, currency string) int64 {
	if currency == "" {
		currency = "usd"
	}
	if IsZeroDecimal(currency) {
		return amount.IntPart()
	}
	return amount.Mul(hundred).IntPart()
}

// ConvertTimestamp interprets seconds since the epoch as a UTC time.
func ConvertTimestamp(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}

// TimestampPtr is ConvertTimestamp for optional values.
func TimestampPtr(seconds int64) *time.Time {
	t := ConvertTimestamp(seconds)
	return &t
}

// TimestampField reads an epoch timestamp out of a decoded payload, returning
// nil when the field is missing or null.
func TimestampField(payload map[string]any, field string) *time.Time {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		return TimestampPtr(int64(v))
	case int64:
		return TimestampPtr(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil
		}
		return TimestampPtr(n)
	default:
		return nil
	}
}

// Symbols maps currency codes to their display glyphs.
var Symbols = map[string]string{
	"aud": "$",
	"cad": "$",
	"chf": "CHF",
	"cny": "¥",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
	"myr": "RM",
	"sgd": "$",
	"usd": "$",
}

// Symbol returns the display glyph for a currency, falling back to the
// uppercased code.
func Symbol(currency string) string {
	if sym, ok := Symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency)
}
