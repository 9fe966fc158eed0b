// Package normalize contains the pure parsing and unit-conversion functions
// applied to raw scraped listings before enrichment and persistence.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// usdRates converts a detected currency to USD. Fixed rates: listings are
// compared against each other, not settled.
var usdRates = map[string]float64{
	"USD": 1.00,
	"EUR": 1.08,
	"CAD": 0.73,
	"GBP": 1.26,
}

// currencySymbols are checked before codes; first match wins.
var currencySymbols = []struct {
	symbol   string
	currency string
}{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
}

// currencyCodes are checked after symbols, case-insensitively. CAD has no
// unambiguous symbol and is matched by code only.
var currencyCodes = []string{"USD", "EUR", "CAD", "GBP"}

var numberRun = regexp.MustCompile(`[0-9.]+`)

// Price is the parsed form of a free-text price string.
type Price struct {
	Amount   *float64
	Currency string // ISO-like code, "" when unknown
}

// ParsePrice extracts a numeric amount and a currency from free-form price
// text such as "$1,500.50/month" or "EUR 1850 per month".
func ParsePrice(text string) Price {
	text = strings.TrimSpace(text)
	if text == "" {
		return Price{}
	}

	currency := detectCurrency(text)

	cleaned := text
	for _, sc := range currencySymbols {
		cleaned = strings.ReplaceAll(cleaned, sc.symbol, "")
	}
	for _, code := range currencyCodes {
		cleaned = replaceFold(cleaned, code, "")
	}
	cleaned = replaceFold(cleaned, "/month", "")
	cleaned = replaceFold(cleaned, "per month", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	p := Price{Currency: currency}
	if run := numberRun.FindString(cleaned); run != "" {
		if v, err := strconv.ParseFloat(run, 64); err == nil {
			p.Amount = &v
		}
	}
	return p
}

// ConvertToUSD converts amount to US dollars using the fixed rate table.
// Unknown currencies yield nil.
func ConvertToUSD(amount *float64, currency string) *float64 {
	if amount == nil {
		return nil
	}
	rate, ok := usdRates[strings.ToUpper(currency)]
	if !ok {
		return nil
	}
	v := *amount * rate
	return &v
}

func detectCurrency(text string) string {
	for _, sc := range currencySymbols {
		if strings.Contains(text, sc.symbol) {
			return sc.currency
		}
	}
	upper := strings.ToUpper(text)
	for _, code := range currencyCodes {
		if strings.Contains(upper, code) {
			return code
		}
	}
	return ""
}

// replaceFold removes every case-insensitive occurrence of old from s.
func replaceFold(s, old, new string) string {
	if old == "" {
		return s
	}
	lower := strings.ToLower(s)
	oldLower := strings.ToLower(old)
	var b strings.Builder
	start := 0
	for {
		idx := strings.Index(lower[start:], oldLower)
		if idx < 0 {
			b.WriteString(s[start:])
			return b.String()
		}
		abs := start + idx
		b.WriteString(s[start:abs])
		b.WriteString(new)
		start = abs + len(old)
	}
}
