package symbol

import "strings"

// Symbol is a base/quote pair.
type Symbol struct {
	Base  string
	Quote string
}

var quoteCurrencies = []string{"USDT", "USDC", "BUSD", "TUSD", "USD", "BTC", "ETH"}

// Parse accepts "BTC/USDT", "BTCUSDT" or "BTC/USDT:USDT" and splits it into
// base and quote. Unknown quotes leave Quote empty with Base set to the
// whole input.
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	if parts := strings.SplitN(s, "/", 2); len(parts) == 2 {
		return Symbol{
			Base:  strings.TrimSpace(parts[0]),
			Quote: strings.TrimSpace(parts[1]),
		}
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Symbol{Base: s}
}

// Canonical renders the symbol in exchange-flat form (BTCUSDT). A missing
// quote defaults to USDT.
func (s Symbol) Canonical() string {
	if s.Base == "" {
		return ""
	}
	quote := s.Quote
	if quote == "" {
		quote = "USDT"
	}
	return s.Base + quote
}

// Normalize canonicalizes a list of symbols: trim, upper-case, USDT-default
// quote, de-dup, input order preserved.
func Normalize(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		canon := Parse(raw).Canonical()
		if canon == "" {
			continue
		}
		if _, ok := seen[canon]; ok {
			continue
		}
		seen[canon] = struct{}{}
		out = append(out, canon)
	}
	return out
}
