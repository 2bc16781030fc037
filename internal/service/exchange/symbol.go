package exchange

import "strings"

// SplitPair normalizes "BTC", "btcusdt", "BTC/USDT", "BTC-USDT" and "BTC_USDT"
// into base and quote. Bare coins get defaultQuote.
func SplitPair(pair, defaultQuote string) (base, quote string) {
	p := strings.ToUpper(strings.TrimSpace(pair))
	defaultQuote = strings.ToUpper(defaultQuote)
	for _, sep := range []string{"/", "-", "_"} {
		if i := strings.Index(p, sep); i > 0 {
			return p[:i], p[i+1:]
		}
	}
	if defaultQuote != "" && len(p) > len(defaultQuote) && strings.HasSuffix(p, defaultQuote) {
		return strings.TrimSuffix(p, defaultQuote), defaultQuote
	}
	return p, defaultQuote
}
