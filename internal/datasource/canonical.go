package datasource

import "strings"

// AssetClass groups symbols that share strategy/indicator parameter
// overrides (spec §4.4/§9 "asset-specific parameter overrides").
const (
	ClassCrypto = "crypto"
	ClassForex  = "forex"
	ClassIndex  = "index"
	ClassMetal  = "metal"
	ClassOther  = "other"
)

// cryptoQuotes lists quote currencies that mark a symbol as crypto.
var cryptoQuotes = []string{"USDT", "USDC", "BUSD", "BTC", "ETH"}

// forexPairs lists known forex majors (base+quote, no separator).
var forexPairs = map[string]bool{
	"EURUSD": true, "GBPUSD": true, "USDJPY": true, "AUDUSD": true,
	"USDCHF": true, "USDCAD": true, "NZDUSD": true, "EURGBP": true,
}

// indexSymbols lists the index/CFD tickers this spec's scanner covers.
var indexSymbols = map[string]bool{
	"US30": true, "US100": true, "US500": true, "UK100": true, "GER40": true,
}

var metalSymbols = map[string]bool{
	"XAUUSD": true, "XAGUSD": true,
}

// ClassOf maps a symbol to its asset class for parameter-override
// lookup (config.Settings.AssetOverrides is keyed by this class).
func ClassOf(symbol string) string {
	s := strings.ToUpper(symbol)
	if metalSymbols[s] {
		return ClassMetal
	}
	if indexSymbols[s] {
		return ClassIndex
	}
	if forexPairs[s] {
		return ClassForex
	}
	for _, q := range cryptoQuotes {
		if strings.HasSuffix(s, q) {
			return ClassCrypto
		}
	}
	return ClassOther
}
