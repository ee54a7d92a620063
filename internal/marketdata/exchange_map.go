package marketdata

// exchangeSuffix holds the provider-specific ticker suffix and currency for
// one market-identifier code (MIC).
type exchangeSuffix struct {
	YahooSuffix        string
	AlphaVantageSuffix string
	Currency           string
}

// exchangeMap is the deterministic MIC -> provider-suffix table backing the
// rules resolver. Entries cover the major venues named in SPEC_FULL.md
// §4.C; XNAS/XNYS (US venues) resolve to an empty suffix on every provider.
var exchangeMap = map[string]exchangeSuffix{
	"XTSE": {YahooSuffix: ".TO", AlphaVantageSuffix: ".TRT", Currency: "CAD"},
	"XLON": {YahooSuffix: ".L", AlphaVantageSuffix: ".LON", Currency: "GBp"},
	"XETR": {YahooSuffix: ".DE", AlphaVantageSuffix: ".DEX", Currency: "EUR"},
	"XSWX": {YahooSuffix: ".SW", AlphaVantageSuffix: ".SWX", Currency: "CHF"},
	"XPAR": {YahooSuffix: ".PA", AlphaVantageSuffix: ".PAR", Currency: "EUR"},
	"XAMS": {YahooSuffix: ".AS", AlphaVantageSuffix: ".AMS", Currency: "EUR"},
	"XTKS": {YahooSuffix: ".T", AlphaVantageSuffix: ".TKS", Currency: "JPY"},
	"XHKG": {YahooSuffix: ".HK", AlphaVantageSuffix: ".HKG", Currency: "HKD"},
	"XNAS": {YahooSuffix: "", AlphaVantageSuffix: "", Currency: "USD"},
	"XNYS": {YahooSuffix: "", AlphaVantageSuffix: "", Currency: "USD"},
}

// SuffixFor returns the provider-specific suffix for a MIC, or ok=false for
// an unrecognized MIC.
func SuffixFor(mic string, provider ProviderID) (string, bool) {
	entry, ok := exchangeMap[mic]
	if !ok {
		return "", false
	}
	switch provider {
	case ProviderYahoo:
		return entry.YahooSuffix, true
	case ProviderAlphaVantage:
		return entry.AlphaVantageSuffix, true
	default:
		return "", false
	}
}

// CurrencyFor returns the quoted currency of a MIC, or ok=false if unknown.
func CurrencyFor(mic string) (string, bool) {
	entry, ok := exchangeMap[mic]
	if !ok {
		return "", false
	}
	return entry.Currency, true
}

// metalFuturesSymbols hardcodes Yahoo's futures tickers for precious metals,
// since Yahoo has no uniform spot-metal naming convention.
var metalFuturesSymbols = map[string]string{
	"GOLD":      "GC=F",
	"SILVER":    "SI=F",
	"PLATINUM":  "PL=F",
	"PALLADIUM": "PA=F",
}
