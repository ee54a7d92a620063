package valuation

// CurrencyPair is one (from, to) FX requirement.
type CurrencyPair struct {
	From, To string
}

// CollectRequiredPairs walks every snapshot in a range and returns the
// distinct FX pairs the valuation pass will need, grounded in the
// original source's two-pass algorithm: account-currency/position-
// currency/cash-currency pairs are collected from the snapshots
// themselves; quote-currency pairs can only be known after the quote
// fetch (a quote's currency can differ from its position's declared
// currency), so they are added in a second call once quotes are in hand.
func CollectRequiredPairs(snapshots []SnapshotInput, baseCurrency string) []CurrencyPair {
	seen := make(map[CurrencyPair]struct{})
	add := func(from, to string) {
		if from == "" || to == "" || from == to {
			return
		}
		seen[CurrencyPair{From: from, To: to}] = struct{}{}
	}

	for _, snap := range snapshots {
		add(snap.AccountCurrency, baseCurrency)
		for _, pos := range snap.Positions {
			add(pos.Currency, snap.AccountCurrency)
		}
		for ccy := range snap.CashBalances {
			add(ccy, snap.AccountCurrency)
		}
	}

	return pairSlice(seen)
}

// CollectQuoteCurrencyPairs adds the (quote_currency -> account_currency)
// pairs discovered after quotes were fetched. Call this after the quote
// fetch and union the result with CollectRequiredPairs' output before the
// FX range fetch.
func CollectQuoteCurrencyPairs(snapshots []SnapshotInput, quoteCurrencyOf map[string]string) []CurrencyPair {
	seen := make(map[CurrencyPair]struct{})
	for _, snap := range snapshots {
		for _, pos := range snap.Positions {
			quoteCcy, ok := quoteCurrencyOf[pos.AssetID]
			if !ok || quoteCcy == "" || quoteCcy == snap.AccountCurrency {
				continue
			}
			seen[CurrencyPair{From: quoteCcy, To: snap.AccountCurrency}] = struct{}{}
		}
	}
	return pairSlice(seen)
}

func pairSlice(seen map[CurrencyPair]struct{}) []CurrencyPair {
	out := make([]CurrencyPair, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out
}
