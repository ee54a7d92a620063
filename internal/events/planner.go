package events

// PortfolioJob is what planPortfolioJob decides from a batch: which
// accounts need their snapshots and valuations recomputed, and whether a
// market-data sync should run first. Nil AccountIDs means every
// non-archived account plus TOTAL.
type PortfolioJob struct {
	AccountIDs      []string
	NeedsMarketSync bool
}

// planPortfolioJob inspects a batch and decides whether portfolio work is
// needed at all, and for which accounts. ActivitySaved/ActivitiesImported
// and explicit PortfolioRecalcRequested trigger a market sync first (new
// activity may reference assets without recent quotes); FxRatesUpdated and
// QuotesUpdated already reflect a completed sync and only need a recompute.
func planPortfolioJob(batch []DomainEvent) *PortfolioJob {
	seen := make(map[string]struct{})
	var accountIDs []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		accountIDs = append(accountIDs, id)
	}

	var triggered, broad, needsSync bool

	for _, e := range batch {
		switch ev := e.(type) {
		case ActivitySaved:
			triggered, needsSync = true, true
			add(ev.AccountID)
		case ActivitiesImported:
			triggered, needsSync = true, true
			for _, id := range ev.AccountIDs {
				add(id)
			}
		case SnapshotSaved:
			triggered = true
			add(ev.AccountID)
		case PortfolioRecalcRequested:
			triggered, needsSync = true, true
			if len(ev.AccountIDs) == 0 {
				broad = true
			}
			for _, id := range ev.AccountIDs {
				add(id)
			}
		case FxRatesUpdated:
			triggered, broad = true, true
		case QuotesUpdated:
			triggered, broad = true, true
		}
	}

	if !triggered {
		return nil
	}
	job := &PortfolioJob{NeedsMarketSync: needsSync}
	if !broad {
		job.AccountIDs = accountIDs
	}
	return job
}

// planAssetEnrichment collects the distinct asset ids across every
// AssetEnrichmentRequested event in the batch.
func planAssetEnrichment(batch []DomainEvent) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range batch {
		ev, ok := e.(AssetEnrichmentRequested)
		if !ok {
			continue
		}
		for _, id := range ev.AssetIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// planBrokerSync collects the distinct accounts whose tracking mode just
// changed (New differs from Old), in either direction. Broker sync execution itself is out of
// scope (no cloud client is wired); the handler logs and returns.
func planBrokerSync(batch []DomainEvent) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range batch {
		ev, ok := e.(AccountTrackingModeChanged)
		if !ok || ev.New == ev.Old {
			continue
		}
		if _, dup := seen[ev.AccountID]; dup {
			continue
		}
		seen[ev.AccountID] = struct{}{}
		out = append(out, ev.AccountID)
	}
	return out
}
