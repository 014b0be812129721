package transaction

// AssetRef identifies a holding touched by a transaction: a container
// (portfolio or wallet) paired with a ticker.
type AssetRef struct {
	ContainerID string
	TickerID    string
}

// AffectedPortfolioAssets returns every (portfolio, ticker) pair the
// transaction may have touched.
func AffectedPortfolioAssets(txs ...Transaction) []AssetRef {
	var refs []AssetRef
	for _, t := range txs {
		refs = append(refs, crossRefs(
			[]string{t.PortfolioID, t.Portfolio2},
			[]string{t.TickerID, t.Ticker2ID},
		)...)
	}
	return dedupe(refs)
}

// AffectedWalletAssets returns every (wallet, ticker) pair the transaction may
// have touched.
func AffectedWalletAssets(txs ...Transaction) []AssetRef {
	var refs []AssetRef
	for _, t := range txs {
		refs = append(refs, crossRefs(
			[]string{t.WalletID, t.Wallet2},
			[]string{t.TickerID, t.Ticker2ID},
		)...)
	}
	return dedupe(refs)
}

func crossRefs(ids, tickers []string) []AssetRef {
	var refs []AssetRef
	for _, id := range ids {
		if id == "" {
			continue
		}
		for _, ticker := range tickers {
			if ticker == "" {
				continue
			}
			refs = append(refs, AssetRef{ContainerID: id, TickerID: ticker})
		}
	}
	return refs
}

func dedupe(refs []AssetRef) []AssetRef {
	seen := make(map[AssetRef]bool, len(refs))
	result := refs[:0]
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		result = append(result, ref)
	}
	return result
}
