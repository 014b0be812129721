package transaction

import (
	"reflect"
	"testing"
)

func TestAffectedPortfolioAssets(t *testing.T) {
	tx := Transaction{
		PortfolioID: "p1",
		Portfolio2:  "p2",
		TickerID:    "btc",
		Ticker2ID:   "usdt",
	}

	got := AffectedPortfolioAssets(tx)
	want := []AssetRef{
		{ContainerID: "p1", TickerID: "btc"},
		{ContainerID: "p1", TickerID: "usdt"},
		{ContainerID: "p2", TickerID: "btc"},
		{ContainerID: "p2", TickerID: "usdt"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAffectedSkipsEmptyIDs(t *testing.T) {
	tx := Transaction{WalletID: "w1", TickerID: "btc"}

	got := AffectedWalletAssets(tx)
	want := []AssetRef{{ContainerID: "w1", TickerID: "btc"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if refs := AffectedPortfolioAssets(tx); len(refs) != 0 {
		t.Fatalf("expected no portfolio refs, got %v", refs)
	}
}

func TestAffectedDeduplicatesAcrossTransactions(t *testing.T) {
	a := Transaction{PortfolioID: "p1", TickerID: "btc"}
	b := Transaction{PortfolioID: "p1", TickerID: "btc"}

	got := AffectedPortfolioAssets(a, b)
	if len(got) != 1 {
		t.Fatalf("expected 1 deduplicated ref, got %v", got)
	}
}
