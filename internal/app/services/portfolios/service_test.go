package portfolios

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bro-Nik/portfolio-backend/internal/app/domain/portfolio"
	"github.com/bro-Nik/portfolio-backend/internal/app/storage"
	"github.com/bro-Nik/portfolio-backend/internal/cache"
)

func newService() (*Service, *storage.Memory) {
	mem := storage.NewMemory()
	return NewService(mem, mem, cache.NewMemory(), time.Minute), mem
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", "Main", "crypto", "long term")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Get(ctx, "u1", p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Main" || got.Market != "crypto" {
		t.Fatalf("unexpected portfolio: %+v", got)
	}
}

func TestCreateDuplicateName(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", "Main", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, "u1", "Main", "", ""); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}

	// other users can reuse the name
	if _, err := svc.Create(ctx, "u2", "Main", "", ""); err != nil {
		t.Fatalf("create for other user: %v", err)
	}
}

func TestCreateEmptyName(t *testing.T) {
	svc, _ := newService()

	if _, err := svc.Create(context.Background(), "u1", "  ", "", ""); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestGetOtherUsersPortfolio(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", "Main", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, "u2", p.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign portfolio, got %v", err)
	}
}

func TestUpdateRenameConflict(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", "First", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	p, err := svc.Create(ctx, "u1", "Second", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Update(ctx, "u1", p.ID, "First", "", ""); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}

	// keeping the same name is not a conflict
	if _, err := svc.Update(ctx, "u1", p.ID, "Second", "stocks", ""); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestAddAssetTwice(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", "Main", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AddAsset(ctx, "u1", p.ID, "btc", ""); err != nil {
		t.Fatalf("add asset: %v", err)
	}
	if _, err := svc.AddAsset(ctx, "u1", p.ID, "btc", ""); !errors.Is(err, ErrAssetExists) {
		t.Fatalf("expected ErrAssetExists, got %v", err)
	}
}

func TestRemoveAssetFromOtherPortfolio(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	p1, _ := svc.Create(ctx, "u1", "First", "", "")
	p2, _ := svc.Create(ctx, "u1", "Second", "", "")
	a, err := svc.AddAsset(ctx, "u1", p1.ID, "btc", "")
	if err != nil {
		t.Fatalf("add asset: %v", err)
	}

	if err := svc.RemoveAsset(ctx, "u1", p2.ID, a.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.RemoveAsset(ctx, "u1", p1.ID, a.ID); err != nil {
		t.Fatalf("remove asset: %v", err)
	}
}

func TestDetailDistribution(t *testing.T) {
	svc, mem := newService()
	ctx := context.Background()

	p1, _ := svc.Create(ctx, "u1", "First", "", "")
	p2, _ := svc.Create(ctx, "u1", "Second", "", "")

	if _, err := mem.ApplyPortfolioAssetDelta(ctx, p1.ID, "btc", portfolio.AssetDelta{
		Quantity: decimal.NewFromInt(3),
		Amount:   decimal.NewFromInt(300),
	}); err != nil {
		t.Fatalf("seed asset: %v", err)
	}
	if _, err := mem.ApplyPortfolioAssetDelta(ctx, p2.ID, "btc", portfolio.AssetDelta{
		Quantity: decimal.NewFromInt(1),
		Amount:   decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	a, err := mem.FindPortfolioAsset(ctx, p1.ID, "btc")
	if err != nil {
		t.Fatalf("find asset: %v", err)
	}

	detail, err := svc.Detail(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}

	dist := detail.Distribution
	if !dist.TotalQuantity.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("total quantity = %s, want 4", dist.TotalQuantity)
	}
	if len(dist.Portfolios) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(dist.Portfolios))
	}
	for _, entry := range dist.Portfolios {
		switch entry.PortfolioID {
		case p1.ID:
			if !entry.Share.Equal(decimal.NewFromInt(75)) {
				t.Errorf("p1 share = %s, want 75", entry.Share)
			}
		case p2.ID:
			if !entry.Share.Equal(decimal.NewFromInt(25)) {
				t.Errorf("p2 share = %s, want 25", entry.Share)
			}
		default:
			t.Errorf("unexpected entry %+v", entry)
		}
	}
}

func TestListUsesCache(t *testing.T) {
	mem := storage.NewMemory()
	c := cache.NewMemory()
	svc := NewService(mem, mem, c, time.Minute)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", "Main", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.List(ctx, "u1"); err != nil {
		t.Fatalf("list: %v", err)
	}

	// a write behind the service's back is hidden until invalidation
	if _, err := mem.CreatePortfolio(ctx, portfolio.Portfolio{UserID: "u1", Name: "Hidden"}); err != nil {
		t.Fatalf("direct create: %v", err)
	}

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected cached list of 1, got %d", len(list))
	}

	svc.InvalidateList(ctx, "u1")
	list, err = svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected fresh list of 2, got %d", len(list))
	}
}
