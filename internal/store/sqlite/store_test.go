package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/dynmarket/internal/market"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "market.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleItem(id, kind, cat string) market.Item {
	return market.Item{
		ID:          id,
		Kind:        kind,
		DisplayName: id,
		BuyPrice:    10.0,
		SellPrice:   7.0,
		Stock:       100,
		TotalBought: 5,
		TotalSold:   3,
		LastUpdated: time.Now().Truncate(time.Millisecond),
		CategoryID:  cat,
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cat := market.Category{ID: "blocks", Icon: "stone", DisplayName: "Blocks", Slot: 2}
	if err := s.SaveCategory(ctx, cat); err != nil {
		t.Fatalf("save category: %v", err)
	}
	want := sampleItem("stone", "stone", "blocks")
	if err := s.SaveItem(ctx, want); err != nil {
		t.Fatalf("save item: %v", err)
	}

	cats, err := s.LoadCategories(ctx)
	if err != nil {
		t.Fatalf("load categories: %v", err)
	}
	if len(cats) != 1 || cats[0] != cat {
		t.Errorf("categories = %+v, want [%+v]", cats, cat)
	}

	items, err := s.LoadItems(ctx)
	if err != nil {
		t.Fatalf("load items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	got := items[0]
	if !got.LastUpdated.Equal(want.LastUpdated) {
		t.Errorf("last updated = %v, want %v", got.LastUpdated, want.LastUpdated)
	}
	got.LastUpdated = want.LastUpdated
	if got != want {
		t.Errorf("item = %+v, want %+v", got, want)
	}
}

func TestSaveItemIsUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	it := sampleItem("stone", "stone", "blocks")
	if err := s.SaveItem(ctx, it); err != nil {
		t.Fatalf("first save: %v", err)
	}
	it.BuyPrice = 12.5
	it.Stock = 80
	if err := s.SaveItem(ctx, it); err != nil {
		t.Fatalf("second save: %v", err)
	}

	items, err := s.LoadItems(ctx)
	if err != nil {
		t.Fatalf("load items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 after upsert", len(items))
	}
	if items[0].BuyPrice != 12.5 || items[0].Stock != 80 {
		t.Errorf("item = %+v, want updated prices", items[0])
	}
}

func TestDeleteCategoryCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveCategory(ctx, market.Category{ID: "blocks", Slot: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCategory(ctx, market.Category{ID: "tools", Slot: 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveItem(ctx, sampleItem("stone", "stone", "blocks")); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveItem(ctx, sampleItem("pick", "iron_pickaxe", "tools")); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteCategory(ctx, "blocks"); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	cats, _ := s.LoadCategories(ctx)
	if len(cats) != 1 || cats[0].ID != "tools" {
		t.Errorf("categories = %+v, want only tools", cats)
	}
	items, _ := s.LoadItems(ctx)
	if len(items) != 1 || items[0].ID != "pick" {
		t.Errorf("items = %+v, want only pick", items)
	}
}

func TestTransactionLogOrderAndPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		r := market.Record{
			ID:        uuid.NewString(),
			Actor:     "alice",
			ItemID:    "stone",
			Category:  "blocks",
			Direction: market.Buy,
			Amount:    i + 1,
			UnitPrice: 10.0,
			At:        base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.AppendTransaction(ctx, r); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	recent, err := s.RecentTransactions(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("recent = %d records, want 3", len(recent))
	}
	if recent[0].Amount != 5 || recent[2].Amount != 3 {
		t.Errorf("recent order = %d,%d,%d, want newest first", recent[0].Amount, recent[1].Amount, recent[2].Amount)
	}

	n, err := s.PruneTransactions(ctx, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned = %d, want 2", n)
	}
	recent, _ = s.RecentTransactions(ctx, 10)
	if len(recent) != 3 {
		t.Errorf("records after prune = %d, want 3", len(recent))
	}
}

func TestResetAllClearsEverything(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveCategory(ctx, market.Category{ID: "blocks", Slot: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveItem(ctx, sampleItem("stone", "stone", "blocks")); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendTransaction(ctx, market.Record{
		ID: uuid.NewString(), Actor: "alice", ItemID: "stone",
		Direction: market.Buy, Amount: 1, UnitPrice: 10, At: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.ResetAll(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	cats, _ := s.LoadCategories(ctx)
	items, _ := s.LoadItems(ctx)
	recs, _ := s.RecentTransactions(ctx, 10)
	if len(cats) != 0 || len(items) != 0 || len(recs) != 0 {
		t.Errorf("after reset: %d categories, %d items, %d records, want all empty",
			len(cats), len(items), len(recs))
	}
}
