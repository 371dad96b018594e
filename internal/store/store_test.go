package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/menusweep/internal/model"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func report(url string, at time.Time, items ...model.CategorizedItem) *model.Report {
	menu := model.NewMenu()
	for _, it := range items {
		menu.Add(it)
	}
	return &model.Report{
		Subject:     "mcdonalds",
		SourceURL:   url,
		FetchedAt:   at,
		Duration:    42 * time.Second,
		Result:      model.DiscoveryResult{Categories: menu},
		Diagnostics: model.Diagnostics{Index: 77, Confidence: "medium"},
	}
}

func TestSaveReport_AssignsIDAndRoundTrips(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	r := report("https://www.ubereats.com/store/mcdonalds", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		model.CategorizedItem{Category: "Burgers", Name: "Big Mac", Price: "$5.49"},
		model.CategorizedItem{Category: "Sides", Name: "Fries", MediaRef: "https://cdn.test/f.jpg"},
	)

	id, err := s.SaveReport(ctx, r)
	if err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if id == "" || r.ScanID != id {
		t.Fatalf("Expected scan ID to be assigned, got %q / %q", id, r.ScanID)
	}

	loaded, err := s.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Result.ItemCount() != 2 {
		t.Errorf("Expected 2 items after load, got %d", loaded.Result.ItemCount())
	}
	if cats := loaded.Result.Categories.Categories(); len(cats) != 2 || cats[0] != "Burgers" {
		t.Errorf("Expected category order to survive, got %v", cats)
	}
	if loaded.Diagnostics.Index != 77 {
		t.Errorf("Expected completeness 77, got %d", loaded.Diagnostics.Index)
	}
}

func TestSaveReport_KeepsExistingIDAndReplaces(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	r := report("https://x.test/store/a", time.Now(), model.CategorizedItem{Category: "A", Name: "One"})
	r.ScanID = "fixed-id"
	if _, err := s.SaveReport(ctx, r); err != nil {
		t.Fatal(err)
	}

	r.Result.Categories.Add(model.CategorizedItem{Category: "A", Name: "Two"})
	if _, err := s.SaveReport(ctx, r); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	recent, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 {
		t.Fatalf("Expected one scan row, got %d", len(recent))
	}
	if recent[0].ID != "fixed-id" || recent[0].ItemCount != 2 {
		t.Errorf("Unexpected summary: %+v", recent[0])
	}

	items, err := s.FindItems(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Errorf("Expected items to be replaced, got %d", len(items))
	}
}

func TestRecent_OrderAndFilter(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, url := range []string{"https://x.test/a", "https://x.test/b", "https://x.test/a"} {
		if _, err := s.SaveReport(ctx, report(url, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.Recent(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 scans, got %d", len(all))
	}
	if !all[0].FetchedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("Expected newest first, got %v", all[0].FetchedAt)
	}
	if all[0].Duration != 42*time.Second {
		t.Errorf("Expected duration to round trip, got %v", all[0].Duration)
	}

	onlyA, err := s.Recent(ctx, "https://x.test/a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(onlyA) != 2 {
		t.Errorf("Expected 2 scans for /a, got %d", len(onlyA))
	}

	limited, _ := s.Recent(ctx, "", 1)
	if len(limited) != 1 {
		t.Errorf("Expected limit to apply, got %d", len(limited))
	}
}

func TestLoad_NotFound(t *testing.T) {
	s := openMemory(t)
	if _, err := s.Load(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFindItems(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	_, _ = s.SaveReport(ctx, report("https://x.test/a", time.Now(),
		model.CategorizedItem{Category: "Burgers", Name: "Big Mac", Price: "$5.49"},
		model.CategorizedItem{Category: "Burgers", Name: "Cheeseburger"},
		model.CategorizedItem{Category: "Sides", Name: "Fries"},
	))

	items, err := s.FindItems(ctx, "burger", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Name != "Cheeseburger" {
		t.Errorf("Expected Cheeseburger, got %+v", items)
	}

	items, _ = s.FindItems(ctx, "Mac", 10)
	if len(items) != 1 || items[0].Price != "$5.49" {
		t.Errorf("Expected Big Mac with price, got %+v", items)
	}
}

func TestSaveReport_Nil(t *testing.T) {
	s := openMemory(t)
	if _, err := s.SaveReport(context.Background(), nil); err == nil {
		t.Error("Expected error for nil report")
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.SaveReport(context.Background(), report("https://x.test/a", time.Now())); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	recent, _ := reopened.Recent(context.Background(), "", 10)
	if len(recent) != 1 {
		t.Errorf("Expected scan to persist, got %d", len(recent))
	}
}
