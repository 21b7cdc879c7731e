package usecase

import (
	"path/filepath"
	"testing"

	"vibeshop/internal/adapter/catalog"
	"vibeshop/internal/adapter/embedding"
	"vibeshop/internal/adapter/store"
	"vibeshop/internal/adapter/vibes"
	"vibeshop/internal/domain"
)

func newTestProcessor(t *testing.T) (*Processor, *catalog.ProductStore, *catalog.VibeStore) {
	t.Helper()

	records, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { records.Close() })

	embedder := embedding.NewMockEmbedder(64)
	vectors, err := store.NewBoltVectorIndex(records.DB(), embedder.Dimension(),
		catalog.CollectionProducts, catalog.CollectionVibes)
	if err != nil {
		t.Fatal(err)
	}

	products := catalog.NewProductStore(records, vectors, embedder)
	vibeStore := catalog.NewVibeStore(records, vectors, embedder)
	generator := vibes.NewGenerator(nil, 12, nil)

	return NewProcessor(products, vibeStore, generator, nil), products, vibeStore
}

func testProducts() []domain.Product {
	return []domain.Product{
		{ProductID: "prod-1", Name: "Silk Slip Dress", Type: "dress", Description: "evening silk", Material: "silk", PriceMin: 120},
		{ProductID: "prod-2", Name: "Linen Shirt", Type: "shirt", Description: "breezy summer linen", Material: "linen", PriceMin: 45},
	}
}

func TestDetectChangesPartition(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	rows := testProducts()

	cs, err := proc.DetectChanges(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs.New) != 2 || len(cs.Updated) != 0 || len(cs.Unchanged) != 0 {
		t.Fatalf("first run partition: new=%d updated=%d unchanged=%d", len(cs.New), len(cs.Updated), len(cs.Unchanged))
	}

	proc.Process(rows, ProcessOptions{Method: domain.MethodRuleBased})

	// Description change: updated. Price-only change: unchanged.
	rows[0].Description = "evening silk, now with pockets"
	rows[1].PriceMin = 60

	cs, err = proc.DetectChanges(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs.New) != 0 || len(cs.Updated) != 1 || len(cs.Unchanged) != 1 {
		t.Fatalf("second run partition: new=%d updated=%d unchanged=%d", len(cs.New), len(cs.Updated), len(cs.Unchanged))
	}
	if cs.Updated[0].ProductID != "prod-1" {
		t.Errorf("updated row: %s", cs.Updated[0].ProductID)
	}
}

func TestProcessGeneratesAndSkips(t *testing.T) {
	proc, products, vibeStore := newTestProcessor(t)
	rows := testProducts()

	stats := proc.Process(rows, ProcessOptions{Method: domain.MethodRuleBased})
	if stats.New != 2 || stats.VibesGenerated != 2 || stats.VibesSkipped != 0 {
		t.Fatalf("first run: %+v", stats)
	}
	if len(stats.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", stats.Errors)
	}

	for _, row := range rows {
		if ok, _ := vibeStore.Exists(row.ProductID); !ok {
			t.Errorf("missing vibe for %s", row.ProductID)
		}
	}

	// Unchanged re-run regenerates nothing.
	stats = proc.Process(rows, ProcessOptions{Method: domain.MethodRuleBased})
	if stats.Unchanged != 2 || stats.VibesGenerated != 0 || stats.VibesSkipped != 2 {
		t.Fatalf("re-run: %+v", stats)
	}

	// Price-only change still persists without regeneration.
	rows[0].PriceMin = 999
	stats = proc.Process(rows, ProcessOptions{Method: domain.MethodRuleBased})
	if stats.Unchanged != 2 || stats.VibesGenerated != 0 {
		t.Fatalf("price-only run: %+v", stats)
	}
	stored, err := products.Get("prod-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.PriceMin != 999 {
		t.Errorf("price change not persisted: %v", stored.PriceMin)
	}
}

func TestProcessForceRegenerate(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	rows := testProducts()

	proc.Process(rows, ProcessOptions{Method: domain.MethodRuleBased})

	stats := proc.Process(rows, ProcessOptions{Method: domain.MethodRuleBased, ForceRegenerate: true})
	if stats.VibesGenerated != 2 || stats.VibesSkipped != 0 {
		t.Fatalf("force run: %+v", stats)
	}
}

func TestProcessPreservesCreatedAt(t *testing.T) {
	proc, products, _ := newTestProcessor(t)
	rows := testProducts()

	proc.Process(rows, ProcessOptions{Method: domain.MethodRuleBased})
	first, err := products.Get("prod-1")
	if err != nil {
		t.Fatal(err)
	}

	rows[0].Description = "changed"
	proc.Process(rows, ProcessOptions{Method: domain.MethodRuleBased})

	second, err := products.Get("prod-1")
	if err != nil {
		t.Fatal(err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed across updates: %v vs %v", first.CreatedAt, second.CreatedAt)
	}
	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v before %v", second.UpdatedAt, first.UpdatedAt)
	}
}

func TestSweepRecoversMissingVibes(t *testing.T) {
	proc, products, vibeStore := newTestProcessor(t)

	// Simulate an earlier partial run: product stored, vibe missing.
	orphan := domain.Product{ProductID: "prod-9", Name: "Wool Coat", Type: "coat", Material: "wool"}
	if err := products.Upsert(orphan); err != nil {
		t.Fatal(err)
	}

	stats := proc.Process(nil, ProcessOptions{Method: domain.MethodRuleBased})
	if stats.VibesGenerated != 1 {
		t.Fatalf("sweep should generate the orphan vibe: %+v", stats)
	}
	if ok, _ := vibeStore.Exists("prod-9"); !ok {
		t.Error("orphan vibe missing after sweep")
	}
}

func TestExport(t *testing.T) {
	proc, products, _ := newTestProcessor(t)
	rows := testProducts()
	proc.Process(rows, ProcessOptions{Method: domain.MethodRuleBased})

	// A product missed by generation exports with a nil vibe.
	if err := products.Upsert(domain.Product{ProductID: "prod-3", Name: "Belt"}); err != nil {
		t.Fatal(err)
	}

	enriched, err := proc.Export()
	if err != nil {
		t.Fatal(err)
	}
	if len(enriched) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(enriched))
	}
	withVibes := 0
	for _, e := range enriched {
		if e.Vibe != nil {
			withVibes++
		}
	}
	if withVibes != 2 {
		t.Errorf("expected 2 entries with vibes, got %d", withVibes)
	}
}
