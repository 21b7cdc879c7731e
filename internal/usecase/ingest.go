package usecase

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"vibeshop/internal/adapter/vibes"
	"vibeshop/internal/domain"
	"vibeshop/internal/port"
)

// Processor ingests product batches incrementally. Content hashing decides
// which rows need vibe (re)generation so unchanged catalog entries never
// re-pay the rate-limited generation cost.
type Processor struct {
	products  port.ProductStore
	vibes     port.VibeStore
	generator *vibes.Generator
	logger    *zap.Logger
}

func NewProcessor(products port.ProductStore, vibeStore port.VibeStore, generator *vibes.Generator, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		products:  products,
		vibes:     vibeStore,
		generator: generator,
		logger:    logger,
	}
}

// ChangeSet is the exhaustive, disjoint partition of an ingest batch.
type ChangeSet struct {
	New       []domain.Product
	Updated   []domain.Product
	Unchanged []domain.Product
}

// ProcessOptions control one ingest run.
type ProcessOptions struct {
	ForceRegenerate bool
	Method          domain.GenerationMethod
	// Progress, when set, is called after each row of the main pass.
	Progress func(done, total int)
}

// ProcessStats are the counters accumulated over one ingest run.
type ProcessStats struct {
	Total          int           `json:"total"`
	New            int           `json:"new"`
	Updated        int           `json:"updated"`
	Unchanged      int           `json:"unchanged"`
	VibesGenerated int           `json:"vibes_generated"`
	VibesSkipped   int           `json:"vibes_skipped"`
	Errors         []string      `json:"errors,omitempty"`
	Elapsed        time.Duration `json:"elapsed"`
}

// DetectChanges classifies each row against the stored content hash:
// unseen id is new, differing hash is updated, matching hash is unchanged.
func (p *Processor) DetectChanges(rows []domain.Product) (ChangeSet, error) {
	var cs ChangeSet
	for _, row := range rows {
		stored, err := p.products.ContentHash(row.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				cs.New = append(cs.New, row)
				continue
			}
			return ChangeSet{}, fmt.Errorf("failed to read content hash for %s: %w", row.ProductID, err)
		}
		if stored != row.ContentHash() {
			cs.Updated = append(cs.Updated, row)
		} else {
			cs.Unchanged = append(cs.Unchanged, row)
		}
	}
	return cs, nil
}

// Process upserts every row, generates vibes for the rows that need them, and
// finally sweeps the product store for ids missing vibes entirely (recovering
// from earlier partial failures). Per-row failures are counted and never
// abort the batch.
func (p *Processor) Process(rows []domain.Product, opts ProcessOptions) ProcessStats {
	start := time.Now()
	stats := ProcessStats{Total: len(rows)}

	if opts.Method == "" {
		opts.Method = domain.MethodHybrid
	}

	cs, err := p.DetectChanges(rows)
	if err != nil {
		stats.Errors = append(stats.Errors, err.Error())
		stats.Elapsed = time.Since(start)
		return stats
	}
	stats.New = len(cs.New)
	stats.Updated = len(cs.Updated)
	stats.Unchanged = len(cs.Unchanged)

	unchanged := make(map[string]struct{}, len(cs.Unchanged))
	for _, row := range cs.Unchanged {
		unchanged[row.ProductID] = struct{}{}
	}

	for i, row := range rows {
		p.processRow(row, unchanged, opts, &stats)
		if opts.Progress != nil {
			opts.Progress(i+1, len(rows))
		}
	}

	p.sweepMissingVibes(opts.Method, &stats)

	stats.Elapsed = time.Since(start)
	return stats
}

func (p *Processor) processRow(row domain.Product, unchanged map[string]struct{}, opts ProcessOptions, stats *ProcessStats) {
	now := time.Now().UTC()
	row.UpdatedAt = now
	if existing, err := p.products.Get(row.ProductID); err == nil {
		row.CreatedAt = existing.CreatedAt
	} else if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}

	// Every row is upserted: price and URL changes must persist even when
	// the descriptive content is unchanged.
	if err := p.products.Upsert(row); err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("upsert %s: %v", row.ProductID, err))
		p.logger.Error("product upsert failed", zap.String("product_id", row.ProductID), zap.Error(err))
		return
	}

	_, isUnchanged := unchanged[row.ProductID]
	inWorkSet := opts.ForceRegenerate || !isUnchanged
	if !inWorkSet {
		stats.VibesSkipped++
		return
	}

	// Guard against a stale change set: a row the partition calls unchanged
	// that already has vibes never needs regeneration.
	if !opts.ForceRegenerate && isUnchanged {
		if ok, _ := p.vibes.Exists(row.ProductID); ok {
			stats.VibesSkipped++
			return
		}
	}

	vibe := p.generator.Generate(row, opts.Method)
	if err := p.vibes.Upsert(vibe); err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("vibe upsert %s: %v", row.ProductID, err))
		p.logger.Error("vibe upsert failed", zap.String("product_id", row.ProductID), zap.Error(err))
		return
	}
	stats.VibesGenerated++
}

// sweepMissingVibes generates vibes for any stored product that has none,
// covering batches that previously failed partway.
func (p *Processor) sweepMissingVibes(method domain.GenerationMethod, stats *ProcessStats) {
	products, err := p.products.List()
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("sweep: %v", err))
		return
	}

	for _, product := range products {
		exists, err := p.vibes.Exists(product.ProductID)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("sweep %s: %v", product.ProductID, err))
			continue
		}
		if exists {
			continue
		}

		p.logger.Info("generating vibes for product missed by earlier runs",
			zap.String("product_id", product.ProductID))
		vibe := p.generator.Generate(product, method)
		if err := p.vibes.Upsert(vibe); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("sweep vibe upsert %s: %v", product.ProductID, err))
			continue
		}
		stats.VibesGenerated++
	}
}

// EnrichedProduct joins a product with its vibe record for catalog export.
type EnrichedProduct struct {
	Product domain.Product      `json:"product"`
	Vibe    *domain.ProductVibe `json:"vibe,omitempty"`
}

// Export returns the full enriched catalog. Products without vibes are
// included with a nil vibe.
func (p *Processor) Export() ([]EnrichedProduct, error) {
	products, err := p.products.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	enriched := make([]EnrichedProduct, 0, len(products))
	for _, product := range products {
		e := EnrichedProduct{Product: product}
		if v, err := p.vibes.Get(product.ProductID); err == nil {
			e.Vibe = &v
		}
		enriched = append(enriched, e)
	}
	return enriched, nil
}
