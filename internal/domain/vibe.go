package domain

import (
	"strings"
	"time"
)

// GenerationMethod records how a vibe record was produced.
type GenerationMethod string

const (
	MethodRuleBased      GenerationMethod = "rule_based"
	MethodLLM            GenerationMethod = "llm"
	MethodHybrid         GenerationMethod = "hybrid"
	MethodLLMFallback    GenerationMethod = "llm_fallback"
	MethodHybridFallback GenerationMethod = "hybrid_fallback"
)

// ProductVibe holds the generated descriptive tags for a product. There is at
// most one vibe record per product id; the record is overwritten on
// regeneration. Products may legitimately have no vibe record yet.
type ProductVibe struct {
	ProductID        string           `json:"product_id"`
	VibeTags         []string         `json:"vibe_tags"`
	MoodSummary      string           `json:"mood_summary"`
	IdealFor         string           `json:"ideal_for"`
	StylingTip       string           `json:"styling_tip"`
	Occasions        []string         `json:"occasions"`
	Category         string           `json:"category"`
	Subcategory      string           `json:"subcategory"`
	Materials        []string         `json:"materials"`
	HasEmbellishment bool             `json:"has_embellishment"`
	StyleAttributes  []string         `json:"style_attributes"`
	Silhouette       string           `json:"silhouette"`
	GenerationMethod GenerationMethod `json:"generation_method"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Document returns the text embedded into the vibe vector collection.
func (v ProductVibe) Document() string {
	parts := []string{strings.Join(v.VibeTags, ", ")}
	if v.MoodSummary != "" {
		parts = append(parts, v.MoodSummary)
	}
	if v.IdealFor != "" {
		parts = append(parts, "Ideal for: "+v.IdealFor)
	}
	if len(v.Occasions) > 0 {
		parts = append(parts, "Occasions: "+strings.Join(v.Occasions, ", "))
	}
	if v.StylingTip != "" {
		parts = append(parts, v.StylingTip)
	}
	return strings.Join(parts, ". ")
}

// MergeTags appends extra tags that are not already present, comparing
// case-insensitively, and caps the result at max tags. The order of existing
// tags is preserved.
func MergeTags(tags, extra []string, max int) []string {
	seen := make(map[string]struct{}, len(tags))
	merged := make([]string, 0, len(tags)+len(extra))
	for _, t := range tags {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, t)
	}
	for _, t := range extra {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, t)
	}
	if max > 0 && len(merged) > max {
		merged = merged[:max]
	}
	return merged
}
