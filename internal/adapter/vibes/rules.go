package vibes

import (
	"strings"
	"time"

	"vibeshop/internal/domain"
)

// vocabulary maps catalog keywords to the vibe tags they imply. Matching is
// substring-based over the lowercased name, description, colors and material.
var vocabulary = []struct {
	keyword string
	tags    []string
}{
	{"silk", []string{"luxurious", "elegant"}},
	{"satin", []string{"luxurious", "evening"}},
	{"velvet", []string{"opulent", "evening"}},
	{"lace", []string{"romantic", "feminine"}},
	{"linen", []string{"breezy", "effortless"}},
	{"cotton", []string{"comfortable", "everyday"}},
	{"denim", []string{"casual", "classic"}},
	{"leather", []string{"edgy", "bold"}},
	{"cashmere", []string{"cozy", "luxurious"}},
	{"wool", []string{"cozy", "winter"}},
	{"chiffon", []string{"airy", "romantic"}},
	{"tulle", []string{"whimsical", "feminine"}},
	{"sequin", []string{"glamorous", "party"}},
	{"floral", []string{"romantic", "garden party"}},
	{"black", []string{"chic", "timeless"}},
	{"white", []string{"fresh", "minimalist"}},
	{"red", []string{"bold", "statement"}},
	{"pink", []string{"playful", "feminine"}},
	{"pastel", []string{"soft", "spring"}},
	{"gold", []string{"glamorous", "festive"}},
	{"maxi", []string{"bohemian", "vacation"}},
	{"mini", []string{"flirty", "night out"}},
	{"midi", []string{"polished", "versatile"}},
	{"wrap", []string{"flattering", "effortless"}},
	{"slip", []string{"minimalist", "evening"}},
	{"blazer", []string{"tailored", "office"}},
	{"knit", []string{"cozy", "relaxed"}},
	{"embroider", []string{"artisanal", "detailed"}},
	{"bead", []string{"embellished", "occasion"}},
	{"ruffle", []string{"romantic", "playful"}},
	{"plunge", []string{"daring", "evening"}},
	{"bodycon", []string{"sultry", "night out"}},
	{"oversiz", []string{"relaxed", "street style"}},
	{"vintage", []string{"retro", "timeless"}},
	{"bridal", []string{"bridal", "special occasion"}},
	{"summer", []string{"summer", "vacation"}},
	{"beach", []string{"beachy", "vacation"}},
}

// genericTags is the fallback set when the vocabulary yields too few tags.
var genericTags = []string{"versatile", "everyday", "wardrobe staple"}

var embellishmentKeywords = []string{"sequin", "bead", "embroider", "embellish", "rhinestone", "crystal", "applique"}

var silhouettes = []string{"a-line", "bodycon", "wrap", "shift", "fit and flare", "slip", "oversized", "straight", "mermaid", "empire"}

var occasionKeywords = []struct {
	keyword  string
	occasion string
}{
	{"wedding", "wedding guest"},
	{"bridal", "wedding"},
	{"office", "work"},
	{"blazer", "work"},
	{"party", "party"},
	{"sequin", "party"},
	{"cocktail", "cocktail hour"},
	{"beach", "beach day"},
	{"evening", "evening out"},
	{"casual", "weekend"},
	{"brunch", "brunch"},
}

const minRuleTags = 3

// ExtractTags runs the fixed-vocabulary keyword extraction. It is a pure
// function and always returns at least the generic fallback set.
func ExtractTags(p domain.Product, max int) []string {
	text := strings.ToLower(p.Name + " " + p.Description + " " + p.Colors + " " + p.Material)

	var tags []string
	for _, entry := range vocabulary {
		if strings.Contains(text, entry.keyword) {
			tags = domain.MergeTags(tags, entry.tags, max)
		}
	}

	if len(tags) < minRuleTags {
		tags = domain.MergeTags(tags, genericTags, max)
	}
	return tags
}

// RuleBased builds a complete vibe record from keyword rules alone.
func RuleBased(p domain.Product, maxTags int) domain.ProductVibe {
	text := strings.ToLower(p.Name + " " + p.Description + " " + p.Material)

	embellished := false
	for _, kw := range embellishmentKeywords {
		if strings.Contains(text, kw) {
			embellished = true
			break
		}
	}

	silhouette := ""
	for _, s := range silhouettes {
		if strings.Contains(text, s) {
			silhouette = s
			break
		}
	}

	var occasions []string
	for _, entry := range occasionKeywords {
		if strings.Contains(text, entry.keyword) {
			occasions = domain.MergeTags(occasions, []string{entry.occasion}, 0)
		}
	}

	var materials []string
	for _, m := range strings.Split(p.Material, ",") {
		m = strings.TrimSpace(strings.ToLower(m))
		if m != "" {
			materials = append(materials, m)
		}
	}

	tags := ExtractTags(p, maxTags)

	return domain.ProductVibe{
		ProductID:        p.ProductID,
		VibeTags:         tags,
		MoodSummary:      strings.Join(tags[:min(3, len(tags))], ", "),
		Occasions:        occasions,
		Category:         strings.ToLower(p.Type),
		Materials:        materials,
		HasEmbellishment: embellished,
		Silhouette:       silhouette,
		GenerationMethod: domain.MethodRuleBased,
		CreatedAt:        time.Now().UTC(),
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
