package domain

// SearchResult is one ranked hit from the hybrid search engine.
// CombinedScore is the weighted sum of the two similarity terms; a term is 0
// when the product only matched in the other collection.
type SearchResult struct {
	ProductID         string   `json:"product_id"`
	ProductName       string   `json:"product_name"`
	ProductType       string   `json:"product_type"`
	PriceMin          float64  `json:"price_min"`
	PriceMax          float64  `json:"price_max"`
	Currency          string   `json:"currency"`
	VibeTags          []string `json:"vibe_tags,omitempty"`
	MoodSummary       string   `json:"mood_summary,omitempty"`
	ProductSimilarity float64  `json:"product_similarity"`
	VibeSimilarity    float64  `json:"vibe_similarity"`
	CombinedScore     float64  `json:"combined_score"`
}
