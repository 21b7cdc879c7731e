package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Product is the canonical catalog record. Products are upserted on every
// ingest and never deleted; price and URL updates persist even when the
// descriptive content is unchanged.
type Product struct {
	ProductID   string    `json:"product_id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Colors      string    `json:"colors"`
	Material    string    `json:"material"`
	PriceMin    float64   `json:"price_min"`
	PriceMax    float64   `json:"price_max"`
	Currency    string    `json:"currency"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ContentHash fingerprints the fields that drive vibe generation.
// Price and URL are excluded: changing them must not trigger regeneration.
func (p Product) ContentHash() string {
	h := sha256.New()
	for _, field := range []string{p.Name, p.Description, p.Colors, p.Material} {
		h.Write([]byte(field))
		h.Write([]byte{'|'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Document returns the text embedded into the product vector collection.
func (p Product) Document() string {
	return p.Name + ". " + p.Type + ". " + p.Description + " Colors: " + p.Colors + ". Material: " + p.Material + "."
}
