package vibes

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"vibeshop/internal/domain"
	"vibeshop/internal/port"
)

// Generator produces vibe records by rules, by LLM, or by a hybrid of both.
// It never fails: every LLM problem degrades to the rule-based path and is
// recorded in the generation method.
type Generator struct {
	llm     port.LLM
	maxTags int
	logger  *zap.Logger
}

func NewGenerator(llm port.LLM, maxTags int, logger *zap.Logger) *Generator {
	if maxTags <= 0 {
		maxTags = 12
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{llm: llm, maxTags: maxTags, logger: logger}
}

// Generate builds a vibe record for the product using the requested method.
func (g *Generator) Generate(p domain.Product, method domain.GenerationMethod) domain.ProductVibe {
	switch method {
	case domain.MethodLLM:
		v, err := g.llmVibe(p)
		if err != nil {
			g.logger.Warn("llm vibe generation failed, falling back to rules",
				zap.String("product_id", p.ProductID), zap.Error(err))
			fallback := RuleBased(p, g.maxTags)
			fallback.GenerationMethod = domain.MethodLLMFallback
			return fallback
		}
		return v

	case domain.MethodHybrid:
		v, err := g.llmVibe(p)
		if err != nil {
			g.logger.Warn("llm path of hybrid generation failed, using rules only",
				zap.String("product_id", p.ProductID), zap.Error(err))
			fallback := RuleBased(p, g.maxTags)
			fallback.GenerationMethod = domain.MethodHybridFallback
			return fallback
		}
		// LLM tags first, then rule tags the LLM missed.
		v.VibeTags = domain.MergeTags(v.VibeTags, ExtractTags(p, g.maxTags), g.maxTags)
		v.GenerationMethod = domain.MethodHybrid
		return v

	default:
		return RuleBased(p, g.maxTags)
	}
}

// llmVibePayload is the strict JSON shape requested from the model.
type llmVibePayload struct {
	VibeTags         []string `json:"vibe_tags"`
	MoodSummary      string   `json:"mood_summary"`
	IdealFor         string   `json:"ideal_for"`
	StylingTip       string   `json:"styling_tip"`
	Occasions        []string `json:"occasions"`
	Category         string   `json:"category"`
	Subcategory      string   `json:"subcategory"`
	Materials        []string `json:"materials"`
	HasEmbellishment bool     `json:"has_embellishment"`
	StyleAttributes  []string `json:"style_attributes"`
	Silhouette       string   `json:"silhouette"`
}

const vibeSystemPrompt = `You are a fashion merchandising assistant. Given product attributes,
respond with ONLY a JSON object, no prose and no markdown, with these keys:
vibe_tags (array of short mood/style/occasion tags), mood_summary, ideal_for,
styling_tip, occasions (array), category, subcategory, materials (array),
has_embellishment (boolean), style_attributes (array), silhouette.`

func (g *Generator) llmVibe(p domain.Product) (domain.ProductVibe, error) {
	if g.llm == nil {
		return domain.ProductVibe{}, fmt.Errorf("no llm configured")
	}

	userPrompt := fmt.Sprintf("Name: %s\nType: %s\nDescription: %s\nColors: %s\nMaterial: %s",
		p.Name, p.Type, p.Description, p.Colors, p.Material)

	response, err := g.llm.GenerateWithSystem(vibeSystemPrompt, userPrompt)
	if err != nil {
		return domain.ProductVibe{}, err
	}

	payload, err := parseVibePayload(response)
	if err != nil {
		return domain.ProductVibe{}, err
	}

	tags := domain.MergeTags(payload.VibeTags, nil, g.maxTags)
	if len(tags) == 0 {
		return domain.ProductVibe{}, fmt.Errorf("llm returned no vibe tags")
	}

	return domain.ProductVibe{
		ProductID:        p.ProductID,
		VibeTags:         tags,
		MoodSummary:      payload.MoodSummary,
		IdealFor:         payload.IdealFor,
		StylingTip:       payload.StylingTip,
		Occasions:        payload.Occasions,
		Category:         payload.Category,
		Subcategory:      payload.Subcategory,
		Materials:        payload.Materials,
		HasEmbellishment: payload.HasEmbellishment,
		StyleAttributes:  payload.StyleAttributes,
		Silhouette:       payload.Silhouette,
		GenerationMethod: domain.MethodLLM,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// parseVibePayload extracts the JSON object from a model response, tolerating
// markdown fences and surrounding prose.
func parseVibePayload(response string) (llmVibePayload, error) {
	var payload llmVibePayload

	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return payload, fmt.Errorf("no JSON object in response")
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return payload, fmt.Errorf("failed to parse vibe JSON: %w", err)
	}
	return payload, nil
}
