package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchQuery string
	searchTopK  int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the catalog",
	Long: `Hybrid search over product attributes and generated vibe tags. Each result
carries the two similarity terms and the weighted combined score.

Examples:
  vibeshop search -q "romantic dinner outfit"
  vibeshop search -q "linen summer dress" -n 10 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	topK := GetConfig().Search.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	results, err := b.search.Search(searchQuery, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results for: %s\n\n", len(results), searchQuery)
	for i, r := range results {
		fmt.Printf("--- [%d] %s (%s) score: %.3f ---\n", i+1, r.ProductName, r.ProductID, r.CombinedScore)
		fmt.Printf("    product: %.3f  vibe: %.3f\n", r.ProductSimilarity, r.VibeSimilarity)
		if r.PriceMin > 0 || r.PriceMax > 0 {
			fmt.Printf("    price: %.2f-%.2f %s\n", r.PriceMin, r.PriceMax, r.Currency)
		}
		if len(r.VibeTags) > 0 {
			fmt.Printf("    vibes: %s\n", strings.Join(r.VibeTags, ", "))
		}
		if r.MoodSummary != "" {
			fmt.Printf("    mood: %s\n", r.MoodSummary)
		}
		fmt.Println()
	}

	return nil
}
