package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"vibeshop/internal/domain"
	"vibeshop/internal/usecase"
)

var (
	importForce  bool
	importMethod string
	importExport string
)

var importCmd = &cobra.Command{
	Use:   "import <csv-glob>...",
	Short: "Ingest catalog CSV files",
	Long: `Ingest product rows from CSV files into the catalog. Rows are classified as
new, updated or unchanged by content hash; vibes are only (re)generated for
rows that need them unless --force is given.

Expected CSV header: product_id,name,type,description,colors,material,
price_min,price_max,currency,url,image_url

Examples:
  vibeshop import data/catalog.csv
  vibeshop import "drops/**/*.csv" --method llm --force
  vibeshop import data/catalog.csv --export enriched.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVar(&importForce, "force", false, "regenerate vibes for every row")
	importCmd.Flags().StringVar(&importMethod, "method", "", "generation method: rule_based, llm or hybrid (default from config)")
	importCmd.Flags().StringVar(&importExport, "export", "", "write the enriched catalog to this JSON file after processing")
}

func runImport(cmd *cobra.Command, args []string) error {
	paths, err := expandGlobs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no CSV files match %v", args)
	}

	var rows []domain.Product
	for _, path := range paths {
		fileRows, err := readProductCSV(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows = append(rows, fileRows...)
	}
	fmt.Printf("Read %d rows from %d file(s)\n", len(rows), len(paths))

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	method := GetConfig().Vibes.Method
	if importMethod != "" {
		method = importMethod
	}

	bar := progressbar.NewOptions(len(rows),
		progressbar.OptionSetDescription("Processing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	stats := b.processor.Process(rows, usecase.ProcessOptions{
		ForceRegenerate: importForce,
		Method:          domain.GenerationMethod(method),
		Progress: func(done, total int) {
			_ = bar.Set(done)
		},
	})

	fmt.Printf("Processed %d rows in %s\n", stats.Total, stats.Elapsed.Round(time.Millisecond))
	fmt.Printf("  new: %d  updated: %d  unchanged: %d\n", stats.New, stats.Updated, stats.Unchanged)
	fmt.Printf("  vibes generated: %d  skipped: %d\n", stats.VibesGenerated, stats.VibesSkipped)
	if len(stats.Errors) > 0 {
		fmt.Printf("  errors: %d\n", len(stats.Errors))
		for _, e := range stats.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	if importExport != "" {
		enriched, err := b.processor.Export()
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		data, err := json.MarshalIndent(enriched, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(importExport, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", importExport, err)
		}
		fmt.Printf("Exported %d enriched products to %s\n", len(enriched), importExport)
	}

	return nil
}

func expandGlobs(patterns []string) ([]string, error) {
	var paths []string
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
		}
		if matches == nil {
			// A literal path with no glob metacharacters may still exist.
			if _, statErr := os.Stat(pattern); statErr == nil {
				matches = []string{pattern}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				paths = append(paths, m)
			}
		}
	}
	return paths, nil
}

// readProductCSV parses one catalog CSV file. Column order is taken from the
// header row; unknown columns are ignored.
func readProductCSV(path string) ([]domain.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["product_id"]; !ok {
		return nil, fmt.Errorf("missing required column product_id")
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	floatField := func(record []string, name string) float64 {
		v, _ := strconv.ParseFloat(field(record, name), 64)
		return v
	}

	var rows []domain.Product
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		p := domain.Product{
			ProductID:   field(record, "product_id"),
			Name:        field(record, "name"),
			Type:        field(record, "type"),
			Description: field(record, "description"),
			Colors:      field(record, "colors"),
			Material:    field(record, "material"),
			PriceMin:    floatField(record, "price_min"),
			PriceMax:    floatField(record, "price_max"),
			Currency:    field(record, "currency"),
			URL:         field(record, "url"),
			ImageURL:    field(record, "image_url"),
		}
		if p.ProductID == "" {
			return nil, fmt.Errorf("line %d: empty product_id", line)
		}
		rows = append(rows, p)
	}

	return rows, nil
}
