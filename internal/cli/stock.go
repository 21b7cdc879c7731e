package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"vibeshop/internal/domain"
)

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Inspect and adjust stock",
}

var (
	stockSize     string
	stockColor    string
	stockQty      int
	stockVariants []string
)

var stockCheckCmd = &cobra.Command{
	Use:   "check <product-id>",
	Short: "Check availability of a variant",
	Args:  cobra.ExactArgs(1),
	RunE:  runStockCheck,
}

var stockShowCmd = &cobra.Command{
	Use:   "show <product-id>",
	Short: "Show a product's stock record",
	Args:  cobra.ExactArgs(1),
	RunE:  runStockShow,
}

var stockSetCmd = &cobra.Command{
	Use:   "set <product-id>",
	Short: "Create or replace a product's stock record",
	Long: `Create or replace a stock record from size:color:quantity variant specs.

Example:
  vibeshop stock set prod-1 -v "M:Black:5" -v "L:Black:2"`,
	Args: cobra.ExactArgs(1),
	RunE: runStockSet,
}

var stockAdjustCmd = &cobra.Command{
	Use:   "adjust <product-id> <delta>",
	Short: "Adjust a variant's quantity by a signed delta",
	Args:  cobra.ExactArgs(2),
	RunE:  runStockAdjust,
}

func init() {
	rootCmd.AddCommand(stockCmd)
	stockCmd.AddCommand(stockCheckCmd, stockShowCmd, stockSetCmd, stockAdjustCmd)

	stockCheckCmd.Flags().StringVar(&stockSize, "size", "", "variant size (required)")
	stockCheckCmd.Flags().StringVar(&stockColor, "color", "", "variant color (required)")
	stockCheckCmd.Flags().IntVar(&stockQty, "qty", 1, "quantity wanted")
	stockCheckCmd.MarkFlagRequired("size")
	stockCheckCmd.MarkFlagRequired("color")

	stockSetCmd.Flags().StringArrayVarP(&stockVariants, "variant", "v", nil, "variant as size:color:quantity (repeatable)")
	stockSetCmd.MarkFlagRequired("variant")

	stockAdjustCmd.Flags().StringVar(&stockSize, "size", "", "variant size (required)")
	stockAdjustCmd.Flags().StringVar(&stockColor, "color", "", "variant color (required)")
	stockAdjustCmd.MarkFlagRequired("size")
	stockAdjustCmd.MarkFlagRequired("color")
}

func runStockCheck(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	available, current, err := b.orders.CheckStock(args[0], stockSize, stockColor, stockQty)
	if err != nil {
		return err
	}

	if available {
		fmt.Printf("Available: %d x %s/%s of %s (current stock %d)\n", stockQty, stockSize, stockColor, args[0], current)
	} else {
		fmt.Printf("Unavailable: %d x %s/%s of %s (current stock %d)\n", stockQty, stockSize, stockColor, args[0], current)
	}
	return nil
}

func runStockShow(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	st, err := b.orders.GetStockForProduct(args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Printf("No stock record for %s\n", args[0])
			return nil
		}
		return err
	}

	output, _ := json.MarshalIndent(st, "", "  ")
	fmt.Println(string(output))
	return nil
}

func runStockSet(cmd *cobra.Command, args []string) error {
	variants := make([]domain.StockVariant, 0, len(stockVariants))
	for _, spec := range stockVariants {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return fmt.Errorf("bad variant spec %q, want size:color:quantity", spec)
		}
		qty, err := strconv.Atoi(parts[2])
		if err != nil {
			return fmt.Errorf("bad quantity in %q: %w", spec, err)
		}
		variants = append(variants, domain.StockVariant{Size: parts[0], Color: parts[1], Quantity: qty})
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.orders.SetStock(args[0], variants); err != nil {
		return reportRejection(err)
	}

	fmt.Printf("Stock set for %s: %d variant(s)\n", args[0], len(variants))
	return nil
}

func runStockAdjust(cmd *cobra.Command, args []string) error {
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad delta %q: %w", args[1], err)
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.orders.UpdateStock(args[0], stockSize, stockColor, delta); err != nil {
		return reportRejection(err)
	}

	st, err := b.orders.GetStockForProduct(args[0])
	if err != nil {
		return err
	}
	i := st.FindVariant(stockSize, stockColor)
	fmt.Printf("Stock for %s %s/%s now %d (%s)\n", args[0], stockSize, stockColor, st.Variants[i].Quantity, st.Variants[i].Status)
	return nil
}
