package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"vibeshop/internal/domain"
	"vibeshop/internal/usecase"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Manage orders",
}

var (
	orderCustomerName string
	orderEmail        string
	orderItemsFile    string
	orderCurrency     string
	orderAddress      string
	orderNotes        string
	orderReason       string
	orderNewStatus    string
)

var orderCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an order",
	Long: `Create an order from a JSON items file. Stock is validated for every item
before anything is reserved; the whole order is rejected if any item is
unavailable.

Items file format:
  [{"product_id": "prod-1", "size": "M", "color": "Black", "quantity": 2, "price": 150.0}]`,
	RunE: runOrderCreate,
}

var orderModifyCmd = &cobra.Command{
	Use:   "modify <order-id>",
	Short: "Modify an order",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderModify,
}

var orderCancelCmd = &cobra.Command{
	Use:   "cancel <order-id>",
	Short: "Cancel an order and restore its stock",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderCancel,
}

var orderShowCmd = &cobra.Command{
	Use:   "show <order-id>",
	Short: "Show an order as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderShow,
}

var orderStatusCmd = &cobra.Command{
	Use:   "status <order-id>",
	Short: "Show an order's status",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderStatus,
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a customer's orders, newest first",
	RunE:  runOrderList,
}

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.AddCommand(orderCreateCmd, orderModifyCmd, orderCancelCmd, orderShowCmd, orderStatusCmd, orderListCmd)

	orderCreateCmd.Flags().StringVar(&orderCustomerName, "name", "", "customer name")
	orderCreateCmd.Flags().StringVar(&orderEmail, "email", "", "customer email (required)")
	orderCreateCmd.Flags().StringVar(&orderItemsFile, "items", "", "JSON file with order items (required)")
	orderCreateCmd.Flags().StringVar(&orderCurrency, "currency", "USD", "currency code")
	orderCreateCmd.Flags().StringVar(&orderAddress, "address", "", "shipping address")
	orderCreateCmd.Flags().StringVar(&orderNotes, "notes", "", "order notes")
	orderCreateCmd.MarkFlagRequired("email")
	orderCreateCmd.MarkFlagRequired("items")

	orderModifyCmd.Flags().StringVar(&orderItemsFile, "items", "", "JSON file with replacement items")
	orderModifyCmd.Flags().StringVar(&orderAddress, "address", "", "new shipping address")
	orderModifyCmd.Flags().StringVar(&orderNotes, "notes", "", "new notes")
	orderModifyCmd.Flags().StringVar(&orderNewStatus, "status", "", "new status (must be a legal transition)")

	orderCancelCmd.Flags().StringVar(&orderReason, "reason", "", "cancellation reason")

	orderListCmd.Flags().StringVar(&orderEmail, "email", "", "customer email (required)")
	orderListCmd.MarkFlagRequired("email")
}

func readItemsFile(path string) ([]domain.OrderItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}
	var items []domain.OrderItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse items file: %w", err)
	}
	return items, nil
}

// reportRejection prints a business rejection in plain language and swallows
// the error; only faults propagate to cobra.
func reportRejection(err error) error {
	if domain.IsRejection(err) {
		fmt.Printf("Rejected: %s\n", err.Error())
		return nil
	}
	return err
}

func runOrderCreate(cmd *cobra.Command, args []string) error {
	items, err := readItemsFile(orderItemsFile)
	if err != nil {
		return err
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	order, err := b.orders.CreateOrder(usecase.CreateOrderInput{
		CustomerName:    orderCustomerName,
		CustomerEmail:   orderEmail,
		Items:           items,
		Currency:        orderCurrency,
		ShippingAddress: orderAddress,
		Notes:           orderNotes,
	})
	if err != nil {
		return reportRejection(err)
	}

	fmt.Printf("Order %s created: %d item(s), total %.2f %s\n",
		order.OrderID, len(order.Items), order.TotalAmount, order.Currency)
	return nil
}

func runOrderModify(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	var updates usecase.OrderUpdates
	if orderItemsFile != "" {
		items, err := readItemsFile(orderItemsFile)
		if err != nil {
			return err
		}
		updates.Items = &items
	}
	if cmd.Flags().Changed("address") {
		updates.ShippingAddress = &orderAddress
	}
	if cmd.Flags().Changed("notes") {
		updates.Notes = &orderNotes
	}
	if orderNewStatus != "" {
		status := domain.OrderStatus(orderNewStatus)
		updates.Status = &status
	}

	order, err := b.orders.ModifyOrder(args[0], updates)
	if err != nil {
		return reportRejection(err)
	}

	fmt.Printf("Order %s updated: status %s, total %.2f %s\n",
		order.OrderID, order.Status, order.TotalAmount, order.Currency)
	return nil
}

func runOrderCancel(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	order, err := b.orders.CancelOrder(args[0], orderReason)
	if err != nil {
		return reportRejection(err)
	}

	fmt.Printf("Order %s cancelled; stock restored for %d item(s)\n", order.OrderID, len(order.Items))
	return nil
}

func runOrderShow(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	order, err := b.orders.GetOrder(args[0])
	if err != nil {
		return reportRejection(err)
	}

	output, _ := json.MarshalIndent(order, "", "  ")
	fmt.Println(string(output))
	return nil
}

func runOrderStatus(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	status, err := b.orders.GetOrderStatus(args[0])
	if err != nil {
		return reportRejection(err)
	}

	fmt.Println(status)
	return nil
}

func runOrderList(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	orders, err := b.orders.GetOrdersByCustomer(orderEmail)
	if err != nil {
		return err
	}

	if len(orders) == 0 {
		fmt.Printf("No orders for %s\n", orderEmail)
		return nil
	}
	for _, o := range orders {
		fmt.Printf("%s  %-10s  %8.2f %s  %s\n",
			o.OrderID, o.Status, o.TotalAmount, o.Currency, o.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
