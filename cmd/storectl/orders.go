package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"storefront/internal/models"
	"storefront/internal/store"
)

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect orders",
	}
	cmd.AddCommand(ordersListCmd())
	cmd.AddCommand(ordersShowCmd())
	return cmd
}

func ordersListCmd() *cobra.Command {
	var (
		status string
		limit  int64
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !models.IsValidOrderStatus(status) {
				return fmt.Errorf("unknown order status %q", status)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			client, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(context.Background()) }()

			list, total, err := store.NewOrderStore(db).List(ctx, store.OrderFilter{
				OrderStatus: status,
				Page:        1,
				Limit:       limit,
			})
			if err != nil {
				return err
			}

			if err := renderOrders(cmd.OutOrStdout(), list); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d orders\n", len(list), total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by order status")
	cmd.Flags().Int64VarP(&limit, "limit", "n", 20, "Maximum orders to show")

	return cmd
}

func ordersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [orderId]",
		Short: "Show a single order with its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			client, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(context.Background()) }()

			order, err := store.NewOrderStore(db).FindByOrderID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("order %s: %w", args[0], err)
			}
			return renderOrder(cmd.OutOrStdout(), order)
		},
	}
}

func orderRow(o models.Order) []string {
	return []string{
		o.OrderID,
		o.CreatedAt.Local().Format("2006-01-02 15:04"),
		o.CustomerName,
		o.OrderType,
		o.PaymentStatus,
		o.OrderStatus,
		money(o.TotalAmount),
	}
}

func renderOrders(w io.Writer, list []models.Order) error {
	table := tablewriter.NewWriter(w)
	table.Header("Order", "Created", "Customer", "Type", "Payment", "Status", "Total")
	for _, o := range list {
		if err := table.Append(orderRow(o)); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderOrder(w io.Writer, o *models.Order) error {
	fmt.Fprintf(w, "Order:    %s\n", o.OrderID)
	fmt.Fprintf(w, "Created:  %s\n", o.CreatedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(w, "Customer: %s <%s> %s\n", o.CustomerName, o.CustomerEmail, o.CustomerPhone)
	fmt.Fprintf(w, "Ship to:  %s\n", o.ShippingAddress)
	fmt.Fprintf(w, "Type:     %s  Payment: %s  Status: %s\n", o.OrderType, o.PaymentStatus, o.OrderStatus)
	if o.GatewayPaymentID != "" {
		fmt.Fprintf(w, "Gateway:  %s / %s\n", o.GatewayOrderID, o.GatewayPaymentID)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Code", "Item", "Qty", "Price", "Subtotal")
	for _, item := range o.Items {
		if err := table.Append([]string{
			item.ProductCode,
			item.Name,
			strconv.Itoa(item.Quantity),
			money(item.Price),
			money(item.Subtotal()),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Total:    %s\n", money(o.TotalAmount))
	return nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
