package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func (c *cli) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Back office reports and order handling",
	}
	cmd.AddCommand(c.dashboardCmd(), c.exportCmd(), c.orderStatusCmd())
	return cmd
}

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show counts, revenue, recent orders and top products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := c.admin()
			if err != nil {
				return err
			}
			s, err := api.Dashboard(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			title(out, "Revenue %s", money(s.Revenue))
			renderTable(out, []string{"Categories", "Products", "Orders", "Users"}, [][]string{{
				strconv.FormatInt(s.Counts.Categories, 10),
				strconv.FormatInt(s.Counts.Products, 10),
				strconv.FormatInt(s.Counts.Orders, 10),
				strconv.FormatInt(s.Counts.Users, 10),
			}})

			recent := make([][]string, len(s.RecentOrders))
			for i, o := range s.RecentOrders {
				recent[i] = []string{o.ID, o.CustomerName, o.Status, money(o.Total)}
			}
			title(out, "Recent orders")
			renderTable(out, []string{"Order", "Customer", "Status", "Total"}, recent)

			top := make([][]string, len(s.TopProducts))
			for i, p := range s.TopProducts {
				top[i] = []string{p.Name, strconv.FormatInt(p.Quantity, 10), money(p.Revenue)}
			}
			title(out, "Top products")
			renderTable(out, []string{"Product", "Sold", "Revenue"}, top)
			return nil
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download all products as an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := c.admin()
			if err != nil {
				return err
			}
			if path == "" {
				path = fmt.Sprintf("products-%s.xlsx", time.Now().Format("20060102-150405"))
			}

			f, err := os.Create(path)
			if err != nil {
				return err
			}
			n, err := api.ExportProducts(cmd.Context(), f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(path)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes).\n", path, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "out", "o", "", "output file")
	return cmd
}

func (c *cli) orderStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <order-id> <PENDING|PROCESSING|COMPLETED|CANCELLED>",
		Short: "Move an order to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.admin()
			if err != nil {
				return err
			}
			order, err := api.UpdateOrderStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s is now %s.\n", order.ID, order.Status)
			return nil
		},
	}
}
