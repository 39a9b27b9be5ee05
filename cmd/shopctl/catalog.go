package main

import (
	"fmt"
	"strconv"

	"github.com/example/foodshop/pkg/shop"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func pageFlags(cmd *cobra.Command, p *shop.Page) {
	cmd.Flags().IntVar(&p.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&p.Limit, "limit", shop.DefaultLimit, "items per page")
}

func (c *cli) categoriesCmd() *cobra.Command {
	var page shop.Page
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List menu categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := c.api().ListCategories(cmd.Context(), page)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			rows := make([][]string, len(result.Items))
			for i, cat := range result.Items {
				rows[i] = []string{cat.ID, cat.Name, strconv.FormatInt(cat.ProductCount, 10)}
			}
			renderTable(out, []string{"ID", "Name", "Products"}, rows)
			pageFooter(out, result.Page, result.TotalPages, result.Total)
			return nil
		},
	}
	pageFlags(cmd, &page)
	return cmd
}

func (c *cli) productsCmd() *cobra.Command {
	var (
		filter             shop.ProductFilter
		minPrice, maxPrice string
	)
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if filter.MinPrice, err = optionalPrice("min", minPrice); err != nil {
				return err
			}
			if filter.MaxPrice, err = optionalPrice("max", maxPrice); err != nil {
				return err
			}

			result, err := c.api().ListProducts(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			rows := make([][]string, len(result.Items))
			for i, p := range result.Items {
				category := ""
				if p.Category != nil {
					category = p.Category.Name
				}
				rows[i] = []string{p.ID, p.Name, category, money(p.Price)}
			}
			renderTable(out, []string{"ID", "Name", "Category", "Price"}, rows)
			pageFooter(out, result.Page, result.TotalPages, result.Total)
			return nil
		},
	}
	pageFlags(cmd, &filter.Page)
	cmd.Flags().StringVar(&filter.CategoryID, "category", "", "only products in this category id")
	cmd.Flags().StringVarP(&filter.Search, "search", "s", "", "match name or description")
	cmd.Flags().StringVar(&minPrice, "min", "", "minimum price")
	cmd.Flags().StringVar(&maxPrice, "max", "", "maximum price")
	cmd.Flags().StringVar(&filter.Sort, "sort", "", "newest, price_asc, price_desc or name")
	return cmd
}

func optionalPrice(name, value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("--%s must be a number: %w", name, err)
	}
	return &d, nil
}

func (c *cli) productCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.api().GetProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			title(out, "%s  %s", p.Name, money(p.Price))
			if p.Category != nil {
				muted(out, "in %s", p.Category.Name)
			}
			if p.Description != "" {
				fmt.Fprintln(out, p.Description)
			}
			if p.Image != "" {
				muted(out, "%s", p.Image)
			}
			return nil
		},
	}
}
