package main

import (
	"fmt"
	"strconv"

	"github.com/example/foodshop/pkg/cart"
	"github.com/spf13/cobra"
)

func (c *cli) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the cart kept on this machine",
	}
	cmd.AddCommand(c.cartShowCmd(), c.cartAddCmd(), c.cartRemoveCmd(), c.cartSetCmd(), c.cartClearCmd())
	return cmd
}

func (c *cli) showCart(cmd *cobra.Command, basket *cart.Cart) {
	out := cmd.OutOrStdout()
	if basket.Len() == 0 {
		muted(out, "Your cart is empty.")
		return
	}
	items := basket.Items()
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = []string{it.ProductID, it.Name, strconv.Itoa(it.Quantity), money(it.Price), money(it.LineTotal())}
	}
	renderTable(out, []string{"Product", "Name", "Qty", "Price", "Subtotal"}, rows)
	title(out, "Total %s", money(basket.Total()))
}

func (c *cli) cartShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show cart contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			basket, err := c.cart()
			if err != nil {
				return err
			}
			c.showCart(cmd, basket)
			return nil
		},
	}
}

func (c *cli) cartAddCmd() *cobra.Command {
	var qty int
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product at its current price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.api().GetProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			basket, err := c.cart()
			if err != nil {
				return err
			}
			if err := basket.AddItem(cart.Product{ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image}, qty); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d × %s.\n", qty, p.Name)
			c.showCart(cmd, basket)
			return nil
		},
	}
	cmd.Flags().IntVarP(&qty, "qty", "q", 1, "quantity to add")
	return cmd
}

func (c *cli) cartRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			basket, err := c.cart()
			if err != nil {
				return err
			}
			if err := basket.RemoveItem(args[0]); err != nil {
				return err
			}
			c.showCart(cmd, basket)
			return nil
		},
	}
}

func (c *cli) cartSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set the quantity of a cart line; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be a whole number: %w", err)
			}
			basket, err := c.cart()
			if err != nil {
				return err
			}
			if err := basket.UpdateQuantity(args[0], qty); err != nil {
				return err
			}
			c.showCart(cmd, basket)
			return nil
		},
	}
}

func (c *cli) cartClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			basket, err := c.cart()
			if err != nil {
				return err
			}
			if err := basket.Clear(); err != nil {
				return err
			}
			muted(cmd.OutOrStdout(), "Your cart is empty.")
			return nil
		},
	}
}
