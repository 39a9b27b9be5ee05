package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/example/foodshop/pkg/checkout"
	"github.com/example/foodshop/pkg/client"
	"github.com/example/foodshop/pkg/identity"
	"github.com/example/foodshop/pkg/shop"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// The phone OTP exchange happens in the identity provider's own client; these commands take
// the resulting ID token.

func (c *cli) registerCmd() *cobra.Command {
	var token, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account from a verified phone ID token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.api().Register(cmd.Context(), token, name)
			if err != nil {
				return err
			}
			return c.signedIn(cmd, s)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "ID token from the identity provider")
	cmd.Flags().StringVar(&name, "name", "", "your full name")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a verified phone ID token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.api().Login(cmd.Context(), token)
			if errors.Is(err, shop.ErrUserNotRegistered) {
				fmt.Fprintln(cmd.OutOrStdout(), "User not found. Please register first.")
				return err
			}
			if err != nil {
				return err
			}
			return c.signedIn(cmd, s)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "ID token from the identity provider")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (c *cli) signedIn(cmd *cobra.Command, s *identity.Session) error {
	if err := c.saveSession(s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s).\n", s.User.FullName, s.User.Mobile)
	return nil
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session; the cart is kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.clearSession(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (c *cli) checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for everything in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			s, err := c.session()
			if err != nil {
				return err
			}
			basket, err := c.cart()
			if err != nil {
				return err
			}

			var (
				id  *identity.Identity
				api = c.api()
			)
			if s != nil {
				id = &identity.Identity{UID: s.User.ID, Phone: s.User.Mobile, Name: s.User.FullName}
				api = c.api(client.WithToken(s.Token))
			}

			order, err := checkout.New(api, api, c.logger).Checkout(cmd.Context(), id, basket)
			if err != nil {
				if errors.Is(err, checkout.ErrReloginRequired) || errors.Is(err, identity.ErrInvalidSession) {
					if clearErr := c.clearSession(); clearErr != nil {
						c.logger.Warn("Failed to clear session", zap.Error(clearErr))
					}
				}
				fmt.Fprintln(out, checkout.Message(err))
				return err
			}

			title(out, "Order placed successfully!")
			fmt.Fprintf(out, "Order %s, total %s, status %s.\n", order.ID, money(order.Total), order.Status)
			return nil
		},
	}
}

func (c *cli) ordersCmd() *cobra.Command {
	var page shop.Page
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.session()
			if err != nil {
				return err
			}
			if s == nil {
				return checkout.ErrLoginRequired
			}
			result, err := c.api(client.WithToken(s.Token)).ListOrders(cmd.Context(), page)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, len(result.Items))
			for i, o := range result.Items {
				rows[i] = []string{o.ID, o.CreatedAt.Local().Format("2006-01-02 15:04"), string(o.Status), strconv.Itoa(len(o.Items)), money(o.Total)}
			}
			renderTable(out, []string{"Order", "Placed", "Status", "Lines", "Total"}, rows)
			pageFooter(out, result.Page, result.TotalPages, result.Total)
			return nil
		},
	}
	pageFlags(cmd, &page)
	return cmd
}
