// Command shopctl is a terminal storefront for the foodshop API: browse the menu, keep a
// cart between runs, sign in and check out, and run the admin reports.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/example/foodshop/pkg/cart"
	"github.com/example/foodshop/pkg/client"
	"github.com/example/foodshop/pkg/config"
	"github.com/example/foodshop/pkg/identity"
	"github.com/example/foodshop/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const sessionKey = "session"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli is the state shared by every command.
type cli struct {
	apiURL   string
	stateDir string
	adminKey string
	verbose  bool

	logger  *zap.Logger
	storage *cart.FileStorage
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "foodshop")
	}
	return ".foodshop"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "shopctl",
		Short:        "Order food from a foodshop API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.apiURL, "api", envOr("FOODSHOP_API", "http://localhost:8080"), "base URL of the API")
	flags.StringVar(&c.stateDir, "state-dir", envOr("FOODSHOP_STATE_DIR", defaultStateDir()), "where the cart and session are kept")
	flags.StringVar(&c.adminKey, "admin-key", os.Getenv("FOODSHOP_ADMIN_KEY"), "admin API key")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log requests and decisions to stderr")

	root.AddCommand(
		c.categoriesCmd(),
		c.productsCmd(),
		c.productCmd(),
		c.cartCmd(),
		c.registerCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.checkoutCmd(),
		c.ordersCmd(),
		c.adminCmd(),
		c.healthCmd(),
	)
	return root
}

func (c *cli) init() error {
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	logger, err := logging.New(&config.LogConfig{Level: level, Encoding: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		return err
	}
	c.logger = logger

	c.storage, err = cart.NewFileStorage(c.stateDir)
	return err
}

func (c *cli) api(opts ...client.Option) *client.Client {
	return client.New(c.apiURL, opts...)
}

func (c *cli) admin() (*client.Client, error) {
	if c.adminKey == "" {
		return nil, errors.New("admin key required: pass --admin-key or set FOODSHOP_ADMIN_KEY")
	}
	return c.api(client.WithAPIKey(c.adminKey)), nil
}

func (c *cli) cart() (*cart.Cart, error) {
	return cart.New(c.storage, c.logger)
}

// session returns the saved session, or nil when signed out.
func (c *cli) session() (*identity.Session, error) {
	var s identity.Session
	err := c.storage.Load(sessionKey, &s)
	if errors.Is(err, cart.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if s.Token == "" || s.User == nil {
		return nil, nil
	}
	if !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt) {
		c.logger.Debug("Saved session expired", zap.Time("expires_at", s.ExpiresAt))
		return nil, nil
	}
	return &s, nil
}

func (c *cli) saveSession(s *identity.Session) error {
	return c.storage.Save(sessionKey, s)
}

func (c *cli) clearSession() error {
	return c.storage.Remove(sessionKey)
}
