package shop

import (
	"context"

	"github.com/example/foodshop/pkg/models"
)

// Cached page paths. Every catalog mutation drops all of them.
const (
	PathHome                = "/"
	PathCategories          = "/categories"
	PathProducts            = "/products"
	PathDashboard           = "/dashboard"
	PathDashboardCategories = "/dashboard/categories"
	PathDashboardProducts   = "/dashboard/products"
)

var catalogPaths = []string{
	PathHome,
	PathCategories,
	PathProducts,
	PathDashboard,
	PathDashboardCategories,
	PathDashboardProducts,
}

// CachedPaths lists every page path the services cache.
func CachedPaths() []string {
	return append([]string(nil), catalogPaths...)
}

type PageCache interface {
	GetPage(ctx context.Context, path, variant string, dest interface{}) (bool, error)
	SetPage(ctx context.Context, path, variant string, value interface{}) error
	InvalidatePaths(ctx context.Context, paths ...string) error
}

type UserCache interface {
	CacheUser(ctx context.Context, user *models.User) error
	GetCachedUser(ctx context.Context, mobile string) (*models.User, bool, error)
}

type IdempotencyStore interface {
	LookupOrderKey(ctx context.Context, userID, key string) (string, bool, error)
	RememberOrderKey(ctx context.Context, userID, key, orderID string) (string, error)
	ForgetOrderKey(ctx context.Context, userID, key string) error
}

type ImageDeleter interface {
	Delete(ctx context.Context, url string) error
}

// Auditor receives a record of every successful mutation.
type Auditor interface {
	Record(action, entity, entityID string, data map[string]interface{})
}

type Notifier interface {
	OrderPlaced(order *models.Order, mobile string)
}

// Auditors fans a record out to several auditors.
type Auditors []Auditor

func (as Auditors) Record(action, entity, entityID string, data map[string]interface{}) {
	for _, a := range as {
		a.Record(action, entity, entityID, data)
	}
}

type Notifiers []Notifier

func (ns Notifiers) OrderPlaced(order *models.Order, mobile string) {
	for _, n := range ns {
		n.OrderPlaced(order, mobile)
	}
}

type options struct {
	cache    PageCache
	users    UserCache
	idem     IdempotencyStore
	images   ImageDeleter
	audit    Auditor
	notifier Notifier
}

// Option plugs an optional collaborator into a service. Services fall back to no-ops.
type Option func(*options)

func WithPageCache(cache PageCache) Option {
	return func(o *options) { o.cache = cache }
}

func WithUserCache(users UserCache) Option {
	return func(o *options) { o.users = users }
}

func WithIdempotency(idem IdempotencyStore) Option {
	return func(o *options) { o.idem = idem }
}

func WithImageDeleter(images ImageDeleter) Option {
	return func(o *options) { o.images = images }
}

func WithAuditor(audit Auditor) Option {
	return func(o *options) { o.audit = audit }
}

func WithNotifier(notifier Notifier) Option {
	return func(o *options) { o.notifier = notifier }
}

func buildOptions(opts []Option) options {
	o := options{
		cache:    nopCache{},
		users:    nopUserCache{},
		images:   nopImages{},
		audit:    nopAuditor{},
		notifier: nopNotifier{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type nopCache struct{}

func (nopCache) GetPage(context.Context, string, string, interface{}) (bool, error) { return false, nil }
func (nopCache) SetPage(context.Context, string, string, interface{}) error         { return nil }
func (nopCache) InvalidatePaths(context.Context, ...string) error                   { return nil }

type nopUserCache struct{}

func (nopUserCache) CacheUser(context.Context, *models.User) error { return nil }
func (nopUserCache) GetCachedUser(context.Context, string) (*models.User, bool, error) {
	return nil, false, nil
}

type nopImages struct{}

func (nopImages) Delete(context.Context, string) error { return nil }

type nopAuditor struct{}

func (nopAuditor) Record(string, string, string, map[string]interface{}) {}

type nopNotifier struct{}

func (nopNotifier) OrderPlaced(*models.Order, string) {}
