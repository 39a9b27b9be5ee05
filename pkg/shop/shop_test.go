package shop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/example/foodshop/pkg/config"
	"github.com/example/foodshop/pkg/models"
	"github.com/example/foodshop/pkg/repository"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	store, err := repository.NewStore(&config.DatabaseConfig{
		Driver:       "sqlite",
		RawDSN:       "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel:     "silent",
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestRedis(t *testing.T) *repository.RedisRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	repo := repository.NewRedisRepositoryFromClient(
		redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		&config.CacheConfig{PageTTL: time.Minute, UserTTL: time.Minute},
	)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

type auditEntry struct {
	Action, Entity, ID string
	Data               map[string]interface{}
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *recordingAuditor) Record(action, entity, id string, data map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action, entity, id, data})
}

func (a *recordingAuditor) all() []auditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]auditEntry(nil), a.entries...)
}

type recordingImages struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (r *recordingImages) Delete(_ context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, url)
	return r.err
}

type recordingNotifier struct {
	orders  []*models.Order
	mobiles []string
}

func (n *recordingNotifier) OrderPlaced(order *models.Order, mobile string) {
	n.orders = append(n.orders, order)
	n.mobiles = append(n.mobiles, mobile)
}
