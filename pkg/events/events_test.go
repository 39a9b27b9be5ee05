package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/foodshop/pkg/models"
	"github.com/example/foodshop/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memoryWriter struct {
	mu   sync.Mutex
	logs []*repository.AuditLog
	err  error
}

func (w *memoryWriter) CreateAuditLog(_ context.Context, log *repository.AuditLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.logs = append(w.logs, log)
	return nil
}

func (w *memoryWriter) all() []*repository.AuditLog {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*repository.AuditLog(nil), w.logs...)
}

func TestDispatcher_RecordWritesAuditLogs(t *testing.T) {
	writer := &memoryWriter{}
	d, err := Start("foodshop-api", writer, zap.NewNop())
	require.NoError(t, err)
	defer d.Close()

	d.Record("create", "category", "cat-1", map[string]interface{}{"name": "Burgers"})
	d.Record("delete", "product", "prod-1", nil)
	require.NoError(t, d.Flush(time.Second))

	logs := writer.all()
	require.Len(t, logs, 2)
	assert.Equal(t, "foodshop-api", logs[0].Service)
	assert.Equal(t, "create", logs[0].Action)
	assert.Equal(t, "cat-1", logs[0].EntityID)
	assert.Equal(t, "Burgers", logs[0].Data["name"])
	assert.False(t, logs[0].CreatedAt.IsZero())
	assert.Equal(t, "product", logs[1].Entity)
}

func TestDispatcher_AuditWriteFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	d, err := Start("foodshop-api", &memoryWriter{err: errors.New("mongo down")}, zap.New(core))
	require.NoError(t, err)
	defer d.Close()

	d.Record("create", "category", "cat-1", nil)
	require.NoError(t, d.Flush(time.Second))

	failures := logs.FilterMessage("Failed to write audit log").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "cat-1", failures[0].ContextMap()["entity_id"])
}

func TestDispatcher_OrderPlacedMasksPhone(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	d, err := Start("foodshop-api", nil, zap.New(core))
	require.NoError(t, err)
	defer d.Close()

	d.OrderPlaced(&models.Order{
		ID:     "order-1",
		UserID: "user-1",
		Total:  decimal.RequireFromString("17"),
		Items:  []models.OrderItem{{ProductID: "p1", Quantity: 2}},
	}, "+1 555 000 1234")
	require.NoError(t, d.Flush(time.Second))

	sent := logs.FilterMessage("New order notification").All()
	require.Len(t, sent, 1)
	fields := sent[0].ContextMap()
	assert.Equal(t, "order-1", fields["order_id"])
	assert.Equal(t, "*******234", fields["customer"])
	assert.Equal(t, "17.00", fields["total"])
	assert.Equal(t, int64(1), fields["items"])
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "*******234", MaskPhone("+15550001234"))
	assert.Equal(t, "*******789", MaskPhone("(012) 345-6789"))
	assert.Equal(t, "12345", MaskPhone("12345"))
}
