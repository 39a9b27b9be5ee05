package events

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/foodshop/pkg/repository"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Messages

type AuditRecord struct {
	Action   string
	Entity   string
	EntityID string
	Data     map[string]interface{}
	At       time.Time
}

type OrderPlaced struct {
	OrderID string
	UserID  string
	Mobile  string
	Total   string
	Items   int
}

// Flush is answered with Flushed once every message queued before it has been handled.
type Flush struct{}

type Flushed struct{}

// AuditWriter persists audit records. *repository.MongoRepository implements it.
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
}

// AuditActor writes audit records one at a time. Without a writer it only logs them.
type AuditActor struct {
	service string
	writer  AuditWriter
	logger  *zap.Logger
}

func (a *AuditActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *AuditRecord:
		a.logger.Debug("Audit",
			zap.String("action", msg.Action),
			zap.String("entity", msg.Entity),
			zap.String("entity_id", msg.EntityID))
		if a.writer == nil {
			return
		}

		wctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		err := a.writer.CreateAuditLog(wctx, &repository.AuditLog{
			Service:   a.service,
			Action:    msg.Action,
			Entity:    msg.Entity,
			EntityID:  msg.EntityID,
			Data:      msg.Data,
			CreatedAt: msg.At,
		})
		if err != nil {
			a.logger.Error("Failed to write audit log",
				zap.String("entity", msg.Entity),
				zap.String("entity_id", msg.EntityID),
				zap.Error(err))
		}

	case *Flush:
		ctx.Respond(&Flushed{})

	case *actor.Started:
		a.logger.Info("Audit actor started", zap.Bool("persistent", a.writer != nil))

	case *actor.Stopped:
		a.logger.Info("Audit actor stopped")
	}
}

// NotificationActor tells the shop about new orders.
type NotificationActor struct {
	logger *zap.Logger
	sent   int
}

func (a *NotificationActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *OrderPlaced:
		a.sent++
		a.logger.Info("New order notification",
			zap.String("order_id", msg.OrderID),
			zap.String("customer", MaskPhone(msg.Mobile)),
			zap.String("total", msg.Total),
			zap.Int("items", msg.Items))

	case *Flush:
		ctx.Respond(&Flushed{})

	case *actor.Started:
		a.logger.Info("Notification actor started")

	case *actor.Stopped:
		a.logger.Info("Notification actor stopped", zap.Int("sent", a.sent))
	}
}

// MaskPhone keeps the last three digits of a phone number: "*******123".
// Numbers with fewer than ten digits are returned unchanged.
func MaskPhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	if len(digits) < 10 {
		return phone
	}
	return "*******" + digits[len(digits)-3:]
}
