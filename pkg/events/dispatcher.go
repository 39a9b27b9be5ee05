// Package events runs the side effects of shop mutations on actors so request handlers
// never wait for them.
package events

import (
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/foodshop/pkg/models"
	"go.uber.org/zap"
)

// Dispatcher owns the actor system and hands audit and order events to its actors.
type Dispatcher struct {
	system       *actor.ActorSystem
	audit        *actor.PID
	notification *actor.PID
	logger       *zap.Logger
}

// Start spawns the audit and notification actors. writer may be nil.
func Start(service string, writer AuditWriter, logger *zap.Logger) (*Dispatcher, error) {
	system := actor.NewActorSystem()

	auditProps := actor.PropsFromProducer(func() actor.Actor {
		return &AuditActor{service: service, writer: writer, logger: logger.Named("audit-actor")}
	})
	auditPID, err := system.Root.SpawnNamed(auditProps, "audit-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn audit actor: %w", err)
	}

	notificationProps := actor.PropsFromProducer(func() actor.Actor {
		return &NotificationActor{logger: logger.Named("notification-actor")}
	})
	notificationPID, err := system.Root.SpawnNamed(notificationProps, "notification-actor")
	if err != nil {
		system.Root.Stop(auditPID)
		return nil, fmt.Errorf("failed to spawn notification actor: %w", err)
	}

	logger.Info("Event actors started",
		zap.String("audit_actor", auditPID.Id),
		zap.String("notification_actor", notificationPID.Id))

	return &Dispatcher{
		system:       system,
		audit:        auditPID,
		notification: notificationPID,
		logger:       logger,
	}, nil
}

func (d *Dispatcher) Record(action, entity, entityID string, data map[string]interface{}) {
	d.system.Root.Send(d.audit, &AuditRecord{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Data:     data,
		At:       time.Now().UTC(),
	})
}

func (d *Dispatcher) OrderPlaced(order *models.Order, mobile string) {
	d.system.Root.Send(d.notification, &OrderPlaced{
		OrderID: order.ID,
		UserID:  order.UserID,
		Mobile:  mobile,
		Total:   order.Total.StringFixed(2),
		Items:   len(order.Items),
	})
}

// Flush waits until both actors have handled everything sent so far.
func (d *Dispatcher) Flush(timeout time.Duration) error {
	for _, pid := range []*actor.PID{d.audit, d.notification} {
		if _, err := d.system.Root.RequestFuture(pid, &Flush{}, timeout).Result(); err != nil {
			return fmt.Errorf("failed to flush %s: %w", pid.Id, err)
		}
	}
	return nil
}

// Close drains both mailboxes and shuts the actor system down.
func (d *Dispatcher) Close() {
	for _, pid := range []*actor.PID{d.audit, d.notification} {
		if err := d.system.Root.PoisonFuture(pid).Wait(); err != nil {
			d.logger.Warn("Actor did not stop cleanly", zap.String("pid", pid.Id), zap.Error(err))
		}
	}
	d.system.Shutdown()
}
