package notification

import (
	"context"
	"time"

	"github.com/labelforge/orderdesk/internal/logger"
	"github.com/labelforge/orderdesk/internal/types/notification"
	"go.uber.org/zap"
)

// Dispatcher delivers queued notification tasks through a worker pool.
// Delivery is fire-and-forget for the caller: Enqueue never blocks, and a
// failed delivery is logged with its task ID but never propagated.
type Dispatcher struct {
	jobs   chan notification.Task
	mailer Mailer
	emails EmailRepository
	orders OrderFinder
}

func NewDispatcher(mailer Mailer, emails EmailRepository, orders OrderFinder, queueSize int) *Dispatcher {
	return &Dispatcher{
		jobs:   make(chan notification.Task, queueSize),
		mailer: mailer,
		emails: emails,
		orders: orders,
	}
}

// Enqueue hands a task to the pool without blocking. A full queue drops the
// task (logged); the record stays pending so the operator can resend.
func (d *Dispatcher) Enqueue(task notification.Task) bool {
	select {
	case d.jobs <- task:
		return true
	default:
		logger.Log.Warn("notification queue full, task dropped",
			zap.String("task", task.ID),
			zap.Int64("order", task.OrderID),
			zap.String("type", string(task.Type)),
		)
		return false
	}
}

// Run запускает пул воркеров и блокируется до отмены контекста.
func (d *Dispatcher) Run(ctx context.Context, workerCount int) {
	for i := 1; i <= workerCount; i++ {
		go d.workerLoop(ctx, i)
	}
	<-ctx.Done()
	close(d.jobs)
}

func (d *Dispatcher) workerLoop(ctx context.Context, id int) {
	logger.Log.Info("notification worker started", zap.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("notification worker stopped", zap.Int("worker", id))
			return

		case task, ok := <-d.jobs:
			if !ok {
				return
			}
			d.deliver(ctx, id, task)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, workerID int, task notification.Task) {
	o, err := d.orders.FindOrderByID(ctx, task.OrderID)
	if err != nil {
		logger.Log.Error("notification order lookup failed",
			zap.Int("worker", workerID),
			zap.String("task", task.ID),
			zap.Int64("order", task.OrderID),
			zap.Error(err),
		)
		return
	}

	if err := d.mailer.Send(ctx, task.Type, o); err != nil {
		// Dead letter: record stays pending, failure is visible in the log.
		logger.Log.Error("notification delivery failed",
			zap.Int("worker", workerID),
			zap.String("task", task.ID),
			zap.String("order", o.Number),
			zap.String("type", string(task.Type)),
			zap.Error(err),
		)
		return
	}

	if err := d.emails.MarkEmailSent(ctx, task.OrderID, task.Type, time.Now().UTC()); err != nil {
		logger.Log.Error("mark notification sent failed",
			zap.Int("worker", workerID),
			zap.String("task", task.ID),
			zap.Error(err),
		)
		return
	}
	logger.Log.Info("notification delivered",
		zap.Int("worker", workerID),
		zap.String("task", task.ID),
		zap.String("order", o.Number),
		zap.String("type", string(task.Type)),
	)
}
