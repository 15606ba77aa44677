package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ufrn-horarios/horarios-api/internal/dto"
	"github.com/ufrn-horarios/horarios-api/pkg/jobs"
)

type eventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// EventDispatcherConfig tunes the background publishing queue.
type EventDispatcherConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// EventDispatcher publishes section change events off the request path. A
// dispatcher without a publisher drops events silently.
type EventDispatcher struct {
	publisher eventPublisher
	queue     *jobs.Queue
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEventDispatcher wires a publisher behind a retrying job queue.
func NewEventDispatcher(publisher eventPublisher, metrics *MetricsService, logger *zap.Logger, cfg EventDispatcherConfig) *EventDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &EventDispatcher{publisher: publisher, metrics: metrics, logger: logger}
	if publisher != nil {
		d.queue = jobs.NewQueue("section-events", d.handle, jobs.QueueConfig{
			Workers:    cfg.Workers,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			Logger:     logger,
		})
	}
	return d
}

// Start launches the publishing workers.
func (d *EventDispatcher) Start(ctx context.Context) {
	if d == nil || d.queue == nil {
		return
	}
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *EventDispatcher) Stop() {
	if d == nil || d.queue == nil {
		return
	}
	d.queue.Stop()
}

// Dispatch queues event for publishing. Failures are logged, never returned:
// the mutation that produced the event has already committed.
func (d *EventDispatcher) Dispatch(ctx context.Context, event dto.SectionEvent) {
	if d == nil || d.queue == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	job := jobs.Job{ID: uuid.NewString(), Type: dto.SectionEventType, Payload: event}
	if err := d.queue.Enqueue(job); err != nil {
		d.metrics.RecordEventPublished(false)
		d.logger.Warn("section event dropped", zap.String("section_id", event.SectionID), zap.String("action", string(event.Action)), zap.Error(err))
	}
}

func (d *EventDispatcher) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(dto.SectionEvent)
	if !ok {
		d.logger.Error("unexpected event payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	if err := d.publisher.Publish(ctx, job.Type, event); err != nil {
		d.metrics.RecordEventPublished(false)
		return err
	}
	d.metrics.RecordEventPublished(true)
	return nil
}
