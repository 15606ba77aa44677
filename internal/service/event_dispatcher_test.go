package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufrn-horarios/horarios-api/internal/dto"
)

type publisherStub struct {
	mu       sync.Mutex
	failures int
	calls    int
	events   []dto.SectionEvent
	done     chan struct{}
}

func (p *publisherStub) Publish(ctx context.Context, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, payload.(dto.SectionEvent))
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	return nil
}

func TestEventDispatcherPublishesWithRetry(t *testing.T) {
	done := make(chan struct{})
	publisher := &publisherStub{failures: 1, done: done}
	dispatcher := NewEventDispatcher(publisher, nil, nil, EventDispatcherConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	dispatcher.Dispatch(context.Background(), dto.SectionEvent{Action: dto.SectionCreated, SectionID: "s1"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.Equal(t, 2, publisher.calls)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "s1", publisher.events[0].SectionID)
	assert.False(t, publisher.events[0].At.IsZero())
}

func TestEventDispatcherWithoutPublisherIsNoop(t *testing.T) {
	dispatcher := NewEventDispatcher(nil, nil, nil, EventDispatcherConfig{})
	dispatcher.Start(context.Background())
	dispatcher.Dispatch(context.Background(), dto.SectionEvent{SectionID: "s1"})
	dispatcher.Stop()

	var nilDispatcher *EventDispatcher
	nilDispatcher.Dispatch(context.Background(), dto.SectionEvent{SectionID: "s1"})
}

func TestEventDispatcherDropsWhenNotStarted(t *testing.T) {
	publisher := &publisherStub{}
	dispatcher := NewEventDispatcher(publisher, nil, nil, EventDispatcherConfig{})
	dispatcher.Dispatch(context.Background(), dto.SectionEvent{SectionID: "s1"})

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.Zero(t, publisher.calls)
}
