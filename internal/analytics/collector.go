package analytics

import (
	"context"
	"log/slog"

	"github.com/paperalign/paperalign/pkg/kafka"
)

// Collector buffers analytics events and publishes them to Kafka in the
// background. Question events go to the question topic, ingest events to
// the ingest topic. Track never blocks the request path: when the buffer
// is full the event is dropped with a warning.
type Collector struct {
	questions *kafka.Producer
	ingests   *kafka.Producer
	eventCh   chan any
	logger    *slog.Logger
	done      chan struct{}
}

// NewCollector wires the two topic producers. A nil ingests producer
// falls back to the question topic.
func NewCollector(questions, ingests *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if ingests == nil {
		ingests = questions
	}
	return &Collector{
		questions: questions,
		ingests:   ingests,
		eventCh:   make(chan any, bufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) Track(event any) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event any) {
	if err := c.producerFor(event).Publish(ctx, kafka.Event{Key: "analytics", Value: event}); err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}

func (c *Collector) producerFor(event any) *kafka.Producer {
	if _, ok := event.(IngestEvent); ok {
		return c.ingests
	}
	return c.questions
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
