// Package feed publishes fill events to a Kafka topic for downstream
// consumers (trade tape, analytics). The publisher buffers internally
// so the engine's Publish never blocks on the broker.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/parkmin/tokenex/pkg/app/core/engine"
)

// Publisher implements engine.FillSink over a kafka-go Writer.
type Publisher struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
	events chan engine.Fill
	done   chan struct{}
}

// NewPublisher creates a publisher and starts its writer loop.
func NewPublisher(brokers []string, topic string, log *zap.SugaredLogger) *Publisher {
	p := &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		log:    log,
		events: make(chan engine.Fill, 1024),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues a fill for delivery. Drops the event if the buffer is
// full rather than stalling the matching path.
func (p *Publisher) Publish(f engine.Fill) {
	select {
	case p.events <- f:
	default:
		p.log.Warnw("feed_buffer_full", "seq", f.Seq)
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for f := range p.events {
		value, err := json.Marshal(f)
		if err != nil {
			p.log.Errorw("feed_marshal", "err", err)
			continue
		}
		msg := kafka.Message{Key: []byte(f.Ticker), Value: value}
		if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
			p.log.Errorw("feed_write", "seq", f.Seq, "err", err)
		}
	}
}

// Close drains queued events and closes the writer.
func (p *Publisher) Close() error {
	close(p.events)
	<-p.done
	return p.writer.Close()
}
