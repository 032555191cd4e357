package queue

import (
	"go.uber.org/zap"

	"github.com/unclebandit/nanis-backend/internal/config"
)

// OpenSendPipeline connects the handoff pipeline to RabbitMQ when amqp.url is
// set, otherwise to an in-memory queue whose only subscriber logs handoffs.
// The returned close func releases the connection or drains the queue.
func OpenSendPipeline(cfg config.AMQPConfig, log *zap.Logger) (*SendPipeline, func() error, error) {
	if cfg.URL == "" {
		q := NewInMemoryQueue(log)
		pipeline := NewSendPipeline(q, cfg.Queue)
		if err := StartHandoffLogger(q, pipeline.Topic, log); err != nil {
			return nil, nil, err
		}
		log.Warn("amqp url not configured, campaign handoffs stay in process")
		return pipeline, func() error { q.Drain(); return nil }, nil
	}

	pub, err := DialAMQP(cfg.URL, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info("connected to RabbitMQ", zap.String("queue", cfg.Queue))
	return NewSendPipeline(pub, cfg.Queue), pub.Close, nil
}
