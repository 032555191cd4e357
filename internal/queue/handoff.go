package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultHandoffTopic is the queue the external send pipeline consumes.
const DefaultHandoffTopic = "campaign_sends"

// HandoffMessage tells the send pipeline to start sending one campaign.
type HandoffMessage struct {
	CampaignID     uuid.UUID `json:"campaign_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	HandedOffAt    time.Time `json:"handed_off_at"`
}

// SendPipeline publishes campaign handoffs to a topic.
type SendPipeline struct {
	Publisher Publisher
	Topic     string
}

func NewSendPipeline(p Publisher, topic string) *SendPipeline {
	if topic == "" {
		topic = DefaultHandoffTopic
	}
	return &SendPipeline{Publisher: p, Topic: topic}
}

func (s *SendPipeline) Handoff(ctx context.Context, msg HandoffMessage) error {
	return s.Publisher.Publish(ctx, s.Topic, msg)
}

// StartHandoffLogger subscribes to the handoff topic and logs each message.
// The in-memory queue needs a subscriber to accept publishes when no external
// pipeline is attached.
func StartHandoffLogger(q Queue, topic string, log *zap.Logger) error {
	return q.Subscribe(topic, func(payload any) error {
		msg, ok := payload.(HandoffMessage)
		if !ok {
			log.Warn("unexpected handoff payload", zap.Any("payload", payload))
			return nil // no retry
		}
		log.Info("campaign handed off to send pipeline",
			zap.String("campaign_id", msg.CampaignID.String()),
			zap.String("organization_id", msg.OrganizationID.String()),
			zap.Time("handed_off_at", msg.HandedOffAt),
		)
		return nil
	})
}
