package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// pubsubTopic is the subset of *pubsub.Topic the sender uses.
type pubsubTopic interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

type gcpPubSubSender struct {
	topic pubsubTopic
	log   Logger
}

func newGCPPubSubSender(ctx context.Context, cfg *GCPQueueConfig, log Logger) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gcp queue configuration is missing")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &gcpPubSubSender{topic: client.Topic(cfg.Topic), log: ensureLogger(log)}, nil
}

// Send publishes the share event and waits for the server ack.
func (s *gcpPubSubSender) Send(ctx context.Context, evt ShareEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal share event: %w", err)
	}

	res := s.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{attrArticleID: evt.articleAttr()},
	})
	msgID, err := res.Get(ctx)
	if err != nil {
		s.log.ErrorObj("pubsub share send failed", "publisher_gcp_pubsub_error", map[string]any{
			"article_id": evt.ArticleID,
			"error":      err.Error(),
		})
		return fmt.Errorf("publish to pubsub: %w", err)
	}

	s.log.DebugObj("pubsub share delivered", "publisher_gcp_pubsub_delivery", map[string]any{
		"article_id": evt.ArticleID,
		"message_id": msgID,
	})
	return nil
}
