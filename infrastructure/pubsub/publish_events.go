package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

var errNoClient = errors.New("pubsub client not configured")

// PublishEvents publishes outcome events as JSON messages on one topic.
// The topic is created on first use when it does not exist.
type PublishEvents struct {
	client    *pubsub.Client
	topicName string

	mu    sync.Mutex
	topic *pubsub.Topic
}

func NewPublishEvents(client *pubsub.Client, topicName string) repository.IPublishEvents {
	return &PublishEvents{client: client, topicName: topicName}
}

func (p *PublishEvents) PublishOutcome(ctx context.Context, evt model.PublishEvent) error {
	if p.client == nil {
		return errNoClient
	}
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":       evt.Type,
			"account_id": evt.AccountID,
		},
	}
	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).WithField("type", evt.Type).Info("Message published")
	return nil
}

func (p *PublishEvents) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.topic != nil {
		return p.topic, nil
	}
	topic := p.client.Topic(p.topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		logger.GetLogger().WithField("topic", p.topicName).Info("Topic doesn't exist - creating it")
		if topic, err = p.client.CreateTopic(ctx, p.topicName); err != nil {
			return nil, err
		}
	}
	p.topic = topic
	return topic, nil
}

// Stop flushes pending messages.
func (p *PublishEvents) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.topic != nil {
		p.topic.Stop()
	}
}
