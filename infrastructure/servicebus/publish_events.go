package servicebus

import (
	"context"
	"encoding/json"
	"errors"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// PublishEvents sends outcome events to a Service Bus queue.
type PublishEvents struct {
	queue     string
	newSender func(queue string) (messageSender, error)
}

func NewPublishEvents(client *azservicebus.Client, queue string) repository.IPublishEvents {
	p := &PublishEvents{queue: queue}
	p.newSender = func(queue string) (messageSender, error) {
		if client == nil {
			return nil, errors.New("service bus client not configured")
		}
		return client.NewSender(queue, nil)
	}
	return p
}

func (p *PublishEvents) PublishOutcome(ctx context.Context, evt model.PublishEvent) error {
	sender, err := p.newSender(p.queue)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func() {
		if err := sender.Close(context.Background()); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}()

	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	contentType := "application/json"
	subject := evt.Type
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		ApplicationProperties: map[string]any{
			"account_id": evt.AccountID,
			"user_id":    evt.UserID,
		},
	}
	if evt.PublishID != "" {
		id := evt.PublishID
		msg.MessageID = &id
	}
	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}
