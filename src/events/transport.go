package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	DriverGoChannel = "gochannel"
	DriverAMQP      = "amqp"
)

// Transport is a publisher/subscriber pair for status events.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes both sides, returning the first error.
func (t *Transport) Close() error {
	pubErr := t.Publisher.Close()
	subErr := t.Subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}

// NewTransport builds the pub/sub for driver. gochannel keeps events inside
// the process; amqp uses durable queues at amqpURL.
func NewTransport(driver, amqpURL string, logger watermill.LoggerAdapter) (*Transport, error) {
	switch driver {
	case "", DriverGoChannel:
		pubSub := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, logger)
		return &Transport{Publisher: pubSub, Subscriber: pubSub}, nil

	case DriverAMQP:
		publisher, err := amqp.NewPublisher(amqp.NewDurableQueueConfig(amqpURL), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create amqp publisher: %w", err)
		}

		subscriberConfig := amqp.NewDurableQueueConfig(amqpURL)
		subscriberConfig.Consume.NoRequeueOnNack = true
		subscriber, err := amqp.NewSubscriber(subscriberConfig, logger)
		if err != nil {
			publisher.Close()
			return nil, fmt.Errorf("failed to create amqp subscriber: %w", err)
		}
		return &Transport{Publisher: publisher, Subscriber: subscriber}, nil

	default:
		return nil, fmt.Errorf("unknown events driver %q", driver)
	}
}

// NewRecorderRouter routes StatusTopic into the recorder.
func NewRecorderRouter(subscriber message.Subscriber, recorder *Recorder, logger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Second,
			Logger:          logger,
		}.Middleware,
	)

	router.AddNoPublisherHandler(
		"status_recorder",
		StatusTopic,
		subscriber,
		recorder.Handle,
	)

	return router, nil
}
