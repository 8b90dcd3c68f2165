package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/walletledger/internal/infrastructure/config"
	"github.com/iho/walletledger/internal/infrastructure/eventpublisher"
)

// openSink returns the publisher selected by EVENT_SINK, or nil for "none".
func openSink(cfg *config.Config, log zerolog.Logger) (eventpublisher.Publisher, func() error, error) {
	noop := func() error { return nil }

	switch cfg.EventSink {
	case config.SinkNone:
		return nil, noop, nil
	case config.SinkLog:
		return eventpublisher.NewLogPublisher(log), noop, nil
	case config.SinkKafka:
		p := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, p.Close, nil
	case config.SinkRabbitMQ:
		p, err := eventpublisher.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown event sink %q", cfg.EventSink)
	}
}
