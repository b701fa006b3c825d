package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/userlab/internal/shared/platform/bus"
)

// KafkaPublisher publica eventos de dominio en Kafka. El tipo de
// evento viaja como header y la clave de partición la aporta el
// propio payload cuando implementa Keyer.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(writer *kafka.Writer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

var _ sharedBus.EventBus = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) Publish(ctx context.Context, event interface{}) error {
	payload := event
	var headers []kafka.Header
	if env, ok := event.(sharedBus.Envelope); ok {
		payload = env.Payload
		headers = append(headers, kafka.Header{Key: "event-type", Value: []byte(env.Type)})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var key []byte
	if keyer, ok := event.(sharedBus.Keyer); ok {
		if k := keyer.PartitionKey(); k != "" {
			key = []byte(k)
		}
	}

	msg := kafka.Message{
		Key:     key,
		Value:   data,
		Headers: headers,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("Error publishing to Kafka", zap.Error(err))
		return err
	}

	p.log.Debug("Event published successfully", zap.Any("event", payload))
	return nil
}
