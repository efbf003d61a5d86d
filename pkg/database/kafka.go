package database

import (
	"context"
	"fmt"
	"time"

	"supply_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewKafkaWriterWithRetry creates a Kafka writer and confirms the connection
// by sending a probe message.
func NewKafkaWriterWithRetry(k KafkaConnection) (*kafka.Writer, error) {
	var writer *kafka.Writer
	var err error

	for attempt := 1; attempt <= k.RetryCount; attempt++ {
		writer = kafka.NewWriter(kafka.WriterConfig{
			Brokers:  k.Brokers,
			Topic:    k.Topic,
			Balancer: &kafka.LeastBytes{},
		})

		err = writer.WriteMessages(context.Background(), kafka.Message{
			Key:   []byte("ping"),
			Value: []byte("ping"),
		})
		if err == nil {
			logger.Log.Info("Kafka writer ready", zap.Int("attempt", attempt), zap.String("topic", k.Topic))
			return writer, nil
		}

		logger.Log.Warn("Kafka writer connect failed",
			zap.Int("attempt", attempt),
			zap.Int("max", k.RetryCount),
			zap.Error(err),
		)
		writer.Close()
		time.Sleep(k.RetryInterval * time.Second)
	}

	return nil, fmt.Errorf("unable to create kafka writer after %d attempts: %v", k.RetryCount, err)
}
