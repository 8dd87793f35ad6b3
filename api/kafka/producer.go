package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"

	workerkafka "imageResizer/worker/kafka"
)

// BatchMessage is the payload consumed by the worker.
type BatchMessage = workerkafka.BatchMessage

type Producer interface {
	SendBatchMessage(ctx context.Context, topic string, message *BatchMessage) error
	Close() error
}

type producer struct {
	producer sarama.SyncProducer
}

// NewProducer keys messages by batch ID so retries of the same batch land on
// one partition.
func NewProducer(brokers []string) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Partitioner = sarama.NewHashPartitioner

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create sync producer: %w", err)
	}

	return &producer{producer: p}, nil
}

func (p *producer) SendBatchMessage(ctx context.Context, topic string, message *BatchMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := workerkafka.EncodeBatchMessage(message)
	if err != nil {
		return fmt.Errorf("encode batch message: %w", err)
	}

	_, _, err = p.producer.SendMessage(newProducerMessage(topic, message.BatchID, message.TraceID, data))
	return err
}

func newProducerMessage(topic, key, traceID string, value []byte) *sarama.ProducerMessage {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	if traceID != "" {
		msg.Headers = []sarama.RecordHeader{
			{Key: []byte("trace_id"), Value: []byte(traceID)},
		}
	}
	return msg
}

func (p *producer) Close() error {
	return p.producer.Close()
}
