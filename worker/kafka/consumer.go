package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"imageResizer/worker/models"
)

// MessageHandler accepts a batch for processing. A non-nil error means the
// batch was not accepted and its message must not be marked.
type MessageHandler func(ctx context.Context, msg *BatchMessage) error

// BatchMessage is published by the API for every queued batch.
type BatchMessage struct {
	BatchID string         `json:"batch_id"`
	TraceID string         `json:"trace_id"`
	Request models.Request `json:"request"`
}

type Consumer struct {
	consumer sarama.ConsumerGroup
	logger   *zap.Logger
}

func NewConsumer(brokers []string, groupID string, logger *zap.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	c, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{consumer: c, logger: logger}, nil
}

type consumerHandler struct {
	fn     MessageHandler
	ctx    context.Context
	logger *zap.Logger
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		batchMsg, err := DecodeBatchMessage(msg.Value)
		if err != nil {
			h.logger.Warn("Dropping malformed batch message",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			session.MarkMessage(msg, "")
			continue
		}
		if err := h.fn(h.ctx, batchMsg); err != nil {
			h.logger.Info("Batch not accepted, leaving message for redelivery",
				zap.String("batch_id", batchMsg.BatchID),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			return nil
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func EncodeBatchMessage(msg *BatchMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func DecodeBatchMessage(data []byte) (*BatchMessage, error) {
	var msg BatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Consume blocks, rejoining the group after every rebalance, until ctx is
// cancelled or the group fails.
func (c *Consumer) Consume(ctx context.Context, topic string, handler MessageHandler) error {
	h := &consumerHandler{fn: handler, ctx: ctx, logger: c.logger}
	for {
		if err := c.consumer.Consume(ctx, []string{topic}, h); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}
