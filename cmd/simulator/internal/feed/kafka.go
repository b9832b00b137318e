// Package feed exports price store snapshots to Kafka and Redis. Sinks are
// store observers: they log their failures and never report them back.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-simulator/pkg/models"
)

const writeTimeout = 2 * time.Second

type KafkaSink struct {
	logger *zap.Logger
	writer KafkaWriter
}

func NewKafkaSink(logger *zap.Logger, writer KafkaWriter) *KafkaSink {
	return &KafkaSink{logger: logger, writer: writer}
}

// Observe writes one message per stock, keyed by symbol so each symbol stays
// on one partition.
func (k *KafkaSink) Observe(snap models.Snapshot) {
	msgs := make([]kafka.Message, 0, len(snap.Stocks))
	for _, u := range snap.Updates() {
		payload, err := json.Marshal(u)
		if err != nil {
			k.logger.Error("JSON Marshal Error", zap.Error(err))
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(u.Symbol),
			Value: payload,
		})
	}
	if len(msgs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		k.logger.Error("Kafka Write Error", zap.Error(err), zap.Int64("seq_id", snap.SeqID))
		return
	}
	k.logger.Debug("Sent snapshot", zap.Int64("seq_id", snap.SeqID), zap.Int("messages", len(msgs)))
}

// Close flushes buffered messages.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
