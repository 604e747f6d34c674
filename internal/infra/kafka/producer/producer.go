package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/unimarket/image-uploader/internal/config"
	"github.com/unimarket/image-uploader/internal/model"
)

// Producer publishes upload-completed events to Kafka.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
}

// New creates a new Producer writing to the completed-events topic.
// - cfg: Kafka configuration struct
// - s: retry strategy
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	p := wbfkafka.NewProducer(cfg.Brokers, cfg.CompletedTopic)

	return &Producer{
		Client:   p,
		strategy: s,
	}
}

// PublishCompleted serializes the event to JSON and sends it to Kafka.
// The task ID is used as the message key for partitioning and ordering.
func (p *Producer) PublishCompleted(ctx context.Context, ev model.UploadCompleted) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %v", err)
	}

	key := []byte(ev.TaskID.String())

	if err = p.Client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send event: %v", err)
	}

	return nil
}
