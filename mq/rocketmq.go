package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"chili-cookoff-backend/config"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
)

const tagRecompute = "recompute"

// RocketMQ publishes recompute requests to a topic and consumes them with a push
// consumer. Redelivery and the dead-letter topic are handled by the broker.
type RocketMQ struct {
	cfg      config.MQConfig
	log      *slog.Logger
	producer rocketmq.Producer

	mu       sync.Mutex
	consumer rocketmq.PushConsumer

	published  atomic.Int64
	processed  atomic.Int64
	failed     atomic.Int64
	deadLetter atomic.Int64
}

func NewRocketMQ(cfg config.MQConfig, log *slog.Logger) (*RocketMQ, error) {
	p, err := rocketmq.NewProducer(
		producer.WithNameServer([]string{cfg.NameServer}),
		producer.WithGroupName(cfg.Group+"_producer"),
		producer.WithRetry(2),
		producer.WithSendMsgTimeout(10*time.Second),
		producer.WithVIPChannel(false),
	)
	if err != nil {
		return nil, fmt.Errorf("create rocketmq producer: %w", err)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("start rocketmq producer: %w", err)
	}

	return &RocketMQ{cfg: cfg, log: log, producer: p}, nil
}

func (q *RocketMQ) PublishRecompute(ctx context.Context, entryID string) error {
	msg := newMessage(entryID)
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode recompute message: %w", err)
	}

	message := primitive.NewMessage(q.cfg.Topic, body)
	message.WithTag(tagRecompute)
	message.WithKeys([]string{msg.MessageID})
	message.WithShardingKey(entryID)

	res, err := q.producer.SendSync(ctx, message)
	if err != nil {
		return fmt.Errorf("send recompute message: %w", err)
	}

	q.published.Add(1)
	q.log.Debug("recompute message sent", "msg_id", res.MsgID, "entry_id", entryID)
	return nil
}

func (q *RocketMQ) Start(_ context.Context, handler Handler) error {
	if handler == nil {
		return ErrNoHandler
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.consumer != nil {
		return nil
	}

	c, err := rocketmq.NewPushConsumer(
		consumer.WithNameServer([]string{q.cfg.NameServer}),
		consumer.WithGroupName(q.cfg.Group),
		consumer.WithConsumerModel(consumer.Clustering),
		consumer.WithConsumeFromWhere(consumer.ConsumeFromLastOffset),
		consumer.WithMaxReconsumeTimes(int32(q.cfg.MaxRetries)),
	)
	if err != nil {
		return fmt.Errorf("create rocketmq consumer: %w", err)
	}

	err = c.Subscribe(q.cfg.Topic, consumer.MessageSelector{
		Type:       consumer.TAG,
		Expression: tagRecompute,
	}, func(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
		for _, m := range msgs {
			var msg RecomputeMessage
			if err := json.Unmarshal(m.Body, &msg); err != nil {
				q.log.Error("recompute message undecodable", "msg_id", m.MsgId, "error", err)
				continue
			}

			if err := handler(ctx, msg.EntryID); err != nil {
				q.failed.Add(1)
				if m.ReconsumeTimes >= int32(q.cfg.MaxRetries) {
					q.deadLetter.Add(1)
					q.log.Error("stats retry exhausted", "entry_id", msg.EntryID, "error", err)
				} else {
					q.log.Warn("stats retry failed", "entry_id", msg.EntryID, "attempt", m.ReconsumeTimes+1, "error", err)
				}
				return consumer.ConsumeRetryLater, nil
			}
			q.processed.Add(1)
		}
		return consumer.ConsumeSuccess, nil
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", q.cfg.Topic, err)
	}

	if err := c.Start(); err != nil {
		return fmt.Errorf("start rocketmq consumer: %w", err)
	}

	q.consumer = c
	q.log.Info("rocketmq stats consumer started", "topic", q.cfg.Topic, "group", q.cfg.Group)
	return nil
}

// RetryDeadLetters is not supported; the broker keeps dead letters in the
// %DLQ% topic of the consumer group.
func (q *RocketMQ) RetryDeadLetters(context.Context) (int, error) {
	return 0, ErrUnsupported
}

func (q *RocketMQ) Stats(context.Context) Stats {
	return Stats{
		Driver:     config.MQDriverRocketMQ,
		Pending:    -1,
		Processing: -1,
		DeadLetter: q.deadLetter.Load(),
		Published:  q.published.Load(),
		Processed:  q.processed.Load(),
		Failed:     q.failed.Load(),
	}
}

func (q *RocketMQ) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.consumer != nil {
		if err := q.consumer.Shutdown(); err != nil {
			q.log.Warn("rocketmq consumer shutdown failed", "error", err)
		}
		q.consumer = nil
	}
	if err := q.producer.Shutdown(); err != nil {
		q.log.Warn("rocketmq producer shutdown failed", "error", err)
	}
}
