package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/azizikri/coursehub/internal/platform/logger"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Consumer recomputes progress for events on the request topic. Failed
// recomputes are parked on the retry topic and, after MaxRecomputeAttempts,
// on the DLQ.
type Consumer struct {
	client     *kgo.Client
	producer   Producer
	aggregator Recomputer
	log        *logger.Logger
	now        func() time.Time
	ready      chan struct{}
}

func NewConsumer(client *kgo.Client, aggregator Recomputer, log *logger.Logger) *Consumer {
	return &Consumer{
		client:     client,
		producer:   client,
		aggregator: aggregator,
		log:        log.With("component", "ProgressConsumer"),
		now:        time.Now,
		ready:      make(chan struct{}),
	}
}

func (c *Consumer) Start(ctx context.Context) {
	close(c.ready)
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.log.Warn("Consumer poll error", "topic", topic, "partition", partition, "error", err)
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			c.processRecord(ctx, iter.Next())
		}

		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			c.log.Error("Failed to commit records", "error", err)
		}
	}
}

// StartRetry moves records from the retry topic back to the request topic
// once their x-next-at time has passed.
func (c *Consumer) StartRetry(ctx context.Context) {
	close(c.ready)
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			if nextAt, ok := retryNextAt(record); ok {
				if !sleepUntil(ctx, nextAt) {
					return
				}
			}
			c.requeue(ctx, record)
		}

		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			c.log.Error("Failed to commit retry records", "error", err)
		}
	}
}

func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) {
	var evt ProgressEvent
	if err := json.Unmarshal(record.Value, &evt); err != nil || !evt.valid() {
		c.deadLetter(ctx, record, "invalid progress event payload")
		return
	}

	res := c.aggregator.Recompute(ctx, evt.UserID, evt.CourseID)
	if res.OK() {
		return
	}
	if errors.Is(res.Err, domain.ErrNotEnrolled) {
		// Unenrolled since the event was produced; nothing left to update.
		return
	}

	attempt := attemptOf(record) + 1
	if attempt >= MaxRecomputeAttempts {
		c.deadLetter(ctx, record, res.Err.Error())
		return
	}

	retry := buildRetryRecord(record, attempt, c.now())
	if err := c.producer.ProduceSync(ctx, retry).FirstErr(); err != nil {
		c.log.Error("Failed to schedule progress retry", "event_id", evt.EventID, "attempt", attempt, "error", err)
	}
}

func (c *Consumer) requeue(ctx context.Context, record *kgo.Record) {
	out := &kgo.Record{
		Topic:   TopicProgressRequest,
		Key:     record.Key,
		Value:   record.Value,
		Headers: record.Headers,
	}
	if err := c.producer.ProduceSync(ctx, out).FirstErr(); err != nil {
		c.log.Error("Failed to requeue retry record", "error", err)
	}
}

func (c *Consumer) deadLetter(ctx context.Context, record *kgo.Record, reason string) {
	headers := append(withoutHeader(record.Headers, ErrorHeaderKey), kgo.RecordHeader{Key: ErrorHeaderKey, Value: []byte(reason)})
	dlq := &kgo.Record{
		Topic:   TopicProgressDLQ,
		Key:     record.Key,
		Value:   record.Value,
		Headers: headers,
	}
	if err := c.producer.ProduceSync(ctx, dlq).FirstErr(); err != nil {
		c.log.Error("Failed to publish to DLQ", "reason", reason, "error", err)
		return
	}
	c.log.Warn("Progress event dead-lettered", "key", string(record.Key), "reason", reason)
}

func buildRetryRecord(record *kgo.Record, attempt int, now time.Time) *kgo.Record {
	headers := withoutHeader(withoutHeader(record.Headers, RetryHeaderAttempt), RetryHeaderNextAt)
	nextAt := now.Add(time.Duration(attempt) * RetryBackoff).UTC()
	headers = append(headers,
		kgo.RecordHeader{Key: RetryHeaderAttempt, Value: []byte(strconv.Itoa(attempt))},
		kgo.RecordHeader{Key: RetryHeaderNextAt, Value: []byte(nextAt.Format(time.RFC3339Nano))},
	)
	return &kgo.Record{
		Topic:   TopicProgressRetry,
		Key:     record.Key,
		Value:   record.Value,
		Headers: headers,
	}
}

func attemptOf(record *kgo.Record) int {
	v, ok := header(record, RetryHeaderAttempt)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func retryNextAt(record *kgo.Record) (time.Time, bool) {
	v, ok := header(record, RetryHeaderNextAt)
	if !ok {
		return time.Time{}, false
	}
	nextAt, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false
	}
	return nextAt, true
}

func header(record *kgo.Record, key string) (string, bool) {
	for _, h := range record.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

func withoutHeader(headers []kgo.RecordHeader, key string) []kgo.RecordHeader {
	out := make([]kgo.RecordHeader, 0, len(headers))
	for _, h := range headers {
		if h.Key != key {
			out = append(out, h)
		}
	}
	return out
}

func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
