package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/azizikri/coursehub/internal/platform/logger"
	"github.com/azizikri/coursehub/internal/usecase"
	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the subset of *kgo.Client used to publish records.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Dispatcher publishes recompute requests to Kafka. Records are keyed by
// enrollment so one user's events for a course stay ordered on a partition.
type Dispatcher struct {
	producer Producer
	log      *logger.Logger
	now      func() time.Time
}

var _ usecase.ProgressDispatcher = (*Dispatcher)(nil)

func NewDispatcher(producer Producer, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		producer: producer,
		log:      log.With("component", "KafkaProgressDispatcher"),
		now:      time.Now,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, userID, courseID uuid.UUID, reason string) {
	payload, err := json.Marshal(ProgressEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.NewString(),
		UserID:        userID,
		CourseID:      courseID,
		Reason:        reason,
		OccurredAt:    d.now().UTC(),
	})
	if err != nil {
		d.log.Error("Failed to encode progress event", "user_id", userID, "course_id", courseID, "error", err)
		return
	}

	record := &kgo.Record{
		Topic: TopicProgressRequest,
		Key:   eventKey(userID, courseID),
		Value: payload,
	}
	// The request may finish before the broker acks.
	d.producer.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			d.log.Error("Failed to publish progress event", "user_id", userID, "course_id", courseID, "reason", reason, "error", err)
		}
	})
}
