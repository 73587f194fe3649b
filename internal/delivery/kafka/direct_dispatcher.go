package kafka

import (
	"context"

	"github.com/azizikri/coursehub/internal/usecase"
	"github.com/google/uuid"
)

// Recomputer is implemented by *usecase.ProgressAggregator.
type Recomputer interface {
	Recompute(ctx context.Context, userID, courseID uuid.UUID) usecase.RecomputeResult
}

// DirectDispatcher recomputes inline, for deployments without Kafka.
type DirectDispatcher struct {
	aggregator Recomputer
}

func NewDirectDispatcher(aggregator Recomputer) usecase.ProgressDispatcher {
	return &DirectDispatcher{aggregator: aggregator}
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, userID, courseID uuid.UUID, _ string) {
	d.aggregator.Recompute(ctx, userID, courseID)
}
