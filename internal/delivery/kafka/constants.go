package kafka

import "time"

const (
	TopicProgressRequest = "progress.recompute.req"
	TopicProgressRetry   = "progress.recompute.retry"
	TopicProgressDLQ     = TopicProgressRequest + TopicDLQSuffix
	TopicDLQSuffix       = ".dlq"

	SchemaVersion = 1

	// MaxRecomputeAttempts counts the first delivery.
	MaxRecomputeAttempts = 3
	RetryBackoff         = 2 * time.Second

	RetryHeaderNextAt  = "x-next-at"
	RetryHeaderAttempt = "x-attempt"
	ErrorHeaderKey     = "x-error"
)
