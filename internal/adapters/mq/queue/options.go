package queue

// Option configures NewInMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the number of pending ingestion jobs. TryEnqueue
// reports ErrFull beyond it. Non-positive values keep the default.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
