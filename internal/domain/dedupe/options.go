package dedupe

// Option configures NewInMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the window to the most recent maxSize submission ids.
// A non-positive maxSize keeps every id for the life of the process.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) { d.maxSize = maxSize }
}
