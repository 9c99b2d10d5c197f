package signal

// Extracted is the outcome of one extraction attempt. It keeps "nothing
// found" and "the source was broken" distinguishable at the type level even
// though both degrade to an empty result at the pipeline boundary.
type Extracted[T any] struct {
	value  T
	state  extractedState
	reason string
}

type extractedState uint8

const (
	extractedEmpty extractedState = iota
	extractedOK
	extractedFailed
)

// Ok wraps a successfully extracted value.
func Ok[T any](v T) Extracted[T] {
	return Extracted[T]{value: v, state: extractedOK}
}

// Empty reports that the expected structure was simply absent.
func Empty[T any]() Extracted[T] {
	return Extracted[T]{state: extractedEmpty}
}

// Failed reports that the structure was present but could not be parsed.
// The reason is diagnostic only; callers still treat it as an empty result.
func Failed[T any](reason string) Extracted[T] {
	return Extracted[T]{state: extractedFailed, reason: reason}
}

// Get returns the value and whether one was extracted.
func (e Extracted[T]) Get() (T, bool) {
	return e.value, e.state == extractedOK
}

// IsFailed reports whether extraction crashed rather than found nothing.
func (e Extracted[T]) IsFailed() bool {
	return e.state == extractedFailed
}

// Reason returns the failure diagnostic, empty unless IsFailed.
func (e Extracted[T]) Reason() string {
	return e.reason
}
