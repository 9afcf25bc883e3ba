package model

// Outcome is the tagged result of a backend call: either Ok with a value
// or Err with a human readable message. The zero value is an Err.
type Outcome[T any] struct {
	value   T
	message string
	ok      bool
}

func Ok[T any](value T) Outcome[T] {
	return Outcome[T]{value: value, ok: true}
}

func Err[T any](message string) Outcome[T] {
	if message == "" {
		message = "unknown error"
	}
	return Outcome[T]{message: message}
}

func (o Outcome[T]) IsOk() bool {
	return o.ok
}

// Value returns the success payload and whether the outcome is Ok.
func (o Outcome[T]) Value() (T, bool) {
	return o.value, o.ok
}

// Error returns the failure message, or "" for an Ok outcome.
func (o Outcome[T]) Error() string {
	if o.ok {
		return ""
	}
	if o.message == "" {
		return "unknown error"
	}
	return o.message
}
