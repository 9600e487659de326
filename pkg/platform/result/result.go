// Package result provides a success/failure value for constructors that treat
// validation failures as data rather than control flow.
//
// A Result is either Ok (holding a value) or Fail (holding an error). Callers
// that prefer the usual Go shape can call Unwrap to get (value, error).
package result

// Result is a discriminated success/failure value.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Fail wraps a failure. A nil err is treated as a programming error and
// replaced with ErrNilFailure so the Result is never silently successful.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = ErrNilFailure
	}
	return Result[T]{err: err}
}

// IsOk reports whether the result holds a value.
func (r Result[T]) IsOk() bool { return r.err == nil }

// IsFail reports whether the result holds an error.
func (r Result[T]) IsFail() bool { return r.err != nil }

// Value returns the held value, or the zero value of T on failure.
func (r Result[T]) Value() T { return r.value }

// Err returns the failure, or nil on success.
func (r Result[T]) Err() error { return r.err }

// Unwrap returns the conventional (value, error) pair.
func (r Result[T]) Unwrap() (T, error) { return r.value, r.err }

// Map transforms a successful value; failures pass through unchanged.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.err != nil {
		return Fail[U](r.err)
	}
	return Ok(fn(r.value))
}

type nilFailure struct{}

func (nilFailure) Error() string { return "result: Fail called with nil error" }

// ErrNilFailure marks a Fail constructed without a cause.
var ErrNilFailure error = nilFailure{}
