package fetcher

// Result carries either a value or the error that prevented producing it.
// Best-effort reads return a Result so that callers choose the fallback
// explicitly with Or instead of the error vanishing inside the fetcher.
type Result[T any] struct {
	Value T
	Err   error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Or returns the value, or fallback if the result holds an error.
func (r Result[T]) Or(fallback T) T {
	if r.Err != nil {
		return fallback
	}
	return r.Value
}
