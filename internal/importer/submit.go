package importer

import (
	"context"
)

// SubmitResult describes a sequential submission. FailedAt is -1 when every
// item succeeded; otherwise it is the index of the item that failed and Err is
// that item's error. Items after FailedAt were never attempted and items
// before it are not rolled back.
type SubmitResult[R any] struct {
	Succeeded []R
	FailedAt  int
	Err       error
}

// OK reports whether every item was submitted.
func (r SubmitResult[R]) OK() bool {
	return r.FailedAt < 0
}

// SubmitSequential submits items one at a time, in order, waiting for each
// call to return before starting the next. It stops at the first error.
func SubmitSequential[T, R any](ctx context.Context, items []T, submitOne func(ctx context.Context, index int, item T) (R, error)) SubmitResult[R] {
	result := SubmitResult[R]{
		Succeeded: make([]R, 0, len(items)),
		FailedAt:  -1,
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			result.FailedAt = i
			result.Err = err
			return result
		}

		out, err := submitOne(ctx, i, item)
		if err != nil {
			result.FailedAt = i
			result.Err = err
			return result
		}
		result.Succeeded = append(result.Succeeded, out)
	}

	return result
}
