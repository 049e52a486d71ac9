package batch

import (
	"context"

	"github.com/kbukum/cloudbatch/operation"
)

// ExecuteKeyed runs a keyed set of Operations as one batch and returns them
// under the same keys.
func ExecuteKeyed[K comparable](ctx context.Context, ops map[K]*operation.Operation, opts ...Option) (map[K]*operation.Operation, error) {
	keys := make([]K, 0, len(ops))
	list := make([]*operation.Operation, 0, len(ops))
	for k, op := range ops {
		keys = append(keys, k)
		list = append(list, op)
	}

	e, err := New(list, opts...)
	if err != nil {
		return nil, err
	}
	done, err := e.Execute(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[K]*operation.Operation, len(done))
	for i, op := range done {
		out[keys[i]] = op
	}
	return out, nil
}
