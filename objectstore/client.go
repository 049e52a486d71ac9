package objectstore

import (
	"context"
	"fmt"

	"github.com/kbukum/cloudbatch/batch"
	apperrors "github.com/kbukum/cloudbatch/errors"
	"github.com/kbukum/cloudbatch/logger"
	"github.com/kbukum/cloudbatch/operation"
	"github.com/kbukum/cloudbatch/transport"
)

// Client builds object-store operations over one transport client.
type Client struct {
	tc        *transport.Client
	batchOpts []batch.Option
	log       *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithBatchOptions sets the options every Run passes to the executor.
func WithBatchOptions(opts ...batch.Option) Option {
	return func(c *Client) { c.batchOpts = append(c.batchOpts, opts...) }
}

// New creates a Client.
func New(tc *transport.Client, opts ...Option) (*Client, error) {
	if tc == nil {
		return nil, apperrors.InvalidArgument("transport", "transport client is required")
	}
	c := &Client{tc: tc}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get(logger.ComponentObjectStore)
	}
	return c, nil
}

// Run executes ops as one batch.
func (c *Client) Run(ctx context.Context, ops ...*operation.Operation) ([]*operation.Operation, error) {
	exec, err := batch.New(ops, c.batchOpts...)
	if err != nil {
		return nil, err
	}
	c.log.Debug("running object store batch", logger.Fields(
		"batch_id", exec.ID(),
		"operations", len(ops),
		"stages", exec.StageCount(),
	))
	return exec.Execute(ctx)
}

// Value returns the typed final result of an executed operation built by
// this package. A failed step's error is returned as is, without the
// CALLBACK_FAILURE wrapper FinalResult adds.
func Value[T any](op *operation.Operation) (T, error) {
	var zero T
	v, err := op.FinalResult()
	if err != nil {
		if ae, ok := apperrors.AsAppError(err); ok && ae.Code == apperrors.ErrCodeCallbackFailure && ae.Cause != nil {
			return zero, ae.Cause
		}
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, apperrors.Internal(fmt.Errorf("%s: result is %T, not %T", op.Name(), v, zero))
	}
	return t, nil
}

// decoder turns a successful status into the step's value.
type decoder func(transport.Status) (any, error)

// interpreter checks the status and decodes it. A non-2xx status becomes
// the step's error, translated for resource.
func interpreter(resource string, decode decoder) operation.Interpreter {
	return func(st transport.Status) (any, error) {
		if !st.OK() {
			return st.Code, transport.ToAppError(st.Failure(), resource)
		}
		if decode == nil {
			return nil, nil
		}
		return decode(st)
	}
}

// finalValue is the final callback of every operation: the last step's
// value, or its error.
func finalValue(last operation.Result, _ any) (any, error) {
	if last.Err != nil {
		return nil, last.Err
	}
	return last.Value, nil
}

// single builds a one-step operation.
func (c *Client) single(name, resource string, req transport.Request, decode decoder) (*operation.Operation, error) {
	conn, err := c.tc.Open(req)
	if err != nil {
		return nil, err
	}
	op := operation.New(name)
	if err := op.AppendStep(conn, conn.Handle(), interpreter(resource, decode)); err != nil {
		conn.Release(conn.Handle())
		return nil, err
	}
	if err := op.SetFinalCallback(finalValue, resource); err != nil {
		op.Discard()
		return nil, err
	}
	return op, nil
}

// Discard releases the connections held by operations that were built but
// will not be run. Operations already handed to Run are left alone.
func Discard(ops ...*operation.Operation) {
	for _, op := range ops {
		if op != nil {
			op.Discard()
		}
	}
}

func objectTarget(container, name string) string {
	return container + "/" + name
}
