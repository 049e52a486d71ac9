package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/cloudbatch/errors"
	"github.com/kbukum/cloudbatch/logger"
	"github.com/kbukum/cloudbatch/multiplexer"
	"github.com/kbukum/cloudbatch/observability"
	"github.com/kbukum/cloudbatch/operation"
)

// Executor runs a fixed, ordered set of Operations once.
type Executor struct {
	id         string
	ops        []*operation.Operation
	stageCount int

	cfg     Config
	mux     *multiplexer.Multiplexer
	log     *logger.Logger
	metrics *observability.BatchMetrics

	mu       sync.Mutex
	executed bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithMultiplexer runs stages on m instead of multiplexer.Default().
func WithMultiplexer(m *multiplexer.Multiplexer) Option {
	return func(e *Executor) { e.mux = m }
}

// WithLogger sets the executor's logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithMetrics records executions, stages and outcomes on m.
func WithMetrics(m *observability.BatchMetrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithConfig sets the execution config.
func WithConfig(cfg Config) Option {
	return func(e *Executor) { e.cfg = cfg }
}

// New queues every Operation and computes the stage count. Nothing is
// queued unless every Operation is valid: non-nil, listed once, and NEW.
func New(ops []*operation.Operation, opts ...Option) (*Executor, error) {
	seen := make(map[*operation.Operation]struct{}, len(ops))
	for i, op := range ops {
		field := fmt.Sprintf("operations[%d]", i)
		if op == nil {
			return nil, errors.InvalidArgument(field, "must not be nil")
		}
		if _, dup := seen[op]; dup {
			return nil, errors.InvalidArgument(field, "operation listed twice")
		}
		seen[op] = struct{}{}
		if err := op.Queueable(); err != nil {
			return nil, err
		}
	}

	e := &Executor{
		id:  uuid.NewString(),
		ops: append([]*operation.Operation(nil), ops...),
	}
	for _, op := range e.ops {
		if err := op.Queue(); err != nil {
			return nil, err
		}
		e.stageCount = max(e.stageCount, op.StepCount())
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get(logger.ComponentBatch)
	}
	return e, nil
}

// ID returns the batch id used in logs and spans.
func (e *Executor) ID() string { return e.id }

// StageCount returns the largest step count over all Operations.
func (e *Executor) StageCount() int { return e.stageCount }

// Operations returns the Operations in their original order.
func (e *Executor) Operations() []*operation.Operation { return e.ops }

// Execute runs every stage and finishes every Operation. It returns the
// Operations in their original order. Per-operation failures are recorded
// on the Operations, not returned; an error here means a contract was
// broken. An Executor runs once.
func (e *Executor) Execute(ctx context.Context) ([]*operation.Operation, error) {
	e.mu.Lock()
	if e.executed {
		e.mu.Unlock()
		return nil, errors.New(errors.ErrCodeInvalidState, "batch already executed", 0)
	}
	e.executed = true
	e.mu.Unlock()

	if len(e.ops) == 0 {
		return e.ops, nil
	}

	mux := e.mux
	if mux == nil {
		mux = multiplexer.Default()
	}

	ctx = logger.ContextWithBatchID(ctx, e.id)
	ctx, span := observability.StartSpan(ctx, observability.SpanBatchExecute, trace.WithAttributes(
		observability.AttrBatchID.String(e.id),
		observability.AttrBatchOperations.Int(len(e.ops)),
		observability.AttrBatchStages.Int(e.stageCount),
	))
	defer span.End()
	log := e.log.WithContext(ctx)
	if tid := observability.TraceID(ctx); tid != "" {
		log = log.WithFields(logger.Fields(logger.FieldTraceID, tid))
	}

	start := time.Now()
	for stage := 0; stage < e.stageCount; stage++ {
		if err := e.runStage(ctx, mux, stage, log); err != nil {
			observability.SetSpanError(span, err)
			return nil, err
		}
	}

	failed := 0
	for _, op := range e.ops {
		if err := op.Finish(); err != nil {
			observability.SetSpanError(span, err)
			return nil, err
		}
		if op.Failed() {
			failed++
		}
		if e.metrics != nil {
			e.metrics.RecordOperation(ctx, op.Failed())
		}
	}
	if e.metrics != nil {
		e.metrics.RecordExecution(ctx)
	}
	span.SetAttributes(observability.AttrBatchFailed.Int(failed))

	log.Info("batch executed", logger.Fields(
		"operations", len(e.ops),
		"stages", e.stageCount,
		"failed", failed,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return e.ops, nil
}

type registration struct {
	op     *operation.Operation
	handle multiplexer.Handle
}

// runStage registers, drains and interprets one stage.
func (e *Executor) runStage(ctx context.Context, mux *multiplexer.Multiplexer, stage int, log *logger.Logger) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanBatchStage, trace.WithAttributes(
		observability.AttrStage.Int(stage),
	))
	defer span.End()
	start := time.Now()

	active := make([]registration, 0, len(e.ops))
	for _, op := range e.ops {
		h, ok := op.NextHandle(stage)
		if !ok {
			continue
		}
		if err := op.Start(); err != nil {
			release(mux, active)
			return err
		}
		if err := mux.Register(h); err != nil {
			release(mux, active)
			return err
		}
		active = append(active, registration{op: op, handle: h})
	}
	span.SetAttributes(observability.AttrStageHandles.Int(len(active)))
	if len(active) == 0 {
		return nil
	}

	handles := make([]multiplexer.Handle, len(active))
	for i, r := range active {
		handles[i] = r.handle
	}
	mux.Drain(ctx, multiplexer.Only(handles...), multiplexer.Limit(e.cfg.MaxParallel))

	failures := 0
	for i, r := range active {
		if err := mux.Deregister(r.handle); err != nil {
			release(mux, active[i+1:])
			return err
		}
		if err := r.op.ExecuteStepResult(stage); err != nil {
			release(mux, active[i+1:])
			return err
		}
		if r.op.Failed() {
			failures++
			log.Debug("operation failed", logger.Fields(
				logger.FieldOperation, r.op.Name(),
				logger.FieldStage, stage,
				logger.FieldError, r.op.Err().Error(),
			))
		}
	}

	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordStage(ctx, stage, len(active), elapsed)
	}
	log.Debug("stage complete", logger.Fields(
		logger.FieldStage, stage,
		"handles", len(active),
		"failures", failures,
		logger.FieldDuration, elapsed.Milliseconds(),
	))
	return nil
}

// release deregisters handles left behind when a stage aborts.
func release(mux *multiplexer.Multiplexer, regs []registration) {
	for _, r := range regs {
		_ = mux.Deregister(r.handle)
	}
}

// Run builds an Executor over ops and executes it.
func Run(ctx context.Context, ops ...*operation.Operation) ([]*operation.Operation, error) {
	e, err := New(ops)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx)
}
