package operation

import (
	"fmt"
	"sync"

	"github.com/kbukum/cloudbatch/errors"
	"github.com/kbukum/cloudbatch/multiplexer"
	"github.com/kbukum/cloudbatch/transport"
)

// Conn owns the connection behind one step's handle.
// *transport.Conn implements it.
type Conn interface {
	Owns(h multiplexer.Handle) bool
	CompletionStatus(h multiplexer.Handle) transport.Status
	Release(h multiplexer.Handle)
	LastErrorMessage() string
}

// Interpreter turns a step's completion status into a value. A non-nil
// error marks the Operation failed.
type Interpreter func(status transport.Status) (any, error)

// Result is the outcome of the last executed step: a value, and Err set
// once any step has failed.
type Result struct {
	Value any
	Err   error
}

// Failed reports whether the Result records a failure.
func (r Result) Failed() bool { return r.Err != nil }

// FinalCallback turns the last step's Result into the caller-visible value.
// info is the auxiliary value given to SetFinalCallback.
type FinalCallback func(last Result, info any) (any, error)

type step struct {
	conn   Conn
	handle multiplexer.Handle
	interp Interpreter
}

// Operation is an ordered sequence of steps with a lifecycle state and a
// sticky failure.
type Operation struct {
	name string

	mu       sync.Mutex
	state    State
	steps    []step
	next     int
	last     Result
	callback FinalCallback
	info     any
	absorbed bool
}

// New creates an empty Operation in StateNew.
func New(name string) *Operation {
	return &Operation{name: name}
}

// Name returns the label given to New.
func (o *Operation) Name() string { return o.name }

// String implements fmt.Stringer.
func (o *Operation) String() string {
	return fmt.Sprintf("%s[%s]", o.name, o.State())
}

// AppendStep adds a step. conn must own h, h must not have started and
// interp must not be nil.
func (o *Operation) AppendStep(conn Conn, h multiplexer.Handle, interp Interpreter) error {
	switch {
	case conn == nil:
		return errors.InvalidArgument("conn", "must not be nil")
	case h == nil:
		return errors.InvalidArgument("handle", "must not be nil")
	case h.Started():
		return errors.InvalidArgument("handle", "already started")
	case !conn.Owns(h):
		return errors.InvalidArgument("handle", "not owned by conn")
	case interp == nil:
		return errors.InvalidArgument("interpreter", "must not be nil")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireEditable("append step"); err != nil {
		return err
	}
	o.steps = append(o.steps, step{conn: conn, handle: h, interp: interp})
	return nil
}

// Combine appends other's steps after o's own and adopts other's final
// callback and info, replacing any o had. other is left empty and can no
// longer be queued. Both Operations must be in StateNew.
func (o *Operation) Combine(other *Operation) error {
	if other == nil {
		return errors.InvalidArgument("other", "must not be nil")
	}
	if other == o {
		return errors.InvalidArgument("other", "cannot combine an operation with itself")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireEditable("combine"); err != nil {
		return err
	}

	other.mu.Lock()
	defer other.mu.Unlock()
	if err := other.requireEditable("combine into another operation"); err != nil {
		return err
	}

	o.steps = append(o.steps, other.steps...)
	o.callback, o.info = other.callback, other.info
	other.steps, other.callback, other.info = nil, nil, nil
	other.absorbed = true
	return nil
}

// SetFinalCallback sets the function FinalResult invokes. A nil callback is
// rejected and leaves the Operation unchanged.
func (o *Operation) SetFinalCallback(cb FinalCallback, info any) error {
	if cb == nil {
		return errors.InvalidArgument("callback", "must not be nil")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callback, o.info = cb, info
	return nil
}

// StepCount returns the number of steps.
func (o *Operation) StepCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.steps)
}

// StepHandle returns step i's handle, or nil when i is out of range.
func (o *Operation) StepHandle(i int) multiplexer.Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i < 0 || i >= len(o.steps) {
		return nil
	}
	return o.steps[i].handle
}

// NextHandle returns the handle to run at stage, or false when the
// Operation has failed or has no step there.
func (o *Operation) NextHandle(stage int) (multiplexer.Handle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last.Failed() || stage < 0 || stage >= len(o.steps) {
		return nil, false
	}
	return o.steps[stage].handle, true
}

// State returns the lifecycle state.
func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Failed reports whether any executed step failed.
func (o *Operation) Failed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last.Failed()
}

// Err returns the failure recorded by the first failing step, or nil.
func (o *Operation) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last.Err
}

// LastResult returns the Result of the last executed step.
func (o *Operation) LastResult() Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Executed returns how many steps have been interpreted.
func (o *Operation) Executed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.next
}

// Queueable returns the error Queue would return, without changing state.
func (o *Operation) Queueable() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.requireEditable("queue")
}

// Queue moves the Operation from StateNew to StateQueued.
func (o *Operation) Queue() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireEditable("queue"); err != nil {
		return err
	}
	o.state = StateQueued
	return nil
}

// Start moves the Operation to StateStarted. Starting an already started
// Operation is a no-op.
func (o *Operation) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateQueued:
		o.state = StateStarted
		return nil
	case StateStarted:
		return nil
	default:
		return errors.InvalidState("start", o.state)
	}
}

// ExecuteStepResult interprets step i after its handle has completed and
// releases the step's connection. Steps must be executed in order, on a
// started Operation that has not failed.
//
// A non-empty transport error message, or an interpreter error, marks the
// Operation failed. The failure is recorded, not returned: the returned
// error only reports a misuse of the call.
func (o *Operation) ExecuteStepResult(i int) error {
	o.mu.Lock()
	switch {
	case o.state != StateStarted:
		o.mu.Unlock()
		return errors.InvalidState("execute step", o.state)
	case o.last.Failed():
		o.mu.Unlock()
		return errors.InvalidState("execute step after failure", o.state)
	case i < 0 || i >= len(o.steps):
		n := len(o.steps)
		o.mu.Unlock()
		return errors.OutOfRange(i, n)
	case i != o.next:
		next := o.next
		o.mu.Unlock()
		return errors.InvalidState(fmt.Sprintf("execute step %d before step %d", i, next), o.state)
	}
	s := o.steps[i]
	o.mu.Unlock()

	value, err := interpret(s, s.conn.CompletionStatus(s.handle))
	msg := s.conn.LastErrorMessage()
	s.conn.Release(s.handle)

	res := Result{Value: value}
	switch {
	case msg != "":
		res.Err = errors.TransportFailure(i, msg).WithCause(err)
	case err != nil:
		res.Err = err
	}

	o.mu.Lock()
	o.last = res
	o.next = i + 1
	o.mu.Unlock()
	return nil
}

func interpret(s step, status transport.Status) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Internal(fmt.Errorf("interpreter panic: %v", r))
		}
	}()
	return s.interp(status)
}

// Finish moves a queued or started Operation to StateFinished.
func (o *Operation) Finish() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateQueued && o.state != StateStarted {
		return errors.InvalidState("finish", o.state)
	}
	o.state = StateFinished
	return nil
}

// FinalResult invokes the final callback with the last Result. It may be
// called any number of times once the Operation is finished; each call
// invokes the callback again. A callback error or panic is returned as a
// CALLBACK_FAILURE wrapping the cause.
func (o *Operation) FinalResult() (any, error) {
	o.mu.Lock()
	state, cb, info, last := o.state, o.callback, o.info, o.last
	o.mu.Unlock()

	if state != StateFinished {
		return nil, errors.InvalidState("final result", state)
	}
	if cb == nil {
		return nil, errors.NoCallback()
	}
	return callFinal(cb, last, info)
}

func callFinal(cb FinalCallback, last Result, info any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, errors.CallbackFailure(fmt.Errorf("panic: %v", r))
		}
	}()
	value, err = cb(last, info)
	if err != nil {
		return nil, errors.CallbackFailure(err)
	}
	return value, nil
}

// Discard releases the connection of every step of an Operation that will
// never be queued. The Operation is left empty and, like a combined-away
// one, can no longer be queued or edited. Discard is a no-op once the
// Operation has left StateNew.
func (o *Operation) Discard() {
	o.mu.Lock()
	if o.state != StateNew || o.absorbed {
		o.mu.Unlock()
		return
	}
	steps := o.steps
	o.steps, o.callback, o.info = nil, nil, nil
	o.absorbed = true
	o.mu.Unlock()

	for _, s := range steps {
		s.conn.Release(s.handle)
	}
}

// requireEditable reports whether steps and callbacks may still change.
// Callers hold mu.
func (o *Operation) requireEditable(op string) error {
	if o.absorbed {
		return errors.InvalidState(op+" on combined-away or discarded operation", o.state)
	}
	if o.state != StateNew {
		return errors.InvalidState(op, o.state)
	}
	return nil
}
