package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/cloudbatch/logger"
	"github.com/kbukum/cloudbatch/multiplexer"
	"github.com/kbukum/cloudbatch/resilience"
)

// Status is the completion status of one request.
type Status struct {
	// Code is the HTTP status code, 0 when no response arrived.
	Code    int
	Headers http.Header
	// Body holds the response body for kinds that read it.
	Body []byte
	// Err is set when the request failed below HTTP.
	Err error
}

// OK reports a 2xx response.
func (s Status) OK() bool {
	return s.Err == nil && s.Code >= 200 && s.Code < 300
}

// Failure returns Err, or the classified status error for a non-2xx
// response, or nil.
func (s Status) Failure() error {
	if s.Err != nil {
		return s.Err
	}
	if e := ClassifyStatusCode(s.Code, s.Body); e != nil {
		return e
	}
	return nil
}

var (
	errNotPerformed = NewValidationError("handle has not completed")
	errForeign      = NewValidationError("handle does not belong to this connection")
)

// Handle is the unit of work a multiplexer drives for a Conn.
type Handle struct {
	conn    *Conn
	once    sync.Once
	started atomic.Bool
}

// Perform sends the request and records its status on the Conn. Only the
// first call sends; concurrent calls block until the status is recorded.
func (h *Handle) Perform(ctx context.Context) {
	h.once.Do(func() {
		h.started.Store(true)
		h.conn.perform(ctx)
	})
}

// Started reports whether Perform has been called.
func (h *Handle) Started() bool {
	return h.started.Load()
}

// ID returns the request id sent as X-Request-Id.
func (h *Handle) ID() string {
	return h.conn.id
}

// Conn owns the connection behind exactly one request.
type Conn struct {
	id         string
	kind       Kind
	url        string
	header     http.Header
	body       []byte
	limiter    *resilience.RateLimiter
	open       *atomic.Int64
	log        *logger.Logger
	rt         *http.Transport
	httpClient *http.Client
	handle     *Handle

	mu        sync.Mutex
	status    Status
	completed bool
	lastErr   string
	released  bool
}

// Handle returns the Conn's unit of work.
func (c *Conn) Handle() multiplexer.Handle {
	return c.handle
}

// Owns reports whether h is this Conn's handle.
func (c *Conn) Owns(h multiplexer.Handle) bool {
	th, ok := h.(*Handle)
	return ok && th == c.handle
}

// Kind returns the request shape.
func (c *Conn) Kind() Kind {
	return c.kind
}

// URL returns the resolved request URL.
func (c *Conn) URL() string {
	return c.url
}

// CompletionStatus returns the recorded status for h. A handle that is
// foreign or has not completed yields a Status with Err set.
func (c *Conn) CompletionStatus(h multiplexer.Handle) Status {
	if !c.Owns(h) {
		return Status{Err: errForeign}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.completed {
		return Status{Err: errNotPerformed}
	}
	return c.status
}

// LastErrorMessage returns the transport-level error of the last request,
// or "" when it reached the server and got a response.
func (c *Conn) LastErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Release tears down the connection behind h. It is safe to call more than
// once; calls with a foreign handle are ignored.
func (c *Conn) Release(h multiplexer.Handle) {
	if !c.Owns(h) {
		return
	}
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	c.mu.Unlock()
	if c.open != nil {
		c.open.Add(-1)
	}
	c.rt.CloseIdleConnections()
}

// Released reports whether Release has been called.
func (c *Conn) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

func (c *Conn) perform(ctx context.Context) {
	start := time.Now()
	st := c.do(ctx)

	c.mu.Lock()
	c.status = st
	c.completed = true
	if st.Err != nil {
		c.lastErr = st.Err.Error()
	}
	c.mu.Unlock()

	fields := logger.Fields(
		logger.FieldMethod, c.kind.Method(),
		logger.FieldTarget, c.url,
		logger.FieldRequestID, c.id,
		logger.FieldStatus, st.Code,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)
	if st.Err != nil {
		c.log.Debug("request failed", logger.MergeWithError(fields, st.Err))
		return
	}
	c.log.Debug("request completed", fields)
}

func (c *Conn) do(ctx context.Context) Status {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Status{Err: NewTimeoutError(err)}
		}
	}

	var body io.Reader
	if c.kind.SendsBody() {
		body = bytes.NewReader(c.body)
	}
	req, err := http.NewRequestWithContext(ctx, c.kind.Method(), c.url, body)
	if err != nil {
		return Status{Err: NewValidationError(err.Error())}
	}
	req.Header = c.header.Clone()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{Err: classifyDoError(ctx, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	st := Status{Code: resp.StatusCode, Headers: resp.Header}
	if c.kind.ReadsBody() || resp.StatusCode >= 300 {
		st.Body, err = io.ReadAll(resp.Body)
	} else {
		_, err = io.Copy(io.Discard, resp.Body)
	}
	if err != nil {
		st.Err = NewConnectionError(err)
	}
	return st
}
