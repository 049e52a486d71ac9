package transport

import (
	"context"
	"encoding/pem"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/kbukum/cloudbatch/errors"
	"github.com/kbukum/cloudbatch/logger"
	"github.com/kbukum/cloudbatch/resilience"
)

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg, WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func perform(t *testing.T, c *Client, req Request) (*Conn, Status) {
	t.Helper()
	conn, err := c.Open(req)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	conn.Handle().Perform(context.Background())
	return conn, conn.CompletionStatus(conn.Handle())
}

func TestKind_Shapes(t *testing.T) {
	tests := []struct {
		kind      Kind
		method    string
		sendsBody bool
		readsBody bool
		name      string
	}{
		{KindRead, http.MethodGet, false, true, "read"},
		{KindWrite, http.MethodPut, true, false, "write"},
		{KindHead, http.MethodHead, false, false, "head"},
		{KindCreate, http.MethodPut, false, false, "create"},
		{KindUpdate, http.MethodPost, false, false, "update"},
		{KindDelete, http.MethodDelete, false, false, "delete"},
		{KindCopy, MethodCopy, false, false, "copy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.Method(); got != tt.method {
				t.Errorf("Method() = %q, want %q", got, tt.method)
			}
			if tt.kind.SendsBody() != tt.sendsBody || tt.kind.ReadsBody() != tt.readsBody {
				t.Errorf("body policy mismatch for %s", tt.name)
			}
			if tt.kind.String() != tt.name {
				t.Errorf("String() = %q", tt.kind.String())
			}
		})
	}
	if Kind(42).Valid() || Kind(42).Method() != "" || Kind(-1).String() != "unknown" {
		t.Error("out-of-range kinds must be invalid")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{StorageURL: "http://localhost:8080/v1/AUTH_test"}, false},
		{"missing storage url", Config{}, true},
		{"relative storage url", Config{StorageURL: "/v1"}, true},
		{"bad cdn url", Config{StorageURL: "http://a", CDNURL: "ftp://b"}, true},
		{"bad header", Config{StorageURL: "http://a", Headers: map[string]string{"Bad Name": "x"}}, true},
		{"half mtls", Config{StorageURL: "http://a", TLS: &TLSConfig{CertFile: "c.pem"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.HasCode(err, apperrors.ErrCodeInvalidArgument) {
				t.Errorf("expected INVALID_ARGUMENT, got %v", err)
			}
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Timeout != defaultTimeout || cfg.UserAgent != defaultUserAgent {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestOpen_RejectsBadRequests(t *testing.T) {
	c := newTestClient(t, Config{StorageURL: "http://127.0.0.1:1/v1/AUTH_test"})

	tests := []struct {
		name string
		req  Request
	}{
		{"unknown kind", Request{Kind: Kind(99), Target: "c"}},
		{"body on head", Request{Kind: KindHead, Target: "c/o", Body: []byte("x")}},
		{"copy without destination", Request{Kind: KindCopy, Target: "c/o"}},
		{"header injection", Request{Kind: KindHead, Target: "c", Headers: http.Header{"X-Meta": {"a\r\nb"}}}},
		{"cdn not configured", Request{Kind: KindHead, Endpoint: EndpointCDN, Target: "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Open(tt.req)
			if !apperrors.HasCode(err, apperrors.ErrCodeInvalidArgument) {
				t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
			}
		})
	}
}

func TestConn_PerformGET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.EscapedPath() != "/v1/AUTH_test/photos/my%20cat.jpg" {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		if r.Header.Get(HeaderAuthToken) != "tok" {
			t.Errorf("missing auth token")
		}
		if r.Header.Get(HeaderRequestID) == "" {
			t.Errorf("missing request id")
		}
		if r.Header.Get("X-Extra") != "1" {
			t.Errorf("missing default header")
		}
		w.Header().Set("Etag", "abc")
		_, _ = io.WriteString(w, "meow")
	}))
	defer srv.Close()

	c := newTestClient(t, Config{
		StorageURL: srv.URL + "/v1/AUTH_test",
		Token:      "tok",
		Headers:    map[string]string{"X-Extra": "1"},
	})
	conn, st := perform(t, c, Request{Kind: KindRead, Target: "photos/my cat.jpg"})

	if !st.OK() || st.Failure() != nil {
		t.Fatalf("expected OK status, got %+v", st)
	}
	if string(st.Body) != "meow" || st.Headers.Get("Etag") != "abc" {
		t.Errorf("unexpected response: %q %v", st.Body, st.Headers)
	}
	if conn.LastErrorMessage() != "" {
		t.Errorf("unexpected error message %q", conn.LastErrorMessage())
	}
}

func TestConn_PerformPUTAndCopy(t *testing.T) {
	var gotBody, gotDest, gotMethod atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody.Store(string(b))
		gotDest.Store(r.Header.Get(HeaderDestination))
		gotMethod.Store(r.Method)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()
	c := newTestClient(t, Config{StorageURL: srv.URL})

	_, st := perform(t, c, Request{Kind: KindWrite, Target: "c/o", Body: []byte("payload")})
	if st.Code != http.StatusCreated || gotBody.Load() != "payload" || gotMethod.Load() != http.MethodPut {
		t.Errorf("PUT not sent as expected: %+v", st)
	}

	h := http.Header{}
	h.Set(HeaderDestination, "/c2/o2")
	_, st = perform(t, c, Request{Kind: KindCopy, Target: "c/o", Headers: h})
	if !st.OK() || gotMethod.Load() != MethodCopy || gotDest.Load() != "/c2/o2" {
		t.Errorf("COPY not sent as expected: %+v", st)
	}
}

func TestConn_HTTPErrorIsNotTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()
	c := newTestClient(t, Config{StorageURL: srv.URL})

	conn, st := perform(t, c, Request{Kind: KindHead, Target: "c/missing"})
	if st.Code != http.StatusNotFound || st.OK() {
		t.Fatalf("expected 404, got %+v", st)
	}
	if !IsNotFound(st.Failure()) {
		t.Errorf("expected not-found failure, got %v", st.Failure())
	}
	if conn.LastErrorMessage() != "" {
		t.Errorf("HTTP status must not set the transport error, got %q", conn.LastErrorMessage())
	}
}

func TestConn_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := newTestClient(t, Config{StorageURL: addr})
	conn, st := perform(t, c, Request{Kind: KindHead, Target: "c"})
	if st.Err == nil || conn.LastErrorMessage() == "" {
		t.Fatalf("expected transport error, got %+v", st)
	}
	if !IsRetryable(st.Err) {
		t.Errorf("connection errors should be retryable")
	}
}

func TestConn_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, Config{StorageURL: srv.URL, Timeout: 50 * time.Millisecond})
	conn, st := perform(t, c, Request{Kind: KindRead, Target: "c/o"})
	if !IsTimeout(st.Err) {
		t.Fatalf("expected timeout, got %v", st.Err)
	}
	if conn.LastErrorMessage() == "" {
		t.Error("expected last error message")
	}
}

func TestConn_HandleLifecycle(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()
	c := newTestClient(t, Config{StorageURL: srv.URL})

	conn, err := c.Open(Request{Kind: KindHead, Target: "c"})
	if err != nil {
		t.Fatal(err)
	}
	h := conn.Handle()
	if h.Started() {
		t.Fatal("new handle must not be started")
	}
	if st := conn.CompletionStatus(h); st.Err == nil {
		t.Error("status before perform must carry an error")
	}

	h.Perform(context.Background())
	h.Perform(context.Background())
	if hits.Load() != 1 {
		t.Errorf("expected one request, got %d", hits.Load())
	}

	other, _ := c.Open(Request{Kind: KindHead, Target: "c"})
	if conn.Owns(other.Handle()) {
		t.Error("conn must not own another conn's handle")
	}
	if st := conn.CompletionStatus(other.Handle()); st.Err == nil {
		t.Error("foreign handle status must carry an error")
	}

	conn.Release(other.Handle())
	if conn.Released() {
		t.Error("release with a foreign handle must be ignored")
	}
	if n := c.OpenConns(); n != 2 {
		t.Errorf("expected 2 open conns, got %d", n)
	}
	conn.Release(h)
	conn.Release(h)
	if !conn.Released() {
		t.Error("expected released")
	}
	if n := c.OpenConns(); n != 1 {
		t.Errorf("expected 1 open conn after a double release, got %d", n)
	}
}

func TestHandle_ConcurrentPerformWaitsForCompletion(t *testing.T) {
	arrived := make(chan struct{})
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-unblock
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c := newTestClient(t, Config{StorageURL: srv.URL})

	conn, err := c.Open(Request{Kind: KindDelete, Target: "c/o"})
	if err != nil {
		t.Fatal(err)
	}
	h := conn.Handle()

	first := make(chan struct{})
	go func() { h.Perform(context.Background()); close(first) }()
	<-arrived

	second := make(chan Status, 1)
	go func() {
		h.Perform(context.Background())
		second <- conn.CompletionStatus(h)
	}()

	select {
	case <-second:
		t.Fatal("second Perform returned before the request completed")
	case <-time.After(30 * time.Millisecond):
	}
	close(unblock)

	select {
	case st := <-second:
		if st.Code != http.StatusNoContent || st.Err != nil {
			t.Errorf("expected 204 after waiting, got %d, %v", st.Code, st.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second Perform never returned")
	}
	<-first
}

func TestConn_EachConnDialsFresh(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !r.Close {
			t.Error("expected Connection: close on every request")
		}
	}))
	srv.Config.ConnState = func(_ net.Conn, s http.ConnState) {
		if s == http.StateNew {
			conns.Add(1)
		}
	}
	srv.Start()
	defer srv.Close()

	c := newTestClient(t, Config{StorageURL: srv.URL})
	for i := 0; i < 3; i++ {
		conn, _ := perform(t, c, Request{Kind: KindHead, Target: "c"})
		conn.Release(conn.Handle())
	}
	if conns.Load() != 3 {
		t.Errorf("expected 3 connections, got %d", conns.Load())
	}
}

func TestConn_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := newTestClient(t, Config{
		StorageURL: srv.URL,
		RateLimit:  resilience.RateLimiterConfig{Rate: 0.001, Burst: 1},
	})
	_, st := perform(t, c, Request{Kind: KindHead, Target: "c"})
	if st.Err != nil {
		t.Fatalf("first request should use the burst token: %v", st.Err)
	}

	conn, err := c.Open(Request{Kind: KindHead, Target: "c"})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	conn.Handle().Perform(ctx)
	if st := conn.CompletionStatus(conn.Handle()); st.Err == nil {
		t.Error("expected the rate limiter wait to fail on context deadline")
	}
}

func TestClient_TLSWithCAFile(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(caFile, pemBytes, 0o600); err != nil {
		t.Fatal(err)
	}

	for _, h2 := range []bool{false, true} {
		c := newTestClient(t, Config{StorageURL: srv.URL, TLS: &TLSConfig{CAFile: caFile}, HTTP2: h2})
		_, st := perform(t, c, Request{Kind: KindHead, Target: "c"})
		if st.Code != http.StatusNoContent {
			t.Errorf("http2=%v: expected 204, got %+v", h2, st)
		}
	}
}

func TestTLSConfig_Build(t *testing.T) {
	var nilCfg *TLSConfig
	if got, err := nilCfg.Build(); got != nil || err != nil {
		t.Errorf("nil config should build to nil, got %v %v", got, err)
	}
	if got, _ := (&TLSConfig{}).Build(); got != nil {
		t.Error("empty config should build to nil")
	}
	got, err := (&TLSConfig{SkipVerify: true}).Build()
	if err != nil || got == nil || !got.InsecureSkipVerify {
		t.Errorf("expected skip-verify config, got %v %v", got, err)
	}
	if _, err := (&TLSConfig{CAFile: "/nonexistent/ca.pem"}).Build(); err == nil {
		t.Error("expected error for missing CA file")
	}
}

func TestResolve(t *testing.T) {
	c := newTestClient(t, Config{StorageURL: "https://s.example.com/v1/AUTH_a/", CDNURL: "https://cdn.example.com/v1/AUTH_a"})
	tests := []struct {
		req  Request
		want string
	}{
		{Request{Kind: KindHead}, "https://s.example.com/v1/AUTH_a"},
		{Request{Kind: KindHead, Target: "c"}, "https://s.example.com/v1/AUTH_a/c"},
		{Request{Kind: KindHead, Target: "c/a b/?x"}, "https://s.example.com/v1/AUTH_a/c/a%20b/%3Fx"},
		{Request{Kind: KindRead, Target: "c", Query: map[string][]string{"format": {"plain"}}}, "https://s.example.com/v1/AUTH_a/c?format=plain"},
		{Request{Kind: KindHead, Endpoint: EndpointCDN, Target: "c"}, "https://cdn.example.com/v1/AUTH_a/c"},
	}
	for _, tt := range tests {
		conn, err := c.Open(tt.req)
		if err != nil {
			t.Fatalf("Open(%+v): %v", tt.req, err)
		}
		if conn.URL() != tt.want {
			t.Errorf("URL() = %q, want %q", conn.URL(), tt.want)
		}
	}
	if got, want := c.URL("c/a b"), "https://s.example.com/v1/AUTH_a/c/a%20b"; got != want {
		t.Errorf("Client.URL() = %q, want %q", got, want)
	}
}

func TestValidHeaderName(t *testing.T) {
	if !ValidHeaderName("X-Object-Meta-Color") || ValidHeaderName("bad name") || ValidHeaderName("") {
		t.Error("unexpected header name validation")
	}
	if !strings.EqualFold(HeaderRequestID, "x-request-id") {
		t.Error("request id header renamed")
	}
}
