package swifttest

import (
	"crypto/md5" //nolint:gosec // ETag format, not security
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	defaultAccount = "AUTH_test"
	defaultToken   = "swifttest-token"
)

// Fault overrides the response to one request.
type Fault struct {
	// Status is written with an empty body when non-zero.
	Status int
	// Drop closes the connection without a response.
	Drop bool
}

// Recorded is one request the server received.
type Recorded struct {
	Method string
	Path   string
}

type object struct {
	data        []byte
	contentType string
	etag        string
	modified    time.Time
	meta        http.Header
}

type container struct {
	meta    http.Header
	objects map[string]*object
}

type cdnEntry struct {
	enabled bool
	ttl     int
}

// Server is the fake object store.
type Server struct {
	account string
	token   string
	ts      *httptest.Server

	mu         sync.Mutex
	containers map[string]*container
	cdn        map[string]*cdnEntry
	fault      func(*http.Request) *Fault
	requests   []Recorded
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires X-Auth-Token to equal token. An empty token disables
// the check.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithAccount sets the account path segment.
func WithAccount(account string) Option {
	return func(s *Server) { s.account = account }
}

// New starts a Server that is closed when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		account:    defaultAccount,
		token:      defaultToken,
		containers: make(map[string]*container),
		cdn:        make(map[string]*cdnEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ts = httptest.NewServer(s.routes())
	t.Cleanup(s.ts.Close)
	return s
}

// StorageURL is the storage account base URL.
func (s *Server) StorageURL() string { return s.ts.URL + "/v1/" + s.account }

// CDNURL is the CDN management base URL.
func (s *Server) CDNURL() string { return s.ts.URL + "/cdn/" + s.account }

// Token is the token the server accepts.
func (s *Server) Token() string { return s.token }

// Close stops the server early.
func (s *Server) Close() { s.ts.Close() }

// InjectFault installs fn, consulted before every request. Returning nil
// serves the request normally. Passing nil removes the hook.
func (s *Server) InjectFault(fn func(*http.Request) *Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

// Requests returns every request received so far, in arrival order.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// CountRequests returns how many requests used method.
func (s *Server) CountRequests(method string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

// CreateContainer creates an empty container directly.
func (s *Server) CreateContainer(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[name]; !ok {
		s.containers[name] = &container{meta: http.Header{}, objects: map[string]*object{}}
	}
}

// PutObject stores an object directly, creating its container if needed.
func (s *Server) PutObject(containerName, name string, data []byte, contentType string) {
	s.CreateContainer(containerName)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[containerName].objects[name] = newObject(data, contentType, http.Header{})
}

// HasContainer reports whether the container exists.
func (s *Server) HasContainer(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.containers[name]
	return ok
}

// Object returns an object's data and content type.
func (s *Server) Object(containerName, name string) (data []byte, contentType string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, found := s.containers[containerName]
	if !found {
		return nil, "", false
	}
	o, found := c.objects[name]
	if !found {
		return nil, "", false
	}
	return append([]byte(nil), o.data...), o.contentType, true
}

// ObjectMeta returns an object's metadata headers.
func (s *Server) ObjectMeta(containerName, name string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.containers[containerName]; ok {
		if o, ok := c.objects[name]; ok {
			return o.meta.Clone()
		}
	}
	return nil
}

func newObject(data []byte, contentType string, meta http.Header) *object {
	sum := md5.Sum(data) //nolint:gosec // ETag format, not security
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &object{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		etag:        hex.EncodeToString(sum[:]),
		modified:    time.Now().UTC(),
		meta:        meta,
	}
}

func (c *container) names(prefix, marker string, limit int) []string {
	out := make([]string, 0, len(c.objects))
	for name := range c.objects {
		if strings.HasPrefix(name, prefix) && name > marker {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (c *container) bytesUsed() int {
	n := 0
	for _, o := range c.objects {
		n += len(o.data)
	}
	return n
}

// metaHeaders picks the headers starting with prefix.
func metaHeaders(h http.Header, prefix string) http.Header {
	out := http.Header{}
	for k, v := range h {
		if strings.HasPrefix(k, prefix) {
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}
