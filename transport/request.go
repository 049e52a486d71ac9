package transport

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"

	apperrors "github.com/kbukum/cloudbatch/errors"
)

// Header names used by the object-storage API.
const (
	HeaderAuthToken   = "X-Auth-Token"
	HeaderRequestID   = "X-Request-Id"
	HeaderDestination = "Destination"
	HeaderUserAgent   = "User-Agent"
)

// Request describes one step's HTTP request.
type Request struct {
	Kind     Kind
	Endpoint Endpoint
	// Target is the slash-separated path below the endpoint base URL, for
	// example "photos" or "photos/2024/cat.jpg". Segments are escaped.
	Target  string
	Query   url.Values
	Headers http.Header
	// Body is sent only for kinds that carry one.
	Body []byte
}

// validate checks the request shape before any connection is created.
func (r Request) validate() error {
	if !r.Kind.Valid() {
		return apperrors.InvalidArgument("kind", fmt.Sprintf("unknown request kind %d", int(r.Kind)))
	}
	if r.Endpoint != EndpointStorage && r.Endpoint != EndpointCDN {
		return apperrors.InvalidArgument("endpoint", fmt.Sprintf("unknown endpoint %d", int(r.Endpoint)))
	}
	if len(r.Body) > 0 && !r.Kind.SendsBody() {
		return apperrors.InvalidArgument("body", fmt.Sprintf("%s requests do not carry a body", r.Kind))
	}
	if r.Kind == KindCopy && r.Headers.Get(HeaderDestination) == "" {
		return apperrors.InvalidArgument("headers", "copy requires a Destination header")
	}
	for name, values := range r.Headers {
		for _, v := range values {
			if err := validateHeader(name, v); err != nil {
				return apperrors.InvalidArgument("headers", err.Error())
			}
		}
	}
	return nil
}

// validateHeader rejects header names and values that net/http would
// refuse or that could split a request.
func validateHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("invalid header name %q", name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("invalid value for header %q", name)
	}
	return nil
}

// ValidHeaderName reports whether name can be sent as an HTTP header name.
func ValidHeaderName(name string) bool {
	return httpguts.ValidHeaderFieldName(name)
}

// resolve joins the escaped target onto base.
func resolve(base *url.URL, target string, query url.Values) string {
	var b strings.Builder
	b.WriteString(base.Scheme)
	b.WriteString("://")
	b.WriteString(base.Host)
	b.WriteString(strings.TrimSuffix(base.EscapedPath(), "/"))
	if target != "" {
		for _, seg := range strings.Split(strings.TrimPrefix(target, "/"), "/") {
			b.WriteByte('/')
			b.WriteString(url.PathEscape(seg))
		}
	}
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String()
}
