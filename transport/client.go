package transport

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"

	apperrors "github.com/kbukum/cloudbatch/errors"
	"github.com/kbukum/cloudbatch/logger"
	"github.com/kbukum/cloudbatch/resilience"
)

// Client opens one Conn per request against a storage account and its CDN.
// A Client is safe for concurrent use; the Conns it opens are not shared.
type Client struct {
	cfg     Config
	storage *url.URL
	cdn     *url.URL
	tls     *tls.Config
	limiter *resilience.RateLimiter
	log     *logger.Logger
	open    atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	storage, err := url.Parse(cfg.StorageURL)
	if err != nil {
		return nil, apperrors.InvalidArgument("storage_url", err.Error())
	}
	c := &Client{cfg: cfg, storage: storage}

	if cfg.CDNURL != "" {
		if c.cdn, err = url.Parse(cfg.CDNURL); err != nil {
			return nil, apperrors.InvalidArgument("cdn_url", err.Error())
		}
	}
	if c.tls, err = cfg.TLS.Build(); err != nil {
		return nil, apperrors.InvalidArgument("tls", err.Error())
	}
	if cfg.RateLimit.Enabled() {
		c.limiter = resilience.NewRateLimiter(cfg.RateLimit)
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get(logger.ComponentTransport)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// HasCDN reports whether a CDN endpoint is configured.
func (c *Client) HasCDN() bool {
	return c.cdn != nil
}

// URL returns the absolute URL target resolves to on the storage endpoint.
func (c *Client) URL(target string) string {
	return resolve(c.storage, target, nil)
}

// Open validates req and creates a Conn with its own connection for it.
// Nothing is sent until the Conn's Handle is performed.
func (c *Client) Open(req Request) (*Conn, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	base := c.storage
	if req.Endpoint == EndpointCDN {
		if c.cdn == nil {
			return nil, apperrors.InvalidArgument("endpoint", "no cdn_url configured")
		}
		base = c.cdn
	}

	rt, err := c.newRoundTripper()
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	id := uuid.NewString()
	header := make(http.Header, len(c.cfg.Headers)+len(req.Headers)+3)
	for k, v := range c.cfg.Headers {
		header.Set(k, v)
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	header.Set(HeaderUserAgent, c.cfg.UserAgent)
	header.Set(HeaderRequestID, id)
	if c.cfg.Token != "" {
		header.Set(HeaderAuthToken, c.cfg.Token)
	}

	var body []byte
	if req.Kind.SendsBody() {
		body = req.Body
	}

	conn := &Conn{
		id:      id,
		kind:    req.Kind,
		url:     resolve(base, req.Target, req.Query),
		header:  header,
		body:    body,
		limiter: c.limiter,
		open:    &c.open,
		log:     c.log,
		rt:      rt,
		httpClient: &http.Client{
			Transport: rt,
			Timeout:   c.cfg.Timeout,
		},
	}
	conn.handle = &Handle{conn: conn}
	c.open.Add(1)
	return conn, nil
}

// OpenConns returns how many Conns this Client has opened and not yet
// released.
func (c *Client) OpenConns() int64 {
	return c.open.Load()
}

// newRoundTripper builds a transport that never reuses a connection.
// HTTP/2 is only negotiated when the config asks for it.
func (c *Client) newRoundTripper() (*http.Transport, error) {
	rt := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     true,
	}
	if c.tls != nil {
		rt.TLSClientConfig = c.tls.Clone()
	}
	if c.cfg.HTTP2 {
		if err := http2.ConfigureTransport(rt); err != nil {
			return nil, err
		}
	}
	return rt, nil
}
