package objectstore

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/cloudbatch/operation"
	"github.com/kbukum/cloudbatch/transport"
	"github.com/kbukum/cloudbatch/validation"
)

// EnableCDN publishes a container on the CDN. A zero ttl keeps the
// server's default.
func (c *Client) EnableCDN(container string, ttl time.Duration) (*operation.Operation, error) {
	v := validateContainer(validation.New(), "container", container)
	if err := v.Check(ttl >= 0, "ttl", "must not be negative").Validate(); err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set(headerCDNEnabled, "True")
	if ttl > 0 {
		h.Set(headerTTL, strconv.FormatInt(int64(ttl/time.Second), 10))
	}
	return c.single("enable-cdn "+container, "cdn container "+container, transport.Request{
		Kind:     transport.KindCreate,
		Endpoint: transport.EndpointCDN,
		Target:   container,
		Headers:  h,
	}, nil)
}

// DisableCDN stops publishing a CDN-enabled container.
func (c *Client) DisableCDN(container string) (*operation.Operation, error) {
	if err := checkContainer(container); err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set(headerCDNEnabled, "False")
	return c.single("disable-cdn "+container, "cdn container "+container, transport.Request{
		Kind:     transport.KindUpdate,
		Endpoint: transport.EndpointCDN,
		Target:   container,
		Headers:  h,
	}, nil)
}

// CDNInfo yields a CDNInfo.
func (c *Client) CDNInfo(container string) (*operation.Operation, error) {
	if err := checkContainer(container); err != nil {
		return nil, err
	}
	return c.single("cdn-info "+container, "cdn container "+container, transport.Request{
		Kind:     transport.KindHead,
		Endpoint: transport.EndpointCDN,
		Target:   container,
	}, func(st transport.Status) (any, error) {
		return CDNInfo{
			Container: container,
			Enabled:   strings.EqualFold(st.Headers.Get(headerCDNEnabled), "true"),
			TTL:       time.Duration(parseInt(st.Headers, headerTTL)) * time.Second,
			URI:       st.Headers.Get(headerCDNURI),
			SSLURI:    st.Headers.Get(headerCDNSSLURI),
		}, nil
	})
}
