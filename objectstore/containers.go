package objectstore

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/kbukum/cloudbatch/operation"
	"github.com/kbukum/cloudbatch/transport"
	"github.com/kbukum/cloudbatch/validation"
)

// CreateContainer creates a container, or updates the metadata of an
// existing one.
func (c *Client) CreateContainer(name string, meta Metadata) (*operation.Operation, error) {
	v := validateContainer(validation.New(), "container", name)
	if err := validateMetadata(v, meta, containerMetaPrefix).Validate(); err != nil {
		return nil, err
	}
	h := http.Header{}
	meta.apply(h, containerMetaPrefix)
	return c.single("create-container "+name, "container "+name, transport.Request{
		Kind:    transport.KindCreate,
		Target:  name,
		Headers: h,
	}, nil)
}

// DeleteContainer deletes an empty container.
func (c *Client) DeleteContainer(name string) (*operation.Operation, error) {
	if err := checkContainer(name); err != nil {
		return nil, err
	}
	return c.single("delete-container "+name, "container "+name, transport.Request{
		Kind:   transport.KindDelete,
		Target: name,
	}, nil)
}

// HeadContainer yields a ContainerInfo.
func (c *Client) HeadContainer(name string) (*operation.Operation, error) {
	if err := checkContainer(name); err != nil {
		return nil, err
	}
	return c.single("head-container "+name, "container "+name, transport.Request{
		Kind:   transport.KindHead,
		Target: name,
	}, func(st transport.Status) (any, error) {
		return ContainerInfo{
			Name:        name,
			ObjectCount: parseInt(st.Headers, headerObjectCount),
			BytesUsed:   parseInt(st.Headers, headerBytesUsed),
			Metadata:    parseMetadata(st.Headers, containerMetaPrefix),
		}, nil
	})
}

// ListObjects yields the sorted object names in a container as []string.
func (c *Client) ListObjects(container string, opts ListOptions) (*operation.Operation, error) {
	v := validateContainer(validation.New(), "container", container)
	if err := v.Check(opts.Limit >= 0, "limit", "must not be negative").Validate(); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("format", "plain")
	if opts.Prefix != "" {
		q.Set("prefix", opts.Prefix)
	}
	if opts.Marker != "" {
		q.Set("marker", opts.Marker)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	return c.single("list "+container, "container "+container, transport.Request{
		Kind:   transport.KindRead,
		Target: container,
		Query:  q,
	}, func(st transport.Status) (any, error) {
		return parseNames(st.Body), nil
	})
}
