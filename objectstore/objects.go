package objectstore

import (
	"crypto/md5" //nolint:gosec // Swift ETag, not security
	"encoding/hex"
	"net/http"
	"net/url"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kbukum/cloudbatch/operation"
	"github.com/kbukum/cloudbatch/transport"
	"github.com/kbukum/cloudbatch/validation"
)

// PutObject uploads data and yields the stored ObjectInfo. The server
// rejects the upload if the content does not match its MD5 ETag.
func (c *Client) PutObject(container, name string, data []byte, opts PutOptions) (*operation.Operation, error) {
	v := validateContainer(validation.New(), "container", container)
	v = validateObject(v, "object", name)
	if err := validateMetadata(v, opts.Metadata, objectMetaPrefix).Validate(); err != nil {
		return nil, err
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	sum := md5.Sum(data) //nolint:gosec // Swift ETag, not security
	etag := hex.EncodeToString(sum[:])

	h := http.Header{}
	h.Set("Content-Type", contentType)
	h.Set("Etag", etag)
	opts.Metadata.apply(h, objectMetaPrefix)

	return c.single("put "+objectTarget(container, name), "object "+objectTarget(container, name), transport.Request{
		Kind:    transport.KindWrite,
		Target:  objectTarget(container, name),
		Headers: h,
		Body:    data,
	}, func(st transport.Status) (any, error) {
		info := ObjectInfo{
			Container:   container,
			Name:        name,
			ContentType: contentType,
			Size:        int64(len(data)),
			ETag:        etag,
			Metadata:    Metadata{},
		}
		for k, val := range opts.Metadata {
			info.Metadata[k] = val
		}
		return info, nil
	})
}

// GetObject downloads an object and yields an Object.
func (c *Client) GetObject(container, name string) (*operation.Operation, error) {
	if err := checkObject(container, name); err != nil {
		return nil, err
	}
	return c.single("get "+objectTarget(container, name), "object "+objectTarget(container, name), transport.Request{
		Kind:   transport.KindRead,
		Target: objectTarget(container, name),
	}, func(st transport.Status) (any, error) {
		info := parseObjectInfo(container, name, st.Headers)
		info.Size = int64(len(st.Body))
		return Object{ObjectInfo: info, Data: st.Body}, nil
	})
}

// HeadObject yields an ObjectInfo.
func (c *Client) HeadObject(container, name string) (*operation.Operation, error) {
	if err := checkObject(container, name); err != nil {
		return nil, err
	}
	return c.single("head "+objectTarget(container, name), "object "+objectTarget(container, name), transport.Request{
		Kind:   transport.KindHead,
		Target: objectTarget(container, name),
	}, func(st transport.Status) (any, error) {
		return parseObjectInfo(container, name, st.Headers), nil
	})
}

// DeleteObject deletes an object.
func (c *Client) DeleteObject(container, name string) (*operation.Operation, error) {
	if err := checkObject(container, name); err != nil {
		return nil, err
	}
	return c.single("delete "+objectTarget(container, name), "object "+objectTarget(container, name), transport.Request{
		Kind:   transport.KindDelete,
		Target: objectTarget(container, name),
	}, nil)
}

// UpdateMetadata replaces an object's metadata.
func (c *Client) UpdateMetadata(container, name string, meta Metadata) (*operation.Operation, error) {
	v := validateContainer(validation.New(), "container", container)
	v = validateObject(v, "object", name)
	if err := validateMetadata(v, meta, objectMetaPrefix).Validate(); err != nil {
		return nil, err
	}
	h := http.Header{}
	meta.apply(h, objectMetaPrefix)
	return c.single("update-metadata "+objectTarget(container, name), "object "+objectTarget(container, name), transport.Request{
		Kind:    transport.KindUpdate,
		Target:  objectTarget(container, name),
		Headers: h,
	}, nil)
}

// CopyObject copies an object server side. The copy keeps the source
// metadata.
func (c *Client) CopyObject(srcContainer, srcName, dstContainer, dstName string) (*operation.Operation, error) {
	v := validateContainer(validation.New(), "container", srcContainer)
	v = validateObject(v, "object", srcName)
	v = validateContainer(v, "destination_container", dstContainer)
	if err := validateObject(v, "destination_object", dstName).Validate(); err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set(transport.HeaderDestination, "/"+url.PathEscape(dstContainer)+"/"+escapeObject(dstName))
	src := objectTarget(srcContainer, srcName)
	return c.single("copy "+src, "object "+src, transport.Request{
		Kind:    transport.KindCopy,
		Target:  src,
		Headers: h,
	}, nil)
}

// MoveObject copies an object and then deletes the source. The delete is
// never sent if the copy fails.
func (c *Client) MoveObject(srcContainer, srcName, dstContainer, dstName string) (*operation.Operation, error) {
	cp, err := c.CopyObject(srcContainer, srcName, dstContainer, dstName)
	if err != nil {
		return nil, err
	}
	del, err := c.DeleteObject(srcContainer, srcName)
	if err != nil {
		cp.Discard()
		return nil, err
	}
	if err := cp.Combine(del); err != nil {
		Discard(cp, del)
		return nil, err
	}
	return cp, nil
}

func escapeObject(name string) string {
	u := url.URL{Path: name}
	return u.EscapedPath()
}
