package objectstore

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Metadata is user metadata on a container or object. Keys are sent as
// header suffixes and come back lower-cased.
type Metadata map[string]string

// ContainerInfo is the result of HeadContainer.
type ContainerInfo struct {
	Name        string
	ObjectCount int64
	BytesUsed   int64
	Metadata    Metadata
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Container    string
	Name         string
	ContentType  string
	Size         int64
	ETag         string
	LastModified time.Time
	Metadata     Metadata
}

// Object is an object's info plus its content.
type Object struct {
	ObjectInfo
	Data []byte
}

// CDNInfo is the CDN state of a container.
type CDNInfo struct {
	Container string
	Enabled   bool
	TTL       time.Duration
	URI       string
	SSLURI    string
}

// ListOptions narrows ListObjects.
type ListOptions struct {
	Prefix string
	// Marker returns only names sorting after it.
	Marker string
	// Limit caps the number of names; 0 leaves it to the server.
	Limit int
}

// PutOptions controls PutObject.
type PutOptions struct {
	// ContentType is detected from the data when empty.
	ContentType string
	Metadata    Metadata
}

const (
	containerMetaPrefix = "X-Container-Meta-"
	objectMetaPrefix    = "X-Object-Meta-"

	headerObjectCount = "X-Container-Object-Count"
	headerBytesUsed   = "X-Container-Bytes-Used"
	headerCDNEnabled  = "X-Cdn-Enabled"
	headerTTL         = "X-Ttl"
	headerCDNURI      = "X-Cdn-Uri"
	headerCDNSSLURI   = "X-Cdn-Ssl-Uri"
)

func (m Metadata) apply(h http.Header, prefix string) {
	for k, v := range m {
		h.Set(prefix+k, v)
	}
}

func parseMetadata(h http.Header, prefix string) Metadata {
	m := Metadata{}
	for k, v := range h {
		if len(v) == 0 || len(k) <= len(prefix) || !strings.EqualFold(k[:len(prefix)], prefix) {
			continue
		}
		m[strings.ToLower(k[len(prefix):])] = v[0]
	}
	return m
}

func parseInt(h http.Header, key string) int64 {
	n, _ := strconv.ParseInt(h.Get(key), 10, 64)
	return n
}

func parseObjectInfo(container, name string, h http.Header) ObjectInfo {
	info := ObjectInfo{
		Container:   container,
		Name:        name,
		ContentType: h.Get("Content-Type"),
		Size:        parseInt(h, "Content-Length"),
		ETag:        strings.Trim(h.Get("Etag"), `"`),
		Metadata:    parseMetadata(h, objectMetaPrefix),
	}
	if t, err := http.ParseTime(h.Get("Last-Modified")); err == nil {
		info.LastModified = t
	}
	return info
}

// parseNames splits a plain-text listing body.
func parseNames(body []byte) []string {
	names := []string{}
	for _, line := range strings.Split(string(body), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names
}
