package transport

import "net/http"

// MethodCopy is the non-standard COPY method used for server-side copies.
const MethodCopy = "COPY"

// Kind identifies one of the fixed request shapes.
type Kind int

const (
	// KindRead fetches a resource and reads the response body.
	KindRead Kind = iota
	// KindWrite uploads a request body.
	KindWrite
	// KindHead fetches only headers.
	KindHead
	// KindCreate creates an empty resource.
	KindCreate
	// KindUpdate posts new metadata.
	KindUpdate
	// KindDelete removes a resource.
	KindDelete
	// KindCopy copies a resource server-side to the Destination header.
	KindCopy
)

type shape struct {
	name      string
	method    string
	sendsBody bool
	readsBody bool
}

var shapes = [...]shape{
	KindRead:   {name: "read", method: http.MethodGet, readsBody: true},
	KindWrite:  {name: "write", method: http.MethodPut, sendsBody: true},
	KindHead:   {name: "head", method: http.MethodHead},
	KindCreate: {name: "create", method: http.MethodPut},
	KindUpdate: {name: "update", method: http.MethodPost},
	KindDelete: {name: "delete", method: http.MethodDelete},
	KindCopy:   {name: "copy", method: MethodCopy},
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < len(shapes)
}

// Method returns the HTTP method for k.
func (k Kind) Method() string {
	if !k.Valid() {
		return ""
	}
	return shapes[k].method
}

// SendsBody reports whether requests of this kind carry a body.
func (k Kind) SendsBody() bool {
	return k.Valid() && shapes[k].sendsBody
}

// ReadsBody reports whether the response body is kept.
func (k Kind) ReadsBody() bool {
	return k.Valid() && shapes[k].readsBody
}

// String returns the kind name.
func (k Kind) String() string {
	if !k.Valid() {
		return "unknown"
	}
	return shapes[k].name
}

// Endpoint selects which base URL a request targets.
type Endpoint int

const (
	// EndpointStorage targets the object-storage API.
	EndpointStorage Endpoint = iota
	// EndpointCDN targets the CDN management API.
	EndpointCDN
)

// String returns the endpoint name.
func (e Endpoint) String() string {
	switch e {
	case EndpointStorage:
		return "storage"
	case EndpointCDN:
		return "cdn"
	default:
		return "unknown"
	}
}
