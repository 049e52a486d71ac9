// Package swifttest runs an in-memory object store speaking the Swift-style
// HTTP API over a local httptest server.
//
// It implements containers, objects, metadata, server-side COPY and CDN
// enablement, and can inject HTTP errors or dropped connections for any
// request:
//
//	srv := swifttest.New(t)
//	srv.CreateContainer("photos")
//	srv.InjectFault(func(r *http.Request) *swifttest.Fault {
//	    if r.Method == "COPY" {
//	        return &swifttest.Fault{Drop: true}
//	    }
//	    return nil
//	})
//	cfg := transport.Config{StorageURL: srv.StorageURL(), CDNURL: srv.CDNURL(), Token: srv.Token()}
package swifttest
