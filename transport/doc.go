// Package transport performs the individual HTTP requests that make up the
// steps of an operation.
//
// Every request is opened as its own Conn with a dedicated, non-pooled
// http.Transport, so no two steps ever share a connection. A Conn exposes
// exactly one Handle, which a multiplexer drives to completion; afterwards
// the owner reads the recorded Status and releases the connection.
//
// # Request shapes
//
// Requests are described by a Kind, a closed set of shapes each carrying a
// fixed HTTP method and body policy:
//
//	KindRead    GET, response body read
//	KindWrite   PUT, request body sent
//	KindHead    HEAD
//	KindCreate  PUT, no body
//	KindUpdate  POST, no body
//	KindDelete  DELETE
//	KindCopy    COPY, Destination header required
//
// # Usage
//
//	c, err := transport.New(transport.Config{StorageURL: "https://storage.example.com/v1/AUTH_acct", Token: tok})
//	conn, err := c.Open(transport.Request{Kind: transport.KindHead, Target: "photos/cat.jpg"})
//	conn.Handle().Perform(ctx)
//	st := conn.CompletionStatus(conn.Handle())
//	conn.Release(conn.Handle())
package transport
