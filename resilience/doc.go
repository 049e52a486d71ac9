// Package resilience provides the token-bucket rate limiter the transport
// applies before each request.
//
// cloudbatch does not retry failed requests; a failed step marks its
// operation failed and the caller decides what to do next.
package resilience
