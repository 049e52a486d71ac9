// Package errors provides the structured error type shared by every
// cloudbatch package.
//
// Contract violations (INVALID_ARGUMENT, INVALID_STATE, OUT_OF_RANGE,
// NO_CALLBACK) are returned immediately by the call that violates them.
// Per-operation failures (TRANSPORT_FAILURE, CALLBACK_FAILURE) are recorded
// on the operation and only surface when its result is inspected.
package errors
