// Package errors provides the structured error type shared by the container,
// the application control surface and the test runner glue.
//
// Every failure carries a machine-readable ErrorCode and a Retryable flag so
// callers can decide whether a retry makes sense (session creation does,
// scenario cleanup never retries).
package errors
