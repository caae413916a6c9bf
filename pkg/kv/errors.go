package kv

import (
	"errors"
	"fmt"
)

// ErrBucketName is returned when a bucket name contains a NUL byte, which is
// reserved as the subspace separator.
var ErrBucketName = errors.New("kv: bucket name must not contain NUL bytes")

// DecodeError reports that stored bytes could not be converted to the
// requested type. It is always recoverable; the stored bytes are left
// untouched.
type DecodeError struct {
	Codec string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("kv: decoding %s data: %v", e.Codec, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AbortError is the result of a transaction body that called Abort. It
// terminates the retry loop and carries the caller-supplied reason.
type AbortError struct {
	Reason error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("kv: transaction aborted: %v", e.Reason)
}

func (e *AbortError) Unwrap() error { return e.Reason }

// Abort wraps reason so that returning it from a transaction body stops the
// transaction without committing. Aborts are never retried; the engine
// discards the pending writes and Update returns the *AbortError.
func Abort(reason error) error {
	return &AbortError{Reason: reason}
}
