// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txsigner

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the pipeline stage that failed.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrDecode indicates the transaction could not be decoded.
	ErrDecode ErrorCode = iota

	// ErrKeyDecode indicates the encoded private key is malformed or is
	// not an extended key.
	ErrKeyDecode

	// ErrSigning indicates the witness could not be produced.
	ErrSigning

	// ErrEncode indicates the signed transaction could not be encoded.
	ErrEncode

	// ErrVerify indicates a witness does not verify against the body
	// hash.
	ErrVerify

	// ErrConfig indicates the signer was given an unusable
	// configuration.
	ErrConfig
)

// errorCodeStrings maps error codes to their names.
var errorCodeStrings = map[ErrorCode]string{
	ErrDecode:    "ErrDecode",
	ErrKeyDecode: "ErrKeyDecode",
	ErrSigning:   "ErrSigning",
	ErrEncode:    "ErrEncode",
	ErrVerify:    "ErrVerify",
	ErrConfig:    "ErrConfig",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}

	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error is the error type returned by every signing operation. Code names
// the failed stage and Err holds the underlying cause.
type Error struct {
	Code ErrorCode
	Desc string
	Err  error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Desc + ": " + e.Err.Error()
	}

	return e.Desc
}

// Unwrap returns the underlying error, if any.
func (e Error) Unwrap() error {
	return e.Err
}

// newError creates an Error given a set of arguments.
func newError(c ErrorCode, desc string, err error) Error {
	return Error{Code: c, Desc: desc, Err: err}
}

// IsError returns whether err is an Error with a matching error code.
func IsError(err error, code ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.Code == code
}
