/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package errors

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/xid"
)

// Error extends error with a code and a unique
// id that ties a client response to a log line
type Error interface {
	error

	// ErrorCode returns the error code
	ErrorCode() ErrorCode
	// ErrorID returns the unique id of this error occurrence
	ErrorID() string
	// GenerateLogMsg returns the message to be logged server side
	GenerateLogMsg() string
	// GenerateClientErrorMsg returns the message safe to show to clients
	GenerateClientErrorMsg() string
}

type customError struct {
	error
	code    ErrorCode
	errorID string
}

// New returns a new Error
func New(code ErrorCode, msg string) Error {
	return newError(code, errors.New(msg))
}

// Errorf returns a new Error
func Errorf(code ErrorCode, format string, args ...interface{}) Error {
	return newError(code, errors.Errorf(format, args...))
}

// Wrap returns a new Error
func Wrap(code ErrorCode, cause error, msg string) Error {
	return newError(code, errors.Wrap(cause, msg))
}

// Wrapf returns a new Error
func Wrapf(code ErrorCode, cause error, format string, args ...interface{}) Error {
	return newError(code, errors.Wrapf(cause, format, args...))
}

// WithMessage returns a new Error that keeps the cause's stack
func WithMessage(code ErrorCode, cause error, msg string) Error {
	return newError(code, errors.WithMessage(cause, msg))
}

// CreateError returns err unchanged if it already carries a code,
// otherwise it is wrapped with the given code
func CreateError(err error, code ErrorCode, msg string) Error {
	errorObj, ok := GetError(err)
	if !ok {
		errorObj = WithMessage(code, err, msg)
	}
	return errorObj
}

// GetError returns the outermost coded error in err's chain
func GetError(err error) (Error, bool) {
	for err != nil {
		if s, ok := err.(Error); ok {
			return s, true
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = cause.Cause()
	}
	return nil, false
}

// HasCode returns true if any coded error in err's chain has the given code
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if s, ok := err.(*customError); ok {
			if s.code == code {
				return true
			}
			err = s.error
			continue
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			return false
		}
		err = cause.Cause()
	}
	return false
}

// Code returns the code of the outermost coded error, or GeneralError
func Code(err error) ErrorCode {
	if e, ok := GetError(err); ok {
		return e.ErrorCode()
	}
	return GeneralError
}

// Cause returns the underlying cause of the error
func Cause(err error) error {
	return errors.Cause(err)
}

func newError(code ErrorCode, err error) *customError {
	return &customError{
		error:   err,
		code:    code,
		errorID: xid.New().String(),
	}
}

// ErrorCode returns the error code
func (e *customError) ErrorCode() ErrorCode {
	return e.code
}

// ErrorID returns the error ID
func (e *customError) ErrorID() string {
	return e.errorID
}

// Cause lets errors.Cause see through the coded wrapper
func (e *customError) Cause() error {
	return e.error
}

// Unwrap supports the standard library errors package
func (e *customError) Unwrap() error {
	return e.error
}

// GenerateLogMsg returns the log msg
func (e *customError) GenerateLogMsg() string {
	return fmt.Sprintf("errorID:%s errorCode:%s error:%v", e.errorID, e.code, e.error)
}

// GenerateClientErrorMsg returns the client error msg. The underlying error
// text is left out since it can carry CA and peer details.
func (e *customError) GenerateClientErrorMsg() string {
	return fmt.Sprintf("errorID:%s errorCode:%s", e.errorID, e.code)
}
