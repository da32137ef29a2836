// Package apperr provides the error taxonomy shared by the minting pipeline.
package apperr

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure kind surfaced to operators.
type ErrorCode string

const (
	CodeAssetMissing       ErrorCode = "ASSET_MISSING"
	CodeImageDecode        ErrorCode = "IMAGE_DECODE_FAILED"
	CodeFetchFailed        ErrorCode = "FETCH_FAILED"
	CodeSubmissionRejected ErrorCode = "SUBMISSION_REJECTED"
	CodePinFailed          ErrorCode = "PIN_FAILED"
	CodeTextOverflow       ErrorCode = "TEXT_OVERFLOW"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// Error is a coded application error.
type Error struct {
	Code    ErrorCode
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}

// NewAssetMissingError reports a template, font or placeholder that is not on disk.
func NewAssetMissingError(path string, err error) *Error {
	return &Error{
		Code:    CodeAssetMissing,
		Message: "certificate asset missing",
		Details: path,
		Err:     err,
	}
}

func NewImageDecodeError(err error) *Error {
	return &Error{
		Code:    CodeImageDecode,
		Message: "source image is not a decodable raster image",
		Err:     err,
	}
}

func NewFetchFailedError(url string, err error) *Error {
	return &Error{
		Code:    CodeFetchFailed,
		Message: "failed to fetch certificate image",
		Details: url,
		Err:     err,
	}
}

func NewSubmissionRejectedError(details string, err error) *Error {
	return &Error{
		Code:    CodeSubmissionRejected,
		Message: "ledger rejected the registration",
		Details: details,
		Err:     err,
	}
}

func NewPinFailedError(kind string, err error) *Error {
	return &Error{
		Code:    CodePinFailed,
		Message: "failed to pin " + kind + " to IPFS",
		Err:     err,
	}
}

func NewTextOverflowError(text string, width, limit int) *Error {
	return &Error{
		Code:    CodeTextOverflow,
		Message: "text does not fit on the certificate",
		Details: fmt.Sprintf("text %q is %dpx wide, %dpx available", text, width, limit),
	}
}

func NewInvalidInputError(details string) *Error {
	return &Error{
		Code:    CodeInvalidInput,
		Message: "invalid input",
		Details: details,
	}
}

// Recoverable reports whether a failure should be recorded against a single
// submission or batch row rather than stopping the whole run.
func Recoverable(err error) bool {
	switch CodeOf(err) {
	case CodeImageDecode, CodeFetchFailed, CodeSubmissionRejected,
		CodePinFailed, CodeTextOverflow, CodeInvalidInput:
		return true
	}
	return false
}
