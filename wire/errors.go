package wire

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anirudhraja/protocodec/message"
)

// Sentinel errors. Every decode/encode failure unwraps to one of these.
var (
	// ErrMalformedVarint indicates a varint that did not terminate within 10 bytes
	// or overflows 64 bits.
	ErrMalformedVarint = errors.New("protocodec: malformed varint")

	// ErrTruncatedMessage indicates the input ended inside a field or a
	// length-delimited block declared more bytes than remain.
	ErrTruncatedMessage = errors.New("protocodec: truncated message")

	// ErrInvalidFieldNumber indicates a tag with field number 0 or above 2^29-1.
	ErrInvalidFieldNumber = errors.New("protocodec: invalid field number")

	// ErrUnsupportedWireType indicates group wire types (3, 4) or the undefined 6, 7.
	ErrUnsupportedWireType = errors.New("protocodec: unsupported wire type")

	// ErrTypeMismatch indicates a value whose Go type does not fit the field kind.
	ErrTypeMismatch = message.ErrTypeMismatch

	// ErrRequiredFieldMissing indicates a proto2 required field absent after decode.
	ErrRequiredFieldMissing = errors.New("protocodec: required field missing")

	// ErrMaxDepthExceeded indicates nesting deeper than Config.MaxDepth.
	ErrMaxDepthExceeded = errors.New("protocodec: maximum nesting depth exceeded")

	// ErrInvalidUTF8 indicates a string field holding invalid UTF-8 under Config.StrictUTF8.
	ErrInvalidUTF8 = errors.New("protocodec: invalid UTF-8 in string field")
)

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath  []string // e.g., ["bid", "amount"]
	Err        error    // underlying error
	IsDecoding bool     // true for decoding errors, false for encoding errors
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	operation := "encoding"
	if e.IsDecoding {
		operation = "decoding"
	}
	return fmt.Sprintf("%s error at proto path %s: %v", operation, strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Path returns the dotted field path.
func (e *FieldError) Path() string {
	return strings.Join(e.FieldPath, ".")
}

// wrapEncodingFieldError prepends fieldName to the path of an encoding error.
func wrapEncodingFieldError(err error, fieldName string) error {
	return wrapFieldError(err, fieldName, false)
}

// wrapDecodingFieldError prepends fieldName to the path of a decoding error.
func wrapDecodingFieldError(err error, fieldName string) error {
	return wrapFieldError(err, fieldName, true)
}

func wrapFieldError(err error, fieldName string, isDecoding bool) error {
	if err == nil {
		return nil
	}

	// If it's already a FieldError, prepend this field to the path
	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath:  append([]string{fieldName}, fe.FieldPath...),
			Err:        fe.Err,
			IsDecoding: isDecoding,
		}
	}

	return &FieldError{
		FieldPath:  []string{fieldName},
		Err:        err,
		IsDecoding: isDecoding,
	}
}

// mismatch builds an ErrTypeMismatch with detail.
func mismatch(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrTypeMismatch, fmt.Sprintf(format, args...))
}
