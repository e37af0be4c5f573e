package wire

import (
	"errors"
	"strings"
	"testing"
)

func TestFieldError(t *testing.T) {
	tests := []struct {
		name          string
		buildError    func() error
		expectedPath  string
		expectedMsg   string
		isDecoding    bool
		containsWords []string
	}{
		{
			name: "single field encoding error",
			buildError: func() error {
				return wrapEncodingFieldError(mismatch("%T cannot be encoded as %s", 1.5, "int32"), "quantity")
			},
			expectedPath: "quantity",
			expectedMsg:  "float64 cannot be encoded as int32",
		},
		{
			name: "nested field encoding error",
			buildError: func() error {
				err := wrapEncodingFieldError(mismatch("message value must be *message.Message, got string"), "deposit")
				err = wrapEncodingFieldError(err, "bid")
				err = wrapEncodingFieldError(err, "lot")
				return err
			},
			expectedPath: "lot.bid.deposit",
			expectedMsg:  "message value must be *message.Message",
			containsWords: []string{
				"encoding error at proto path lot.bid.deposit",
				ErrTypeMismatch.Error(),
			},
		},
		{
			name: "nested field decoding error",
			buildError: func() error {
				err := wrapDecodingFieldError(ErrTruncatedMessage, "units")
				err = wrapDecodingFieldError(err, "deposit")
				err = wrapDecodingFieldError(err, "bids")
				return err
			},
			expectedPath: "bids.deposit.units",
			expectedMsg:  ErrTruncatedMessage.Error(),
			isDecoding:   true,
			containsWords: []string{
				"decoding error at proto path bids.deposit.units",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.buildError()

			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("expected FieldError, got %T", err)
			}
			if fieldErr.IsDecoding != tt.isDecoding {
				t.Errorf("expected IsDecoding=%v", tt.isDecoding)
			}
			if got := fieldErr.Path(); got != tt.expectedPath {
				t.Errorf("expected path %q, got %q", tt.expectedPath, got)
			}

			errMsg := err.Error()
			if !strings.Contains(errMsg, tt.expectedMsg) {
				t.Errorf("error message should contain %q, got: %s", tt.expectedMsg, errMsg)
			}
			// the path is reported once, not once per nesting level
			if count := strings.Count(errMsg, "error at proto path"); count != 1 {
				t.Errorf("error message repeats its prefix %d times: %s", count, errMsg)
			}
			for _, word := range tt.containsWords {
				if !strings.Contains(errMsg, word) {
					t.Errorf("error message should contain %q, got: %s", word, errMsg)
				}
			}
			if errors.Unwrap(err) == nil {
				t.Error("Unwrap should return the underlying error")
			}
		})
	}
}

func TestFieldError_Sentinels(t *testing.T) {
	sentinels := []error{
		ErrMalformedVarint,
		ErrTruncatedMessage,
		ErrInvalidFieldNumber,
		ErrUnsupportedWireType,
		ErrTypeMismatch,
		ErrRequiredFieldMissing,
		ErrMaxDepthExceeded,
		ErrInvalidUTF8,
	}
	for _, sentinel := range sentinels {
		err := wrapDecodingFieldError(wrapDecodingFieldError(sentinel, "inner"), "outer")
		if !errors.Is(err, sentinel) {
			t.Errorf("errors.Is(%v, %v) = false", err, sentinel)
		}
	}
}

func TestFieldError_NoPath(t *testing.T) {
	err := &FieldError{Err: ErrTruncatedMessage}
	if err.Error() != ErrTruncatedMessage.Error() {
		t.Errorf("unexpected message %q", err.Error())
	}
	if wrapEncodingFieldError(nil, "x") != nil {
		t.Error("wrapping nil should return nil")
	}
}
