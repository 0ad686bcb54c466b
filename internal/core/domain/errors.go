package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEnvelopeNotFound    = errors.New("envelope not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrCaseNotFound        = errors.New("case not found in registry")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotPDF              = errors.New("content is not a pdf")
	ErrRegistryUnavailable = errors.New("case registry unavailable")
	ErrTemporary           = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
