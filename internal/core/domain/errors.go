package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrInteractionNotFound = errors.New("interaction not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrTemporary           = errors.New("temporary failure")

	// ErrNoRelevantLaw signals that no chunk survived the rerank
	// threshold. The ask pipeline maps it to the persona's refusal
	// reply; it never reaches the HTTP caller as a failure.
	ErrNoRelevantLaw = errors.New("no sufficiently relevant law found")
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
