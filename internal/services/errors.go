package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedEvent       = errors.New("malformed event")
	ErrAddressing           = errors.New("addressing error")
	ErrMissingSessionRecord = errors.New("missing session record")
	ErrInvalidSelection     = errors.New("invalid selection")
	ErrTranscodeFailure     = errors.New("transcode failure")
	ErrExternalTool         = errors.New("external tool error")
	ErrValidation           = errors.New("validation error")
	ErrConfiguration        = errors.New("configuration error")
	ErrTimeout              = errors.New("timeout")
)

// Outcome classifies how a failed unit of work should be recorded.
type Outcome string

const (
	// OutcomeRejected marks requests that were refused before any work ran.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed marks work that ran and failed.
	OutcomeFailed Outcome = "failed"
)

// Wrap builds an error message that includes component context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureOutcome maps an error to the outcome persisted for the failed request.
func FailureOutcome(err error) Outcome {
	switch {
	case errors.Is(err, ErrInvalidSelection), errors.Is(err, ErrMissingSessionRecord), errors.Is(err, ErrValidation):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
