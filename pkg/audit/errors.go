package audit

import (
	"errors"
	"fmt"

	"github.com/amosWeiskopf/auditsmith/pkg/crawler"
)

// ValidationError rejects a request before any network I/O
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

var (
	// ErrSeedUnreachable is returned when the seed page cannot be fetched
	ErrSeedUnreachable = crawler.ErrSeedUnreachable

	// ErrDeadlineExceeded is returned when the audit deadline passed before
	// any page was analyzed. A deadline hit after that yields a degraded
	// result instead.
	ErrDeadlineExceeded = errors.New("audit deadline exceeded before any page was analyzed")
)

// Error kinds reported to API and CLI callers
const (
	KindValidation       = "validation"
	KindSeedUnreachable  = "seed_unreachable"
	KindDeadlineExceeded = "deadline_exceeded"
	KindInternal         = "internal"
)

// ErrorKind classifies an error returned by the engine
func ErrorKind(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return KindValidation
	case errors.Is(err, ErrSeedUnreachable):
		return KindSeedUnreachable
	case errors.Is(err, ErrDeadlineExceeded):
		return KindDeadlineExceeded
	default:
		return KindInternal
	}
}
