package lens

import (
	"errors"
	"fmt"
)

var ErrAllSourcesFailed = errors.New("all organic feed sources are unavailable")

// InputError is a caller mistake: a missing or malformed identifier or
// paging parameter. Never retried.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SourceUnavailable wraps a store adapter failure, timeout or an open
// circuit breaker for the named source.
type SourceUnavailable struct {
	Source string
	Err    error
}

func (e *SourceUnavailable) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailable) Unwrap() error {
	return e.Err
}

// ConsistencyAnomaly marks a dangling reference between stores, such as a
// sponsored slot pointing at a removed video.
type ConsistencyAnomaly struct {
	Kind string
	Ref  string
	Want string
}

func (e *ConsistencyAnomaly) Error() string {
	return fmt.Sprintf("%s %s references missing %s", e.Kind, e.Ref, e.Want)
}

func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
