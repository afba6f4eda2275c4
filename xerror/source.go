package xerror

import (
	"errors"
	"fmt"
)

// SourceError tags a failure with the key source that produced it.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source=%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func WrapSourceError(source string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{
		Source: source,
		Err:    err,
	}
}

func GetSource(err error) string {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Source
	}
	return ""
}
