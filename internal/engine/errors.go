package engine

import "fmt"

// ValidationError rejects malformed input before any state is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PreconditionError rejects an operation whose inputs are well formed but
// whose current state does not satisfy a gate. Code is a stable machine
// identifier; Details carries the evidence behind the refusal.
type PreconditionError struct {
	Code    string
	Message string
	Details map[string]any
}

func (e PreconditionError) Error() string { return e.Message }

// ForbiddenError rejects an operation the acting client may not perform.
type ForbiddenError struct {
	Message string
}

func (e ForbiddenError) Error() string { return e.Message }
