package service

import "fmt"

// ValidationError reports malformed or empty required input. The caller can
// recover by correcting the input; nothing is retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a referenced project or task id that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError reports an operation disallowed by current entity state,
// such as mutating a task under an archived project.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// PersistenceError reports an adapter-level failure. Connection failures
// surface through here; corrupt individual records never do (the store
// omits them at the listing boundary).
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

func wrapStore(err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Err: err}
}
