package app

import "time"

// Operation records one CLI command for the log. Read-only commands are
// logged at debug; mutating ones at info.
type Operation struct {
	ID       string
	Name     string
	Mutating bool
	Status   string // "success" or "error"
	Err      error
}

// NewOperation creates an operation whose ID is derived from the start time.
func NewOperation(name string, mutating bool, start time.Time) *Operation {
	return &Operation{
		ID:       start.UTC().Format("20060102T150405Z"),
		Name:     name,
		Mutating: mutating,
		Status:   "success",
	}
}

// Fail marks the operation as failed. A nil err leaves it untouched.
func (op *Operation) Fail(err error) {
	if err == nil {
		return
	}
	op.Status = "error"
	op.Err = err
}

// Failed reports whether Fail was called with a non-nil error.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}
