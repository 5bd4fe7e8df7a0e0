// Package cserrors provides the structured error type shared by every
// codescope package. Every fallible operation that crosses a component
// boundary returns (or wraps into) an *Error so callers can branch on Kind
// instead of parsing message text.
package cserrors

import "fmt"

// Kind discriminates the error taxonomy codescope's components raise.
type Kind string

const (
	// Io covers filesystem failures: permission denied, ENOSPC, unreadable
	// paths encountered while walking a workspace or reading a file.
	Io Kind = "io"
	// IndexOpen covers failures opening or creating the on-disk text index.
	IndexOpen Kind = "index_open"
	// IndexWrite covers failures committing a batch to the text index.
	IndexWrite Kind = "index_write"
	// VectorLoad covers failures loading the HNSW graph or doc_ids mapping.
	VectorLoad Kind = "vector_load"
	// DimensionMismatch is raised when a vector's length disagrees with the
	// vector index's configured dimensionality.
	DimensionMismatch Kind = "dimension_mismatch"
	// FileTooLarge is raised when a candidate document exceeds the
	// configured maximum file size and is skipped.
	FileTooLarge Kind = "file_too_large"
	// WorkspaceNotIndexed is raised when a search or incremental-update
	// operation targets a workspace with no workspace.json (no completed
	// index pass) yet.
	WorkspaceNotIndexed Kind = "workspace_not_indexed"
	// Search covers failures executing a query against one or both indexes.
	Search Kind = "search"
	// Config covers failures parsing or validating the project config file.
	Config Kind = "config"
)

// Error is codescope's structured error type. It carries a Kind for
// programmatic branching, a human message, optional key/value Details for
// diagnostics, and the underlying Cause for error-chain support.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, enabling
// errors.Is(err, &cserrors.Error{Kind: cserrors.Io}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a key/value diagnostic and returns the error for
// chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrap annotates err with a Kind, preserving it as the Cause. Returns nil
// if err is nil, so it composes with `if err := f(); err != nil { return
// cserrors.Wrap(...) }` call sites.
func Wrap(kind Kind, message string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(kind, message, err)
}

// KindOf extracts the Kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if ae, ok := err.(*Error); ok {
		e = ae
	}
	if e == nil {
		return ""
	}
	return e.Kind
}

// Is reports whether err is a codescope *Error of the given kind.
func Is(err error, kind Kind) bool {
	ae, ok := err.(*Error)
	return ok && ae.Kind == kind
}
