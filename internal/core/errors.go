package core

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("document not found")
	ErrUnauthorized       = errors.New("not authorized")
	ErrAlreadySetup       = errors.New("application has already been set up")
	ErrInvalidCredentials = errors.New("invalid password")
	ErrUpstream           = errors.New("upstream service failure")
	ErrTransactionAborted = errors.New("import aborted")
)

// ValidationError collects every offending field of a document.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds an error for a single field.
func NewValidationError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	if _, exists := v.Fields[field]; !exists {
		v.Fields[field] = msg
	}
}

// Merge copies the fields of other, nesting them under prefix, e.g. "milestones[0].".
func (v *ValidationError) Merge(prefix string, other *ValidationError) {
	if other == nil {
		return
	}
	for f, msg := range other.Fields {
		v.Add(prefix+f, msg)
	}
}

// OrNil returns nil when no field was recorded.
func (v *ValidationError) OrNil() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	names := make([]string, 0, len(v.Fields))
	for f := range v.Fields {
		names = append(names, f)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, f := range names {
		parts[i] = f + " " + v.Fields[f]
	}
	return "invalid data: " + strings.Join(parts, "; ")
}
