package services

import (
	"errors"
	"fmt"
)

// ValidationError means the caller sent something that can never succeed as-is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// NotFoundError covers missing chats and messages, and senders that are not chat members.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// TransientStoreError wraps persistence failures that may succeed on a later attempt.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func notFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func transient(op string, err error) error {
	return &TransientStoreError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsTransient(err error) bool {
	var ts *TransientStoreError
	return errors.As(err, &ts)
}
