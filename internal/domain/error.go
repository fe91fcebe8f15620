package domain

import "errors"

var (
	// Common domain errors
	ErrClinicNotFound   = errors.New("clinic not found")
	ErrClinicExists     = errors.New("clinic already exists")
	ErrPhoneInUse       = errors.New("phone number already registered to another clinic")
	ErrClinicInactive   = errors.New("clinic is inactive")
	ErrQuotaExceeded    = errors.New("monthly message limit reached")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// Kind buckets every error the relay can surface, so transports map
// outcomes without string matching.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindPolicy       Kind = "policy_rejected"
	KindMalformed    Kind = "malformed_input"
	KindCollaborator Kind = "collaborator_failure"
	KindStorage      Kind = "storage_failure"
	KindInvalid      Kind = "invalid_argument"
	KindInternal     Kind = "internal"
)

// CollaboratorError wraps a failed call to an external collaborator
// (generative responder, message delivery). Retryable by the caller.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string { return "collaborator " + e.Op + ": " + e.Err.Error() }
func (e *CollaboratorError) Unwrap() error { return e.Err }

// StorageError wraps a durable read/write failure. Fatal for the request.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

func Collaborator(op string, err error) error { return &CollaboratorError{Op: op, Err: err} }
func Storage(op string, err error) error      { return &StorageError{Op: op, Err: err} }

// Classify maps an error onto the taxonomy.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrClinicNotFound):
		return KindNotFound
	case errors.Is(err, ErrClinicInactive), errors.Is(err, ErrQuotaExceeded):
		return KindPolicy
	case errors.Is(err, ErrMalformedPayload):
		return KindMalformed
	case errors.Is(err, ErrClinicExists), errors.Is(err, ErrPhoneInUse), errors.Is(err, ErrInvalidArgument):
		return KindInvalid
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return KindCollaborator
	}
	var se *StorageError
	if errors.As(err, &se) {
		return KindStorage
	}
	return KindInternal
}
