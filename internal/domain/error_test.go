//go:build !integration

package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Kind("")},
		{"not found", ErrClinicNotFound, KindNotFound},
		{"inactive", ErrClinicInactive, KindPolicy},
		{"quota", ErrQuotaExceeded, KindPolicy},
		{"malformed", ErrMalformedPayload, KindMalformed},
		{"duplicate id", ErrClinicExists, KindInvalid},
		{"duplicate phone", ErrPhoneInUse, KindInvalid},
		{"invalid argument", ErrInvalidArgument, KindInvalid},
		{"collaborator", Collaborator("generate", errors.New("timeout")), KindCollaborator},
		{"storage", Storage("read", errors.New("disk gone")), KindStorage},
		{"wrapped sentinel", fmt.Errorf("handling message: %w", ErrQuotaExceeded), KindPolicy},
		{"wrapped storage", fmt.Errorf("update: %w", Storage("write", errors.New("enospc"))), KindStorage},
		{"unknown", errors.New("something else"), KindInternal},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestWrappersPreserveCause(t *testing.T) {
	cause := errors.New("connection refused")

	ce := Collaborator("generate", cause)
	if !errors.Is(ce, cause) {
		t.Error("collaborator wrapper must unwrap to its cause")
	}
	if ce.Error() != "collaborator generate: connection refused" {
		t.Errorf("unexpected message %q", ce.Error())
	}

	se := Storage("read", cause)
	if !errors.Is(se, cause) {
		t.Error("storage wrapper must unwrap to its cause")
	}
	if se.Error() != "storage read: connection refused" {
		t.Errorf("unexpected message %q", se.Error())
	}
}
