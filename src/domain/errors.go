package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")

	ErrSessionNotFound = errors.New("session not found")

	ErrEmailTaken = errors.New("email already registered")

	ErrMissingIdentity = errors.New("record identity is required")

	ErrWriteInFlight = errors.New("another write is still in progress for this record")

	ErrControllerClosed = errors.New("controller closed")
)

// StoreError é uma falha de leitura ou escrita no Remote Store.
type StoreError struct {
	Op         string
	Collection string
	Identity   string
	Err        error
}

func (e *StoreError) Error() string {
	if e.Identity == "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("store %s %s/%s: %v", e.Op, e.Collection, e.Identity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// MediaUploadError keeps upload failures apart from store failures.
type MediaUploadError struct {
	Reason string
	Err    error
}

func (e *MediaUploadError) Error() string {
	if e.Err == nil {
		return "media upload failed: " + e.Reason
	}
	return fmt.Sprintf("media upload failed: %s: %v", e.Reason, e.Err)
}

func (e *MediaUploadError) Unwrap() error {
	return e.Err
}

type IdentityErrorCode string

const (
	CodeInvalidEmail   IdentityErrorCode = "auth/invalid-email"
	CodeWrongSecret    IdentityErrorCode = "auth/wrong-password"
	CodeAccountMissing IdentityErrorCode = "auth/user-not-found"
	CodeEmailInUse     IdentityErrorCode = "auth/email-already-in-use"
	CodeWeakSecret     IdentityErrorCode = "auth/weak-password"
	CodeNetworkFailure IdentityErrorCode = "auth/network-request-failed"
)

// IdentityError carrega o código de erro do provedor de identidade.
type IdentityError struct {
	Code IdentityErrorCode
	Err  error
}

func (e *IdentityError) Error() string {
	if e.Err == nil {
		return "identity provider: " + string(e.Code)
	}
	return fmt.Sprintf("identity provider: %s: %v", e.Code, e.Err)
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

// IdentityCode extracts the provider code from err, "" when err is not an IdentityError.
func IdentityCode(err error) IdentityErrorCode {
	var identityErr *IdentityError
	if errors.As(err, &identityErr) {
		return identityErr.Code
	}
	return ""
}
