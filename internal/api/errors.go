package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Default error messages.
const (
	msgLoginFailed    = "login failed"
	msgProfileFailed  = "failed to fetch profile"
	msgMembersFailedF = "failed to fetch class members (%d)"
)

// AuthError is returned when sign-in or the profile fetch is rejected.
type AuthError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Message is the server's error text or a generic message.
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return e.Message
}

// FetchError is returned when the class member list cannot be fetched.
type FetchError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Message is the server's error text or a generic message.
	Message string
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return e.Message
}

// IsAuthError checks if an error is an AuthError and returns it.
func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// IsFetchError checks if an error is a FetchError and returns it.
func IsFetchError(err error) (*FetchError, bool) {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr, true
	}
	return nil, false
}

// serverMessage returns the first non-empty string field of a JSON error body.
// Malformed or non-object bodies yield "".
func serverMessage(body []byte, fields ...string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	for _, f := range fields {
		raw, ok := obj[f]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func newAuthError(status int, body []byte) *AuthError {
	msg := serverMessage(body, "error")
	if msg == "" {
		msg = msgLoginFailed
	}
	return &AuthError{StatusCode: status, Message: msg}
}

func newFetchError(status int, body []byte) *FetchError {
	msg := serverMessage(body, "error", "message")
	if msg == "" {
		msg = fmt.Sprintf(msgMembersFailedF, status)
	}
	return &FetchError{StatusCode: status, Message: msg}
}
