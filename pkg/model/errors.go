package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingCredential marks a provider that refuses to call out because no
	// API credential is configured.
	ErrMissingCredential = errors.New("api credential is not configured")
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrPersistence       = errors.New("analysis persistence failed")
	ErrMissingImage      = errors.New("image capture is missing")
	ErrUnsupportedMode   = errors.New("unsupported mode")
)

// ProviderError is a non-successful HTTP exchange with a remote service. Body
// holds the response text for diagnostics.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = "no response body"
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, body)
}

func NewProviderError(provider string, statusCode int, body string) error {
	return &ProviderError{Provider: provider, StatusCode: statusCode, Body: body}
}

func MissingCredential(provider string, envName string) error {
	if envName == "" {
		return fmt.Errorf("%s: %w", provider, ErrMissingCredential)
	}
	return fmt.Errorf("%s: %w (set WithAuthToken or %s)", provider, ErrMissingCredential, envName)
}

func IsMissingCredential(err error) bool {
	return errors.Is(err, ErrMissingCredential)
}
