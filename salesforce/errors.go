package salesforce

import (
	"fmt"
)

// TransportError is returned when a request could not be sent or its response could not be read
type TransportError struct {
	Err error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("unable to send request to salesforce: %v", e.Err)
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// AssertionError is returned when the JWT login assertion could not be built or signed
type AssertionError struct {
	Err error
}

func (e AssertionError) Error() string {
	return fmt.Sprintf("failed to create authentication assertion: %v", e.Err)
}

func (e AssertionError) Unwrap() error {
	return e.Err
}

// LoadKeyError is returned when a private key could not be read from disk
type LoadKeyError struct {
	Path string
	Err  error
}

func (e LoadKeyError) Error() string {
	return fmt.Sprintf("failed to load key from %s: %v", e.Path, e.Err)
}

func (e LoadKeyError) Unwrap() error {
	return e.Err
}

// MissingEnvConfigError is returned when a required environment variable is not set
type MissingEnvConfigError struct {
	Name string
}

func (e MissingEnvConfigError) Error() string {
	return fmt.Sprintf("failed to find necessary environment variable %s", e.Name)
}

// LoginFailureError is returned for a non 200 response from an oauth2 endpoint.
// Response.Body is nil when the body was not a LoginError.
type LoginFailureError struct {
	Response Response[LoginError]
}

func (e LoginFailureError) Error() string {
	if e.Response.Body != nil {
		return fmt.Sprintf("login request failed with status %d: %s: %s",
			e.Response.StatusCode, e.Response.Body.Error, e.Response.Body.ErrorDescription)
	}
	return fmt.Sprintf("login request failed with status %d", e.Response.StatusCode)
}

// SessionFailureError is returned for a non 200 userinfo response using a session token.
// The body is kept as plain text.
type SessionFailureError struct {
	Response Response[string]
}

func (e SessionFailureError) Error() string {
	return fmt.Sprintf("session request failed with status %d", e.Response.StatusCode)
}

// APIFailureError is returned for an unexpected status code from the data api
type APIFailureError struct {
	Response Response[[]ApiError]
}

func (e APIFailureError) Error() string {
	if e.Response.Body != nil && len(*e.Response.Body) > 0 {
		first := (*e.Response.Body)[0]
		return fmt.Sprintf("api request failed with status %d: %s: %s", e.Response.StatusCode, first.ErrorCode, first.Message)
	}
	return fmt.Sprintf("api request failed with status %d", e.Response.StatusCode)
}

// UnexpectedBodyError is returned when a response body does not decode into
// the expected type. Body holds the raw, unparsed text.
type UnexpectedBodyError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e UnexpectedBodyError) Error() string {
	return fmt.Sprintf("unexpected salesforce response body (status %d): %v", e.StatusCode, e.Err)
}

func (e UnexpectedBodyError) Unwrap() error {
	return e.Err
}
