package panel

import "fmt"

// maxBodyExcerpt bounds how much of an error response body is kept.
const maxBodyExcerpt = 1024

// AuthenticationFailedError is returned when the panel rejects the login.
type AuthenticationFailedError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *AuthenticationFailedError) Error() string {
	return fmt.Sprintf("login %s: http %d: %s", e.URL, e.StatusCode, e.Body)
}

// RequestFailedError is a non-2xx answer to an authenticated request, after
// the one re-authentication retry if there was one.
type RequestFailedError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("get %s: http %d: %s", e.URL, e.StatusCode, e.Body)
}

// TransportError covers DNS, connect, TLS and timeout failures.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError is a 2xx body that does not decode into the
// expected shape.
type MalformedResponseError struct {
	URL string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
