package errors

import "net/http"

// HTTPError represents an HTTP error with status code and message.
type HTTPError struct {
	Code       int
	Message    string
	StatusCode int
}

// NewHTTPError returns a new HTTPError with the given code, message, and status code.
// If statusCode is 0, it defaults to http.StatusBadRequest.
func NewHTTPError(code int, message string, statusCode int) *HTTPError {
	if statusCode == 0 {
		statusCode = http.StatusBadRequest
	}
	return &HTTPError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewUnavailableHTTPError reports a dependency that is down.
func NewUnavailableHTTPError(message string) *HTTPError {
	return &HTTPError{
		Code:       http.StatusServiceUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

func NewNotFoundHTTPError(message string) *HTTPError {
	return &HTTPError{
		Code:       http.StatusNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func (e *HTTPError) Error() string {
	return e.Message
}
