package llms

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrConfiguration is returned for a bad or missing provider, credential or deployment.
	// It is never returned as a failed Outcome.
	ErrConfiguration = errors.New("configuration error")
	// ErrImageNotFound is returned when image paths do not exist or are not regular files.
	ErrImageNotFound = errors.New("image not found")
	// ErrImageEncoding is returned when an image can not be read or encoded.
	ErrImageEncoding = errors.New("image encoding error")
	// ErrResponseShape is returned when the provider response misses expected fields.
	ErrResponseShape = errors.New("response parsing error")
	// ErrStreamConsumed is returned when a stream is ranged more than once.
	ErrStreamConsumed = errors.New("stream already consumed")
)

// Kind is the class of a fault carried by ErrorDetail.
type Kind int

const (
	// KindTransport is a connection failure, timeout or non-2xx status.
	KindTransport Kind = iota
	// KindResponse is a well formed response with unexpected structure.
	KindResponse
	// KindValidation is a missing or invalid local image.
	KindValidation
	// KindEncoding is a failure to read or encode a local image.
	KindEncoding
	// KindProcessing is a failure of a batch worker.
	KindProcessing
	// KindUnexpected is any other failure.
	KindUnexpected
)

var kindNames = map[Kind]string{
	KindTransport:  "transport",
	KindResponse:   "response",
	KindValidation: "validation",
	KindEncoding:   "encoding",
	KindProcessing: "processing",
	KindUnexpected: "unexpected",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Fixed labels for faults that do not come from the status table.
const (
	ErrorTypeNetwork    = "Network/Connection Error"
	ErrorTypeResponse   = "Response parsing error"
	ErrorTypeValidation = "Image file not found"
	ErrorTypeEncoding   = "Image encoding error"
	ErrorTypeProcessing = "Processing error"
	ErrorTypeUnexpected = "Unexpected error"

	SuggestionNetwork    = "Check your network connection and API endpoint URL"
	SuggestionResponse   = "Check if the API response structure has changed"
	SuggestionValidation = "Check that all image paths exist and are valid files"
	SuggestionEncoding   = "Check that the image file is readable"
	SuggestionProcessing = "Check if the query is valid"
	SuggestionUnexpected = "Check API documentation and request format"
)

var errorTypes = map[int]string{
	400: "Bad Request - The request was malformed or contains invalid parameters",
	401: "Unauthorized - Authentication failed, check your API key",
	403: "Forbidden - You don't have permission to access this resource",
	404: "Not Found - The requested endpoint does not exist",
	429: "Too Many Requests - Rate limit exceeded, try again later",
	500: "Internal Server Error - Server error, try again later",
	502: "Bad Gateway - Gateway error, try again later",
	503: "Service Unavailable - Server temporarily unavailable, try again later",
	504: "Gateway Timeout - Request timed out, try again later",
}

// Classify returns the error type and the remediation hint for the status code.
// Zero status code means no response was received.
func Classify(statusCode int) (errorType, suggestion string) {
	switch {
	case statusCode <= 0:
		return ErrorTypeNetwork, SuggestionNetwork
	case statusCode == 400:
		suggestion = "Check the request parameters and payload format"
	case statusCode == 401 || statusCode == 403:
		suggestion = "Verify your API key and permissions"
	case statusCode == 404:
		suggestion = "Verify the API endpoint URL"
	case statusCode == 429:
		suggestion = "Wait before sending more requests or implement rate limiting"
	case statusCode >= 500 && statusCode <= 599:
		suggestion = "Try again later or contact the API provider"
	}

	if t, ok := errorTypes[statusCode]; ok {
		return t, suggestion
	}
	return fmt.Sprintf("HTTP Error %d", statusCode), suggestion
}

// BuildMessage returns a human readable message from the present fields.
func BuildMessage(url, method string, statusCode int, errorType, message, suggestion string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "API %s request to '%s' failed", method, url)
	if statusCode > 0 {
		fmt.Fprintf(&b, " with status code %d (%s)", statusCode, errorType)
	}
	if message != "" {
		b.WriteString(": ")
		b.WriteString(message)
	}
	if suggestion != "" {
		b.WriteString(". ")
		b.WriteString(suggestion)
	}
	return b.String()
}

// ErrorDetail describes a failed call. It is created at the failure point
// and not modified after.
type ErrorDetail struct {
	URL        string `json:"url"`
	Method     string `json:"method"`
	StatusCode int    `json:"status_code,omitempty"`
	ErrorType  string `json:"error_type"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Kind       Kind   `json:"-"`

	cause error
}

// Error implements error
func (e *ErrorDetail) Error() string {
	return BuildMessage(e.URL, e.Method, e.StatusCode, e.ErrorType, e.Message, e.Suggestion)
}

// Unwrap returns the underlying cause
func (e *ErrorDetail) Unwrap() error {
	return e.cause
}

// HasStatus returns true if a response was received.
func (e *ErrorDetail) HasStatus() bool {
	return e.StatusCode > 0
}

// Details returns the fields as a map.
func (e *ErrorDetail) Details() map[string]any {
	var status any
	if e.StatusCode > 0 {
		status = e.StatusCode
	}
	return map[string]any{
		"url":         e.URL,
		"method":      e.Method,
		"status_code": status,
		"error_type":  e.ErrorType,
		"message":     e.Message,
		"suggestion":  e.Suggestion,
	}
}

// NewTransportError returns a detail classified by the status code,
// use zero status when no response was received.
func NewTransportError(url, method string, statusCode int, message string, cause error) *ErrorDetail {
	errorType, suggestion := Classify(statusCode)
	return &ErrorDetail{
		URL:        url,
		Method:     method,
		StatusCode: statusCode,
		ErrorType:  errorType,
		Message:    message,
		Suggestion: suggestion,
		Kind:       KindTransport,
		cause:      cause,
	}
}

// NewResponseError returns a detail for a response with unexpected structure.
func NewResponseError(url, method string, statusCode int, message string) *ErrorDetail {
	return &ErrorDetail{
		URL:        url,
		Method:     method,
		StatusCode: statusCode,
		ErrorType:  ErrorTypeResponse,
		Message:    message,
		Suggestion: SuggestionResponse,
		Kind:       KindResponse,
		cause:      errors.Mark(errors.New(message), ErrResponseShape),
	}
}

// NewProcessingError returns a detail for a failed batch worker.
func NewProcessingError(message string, cause error) *ErrorDetail {
	return &ErrorDetail{
		ErrorType:  ErrorTypeProcessing,
		Message:    message,
		Suggestion: SuggestionProcessing,
		Kind:       KindProcessing,
		cause:      cause,
	}
}

// StatusCoder is implemented by transport errors carrying a HTTP status.
type StatusCoder interface {
	HTTPStatusCode() int
}

// Describe converts err into ErrorDetail for the endpoint.
// A detail already present in the chain is returned as is.
func Describe(err error, url, method string) *ErrorDetail {
	if err == nil {
		return nil
	}

	var detail *ErrorDetail
	if errors.As(err, &detail) {
		return detail
	}

	mk := func(kind Kind, errorType, suggestion string) *ErrorDetail {
		return &ErrorDetail{
			URL:        url,
			Method:     method,
			ErrorType:  errorType,
			Message:    err.Error(),
			Suggestion: suggestion,
			Kind:       kind,
			cause:      err,
		}
	}

	switch {
	case errors.Is(err, ErrImageNotFound):
		return mk(KindValidation, ErrorTypeValidation, SuggestionValidation)
	case errors.Is(err, ErrImageEncoding):
		return mk(KindEncoding, ErrorTypeEncoding, SuggestionEncoding)
	case errors.Is(err, ErrResponseShape):
		return mk(KindResponse, ErrorTypeResponse, SuggestionResponse)
	}

	var sc StatusCoder
	if errors.As(err, &sc) && sc.HTTPStatusCode() > 0 {
		return NewTransportError(url, method, sc.HTTPStatusCode(), err.Error(), err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.As(err, &netErr) {
		return NewTransportError(url, method, 0, err.Error(), err)
	}

	return mk(KindUnexpected, ErrorTypeUnexpected, SuggestionUnexpected)
}

// IsConfigurationError returns true if err is a configuration fault.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// ConfigError returns a configuration fault with the message.
func ConfigError(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}
