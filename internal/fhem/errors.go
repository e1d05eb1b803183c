package fhem

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/muurk/psufhem/internal/urls"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the server refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeHTTP indicates a non-success HTTP status
	ErrTypeHTTP
	// ErrTypeParse indicates the status reply was not valid JSON
	ErrTypeParse
	// ErrTypeMalformedStatus indicates the status document lacks the reading path
	ErrTypeMalformedStatus
	// ErrTypeUnknownReading indicates a reading value that is neither on, off nor transitional
	ErrTypeUnknownReading
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeMalformedStatus:
		return "Malformed Status Document"
	case ErrTypeUnknownReading:
		return "Unknown Reading"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Label returns a short lowercase identifier suitable for metric labels.
func (et ErrorType) Label() string {
	switch et {
	case ErrTypeNetwork:
		return "network"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeConnectionRefused:
		return "connection_refused"
	case ErrTypeDNS:
		return "dns"
	case ErrTypeHTTP:
		return "http"
	case ErrTypeParse:
		return "parse"
	case ErrTypeMalformedStatus:
		return "malformed_status"
	case ErrTypeUnknownReading:
		return "unknown_reading"
	default:
		return "unknown"
	}
}

var (
	// ErrMalformedStatusDocument matches errors for status documents that
	// lack Results[0].Readings[reading].Value.
	ErrMalformedStatusDocument = errors.New("malformed status document")

	// ErrUnknownReading matches errors for reading values that are neither
	// the on value, the off value nor a set_ transition.
	ErrUnknownReading = errors.New("unknown status reading")
)

// Error represents a failed exchange with the FHEM server
type Error struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Address    string    // FHEM address (for context)
	Err        error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the package sentinels by type.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrMalformedStatusDocument:
		return e.Type == ErrTypeMalformedStatus
	case ErrUnknownReading:
		return e.Type == ErrTypeUnknownReading
	}
	return false
}

// ClassifyNetworkError analyzes a transport error and returns a more specific error type
func ClassifyNetworkError(err error, address string) *Error {
	if err == nil {
		return nil
	}

	// url.Error wraps everything http.Client returns
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		if classified := classifyCause(urlErr.Err, address); classified != nil {
			classified.Err = err
			return classified
		}
	}

	if classified := classifyCause(err, address); classified != nil {
		return classified
	}

	return &Error{
		Type:    ErrTypeNetwork,
		Message: "network error occurred",
		Address: address,
		Err:     err,
	}
}

func classifyCause(err error, address string) *Error {
	if os.IsTimeout(err) {
		return &Error{Type: ErrTypeTimeout, Message: "request timed out", Address: address, Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:    ErrTypeDNS,
			Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Address: address,
			Err:     err,
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Type: ErrTypeConnectionRefused, Message: "server refused connection", Address: address, Err: err}
	}
	if errors.Is(err, syscall.EHOSTUNREACH) {
		return &Error{Type: ErrTypeNetwork, Message: "host unreachable", Address: address, Err: err}
	}
	if errors.Is(err, syscall.ENETUNREACH) {
		return &Error{Type: ErrTypeNetwork, Message: "network unreachable", Address: address, Err: err}
	}

	return nil
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, message string) *Error {
	return &Error{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *Error {
	return &Error{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

func newMalformedStatusError(message string) *Error {
	return &Error{Type: ErrTypeMalformedStatus, Message: message}
}

func newUnknownReadingError(reading, value string) *Error {
	return &Error{
		Type:    ErrTypeUnknownReading,
		Message: fmt.Sprintf("reading %q has unrecognized value %q", reading, value),
	}
}

func typeOf(err error) (ErrorType, bool) {
	var fhemErr *Error
	if errors.As(err, &fhemErr) {
		return fhemErr.Type, true
	}
	return 0, false
}

// IsNetworkError checks if an error is a transport error (including timeout, connection refused and DNS)
func IsNetworkError(err error) bool {
	t, ok := typeOf(err)
	return ok && (t == ErrTypeNetwork || t == ErrTypeTimeout || t == ErrTypeConnectionRefused || t == ErrTypeDNS)
}

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeHTTP
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeParse
}

// Hint returns operator-facing troubleshooting advice for an error
func Hint(err error) string {
	var fhemErr *Error
	if !errors.As(err, &fhemErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch fhemErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"FHEM did not respond in time.",
			"Troubleshooting:",
			"  • Check that the FHEM server is running",
			"  • Verify the address includes the FHEMWEB port (usually 8083)",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The FHEM server refused the connection.",
			"Troubleshooting:",
			"  • Verify the FHEMWEB port in the address",
			"  • Check that the FHEMWEB instance is defined and listening on this interface",
			"  • See " + urls.FHEMWEB,
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the FHEM hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead of the hostname",
			"  • Try 'psufhem scan' to find FHEM on the local network",
		}, "\n")

	case ErrTypeNetwork:
		return strings.Join([]string{
			"Network communication with FHEM failed.",
			"Troubleshooting:",
			"  • Check your network connection",
			"  • If FHEM uses https with a self-signed certificate, set verify_tls to false",
		}, "\n")

	case ErrTypeHTTP:
		if fhemErr.StatusCode == 400 {
			return strings.Join([]string{
				"FHEM rejected the command (HTTP 400).",
				"The csrf token was refreshed once and the command was still rejected.",
				"  • Check the csrfToken attribute of the FHEMWEB instance",
				"  • See " + urls.CsrfToken,
			}, "\n")
		}
		if fhemErr.StatusCode == 401 {
			return "FHEM requires authentication, which is not supported. Allow the client on this FHEMWEB instance."
		}
		return fmt.Sprintf("FHEM returned HTTP error %d. Check the device name and command.", fhemErr.StatusCode)

	case ErrTypeParse, ErrTypeMalformedStatus:
		return strings.Join([]string{
			"The jsonlist2 reply did not contain the expected reading.",
			"Troubleshooting:",
			"  • Check that device_name matches the FHEM device",
			"  • Check that reading names a reading of that device",
			"  • See " + urls.Jsonlist2,
		}, "\n")

	case ErrTypeUnknownReading:
		return "The reading value matches neither set_on nor set_off. Adjust set_on/set_off to the values the device reports."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	var fhemErr *Error
	if !errors.As(err, &fhemErr) {
		return err.Error()
	}

	switch fhemErr.Type {
	case ErrTypeTimeout:
		return "FHEM not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "FHEM refused connection"
	case ErrTypeDNS:
		return "Cannot resolve FHEM hostname"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeHTTP:
		return fmt.Sprintf("FHEM error (HTTP %d)", fhemErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse FHEM response"
	case ErrTypeMalformedStatus:
		return "Reading not found in FHEM status"
	case ErrTypeUnknownReading:
		return fhemErr.Message
	default:
		return fhemErr.Message
	}
}
