package responsecode

import (
	"fmt"
	"strings"
)

// BadResponse prefixes every legacy plain-text error.
const BadResponse = "+NO+"

// Response is a code plus a detail message.
type Response struct {
	Code    Code
	Message string
}

// OK returns a successful response with an optional message.
func OK(message string) Response {
	return Response{Code: NoError, Message: message}
}

// New returns a response for code; an empty message falls back to the
// code's default message.
func New(code Code, message string) Response {
	if message == "" {
		message = code.Message()
	}
	return Response{Code: code, Message: message}
}

// Errorf formats the message of an error response.
func Errorf(code Code, format string, args ...any) Response {
	return Response{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsOK reports a NoError response.
func (r Response) IsOK() bool { return r.Code == NoError }

// Append adds a "; "-separated detail, used by sagas to record which steps
// completed or were undone.
func (r Response) Append(detail string) Response {
	if r.Message == "" {
		r.Message = detail
	} else {
		r.Message = r.Message + "; " + detail
	}
	return r
}

// Legacy renders the plain-text form: "+OK+ message" or
// "+NO+ <token> message".
func (r Response) Legacy() string {
	var parts []string
	if r.IsOK() {
		parts = append(parts, r.Code.Token())
	} else {
		parts = append(parts, BadResponse, r.Code.Token())
	}
	if r.Message != "" {
		parts = append(parts, r.Message)
	}
	return strings.Join(parts, " ")
}

func (r Response) String() string {
	if r.Message == "" {
		return r.Code.Name()
	}
	return r.Code.Name() + ": " + r.Message
}
