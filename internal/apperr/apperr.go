// Package apperr defines the error taxonomy surfaced by the REST API.
// Every error carries a machine code, a class name, an internal message, a
// user-facing message and an HTTP status, plus the stack captured where it
// was created.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Error codes shared with clients.
const (
	CodeInvalidToken     = "INVALID_TOKEN_ERR"
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeInvalidTarget    = "MESSAGES_INVALID_TARGET"
	CodeInvalidType      = "MESSAGES_INVALID_TYPE"
	CodeNotFound         = "NOT_FOUND"
	CodeAPIError         = "API_ERROR"
)

// Error class names.
const (
	NameInvalidToken    = "InvalidTokenError"
	NameUnauthenticated = "UnauthenticatedError"
	NameArgument        = "ArgumentError"
	NameNotFound        = "NotFoundError"
	NameRouteNotFound   = "RouteNotFoundError"
	NameRemote          = "RemoteError"
	NameInternal        = "Error"
)

// Error is a classified application error.
type Error struct {
	Code        string
	Name        string
	Message     string
	UserMessage string
	Status      int

	cause error
	stack error
}

func newError(code, name, message, userMessage string, status int, cause error) *Error {
	e := &Error{
		Code:        code,
		Name:        name,
		Message:     message,
		UserMessage: userMessage,
		Status:      status,
		cause:       cause,
	}
	e.stack = errors.New(message)
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Name, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Public returns the message shown to clients.
func (e *Error) Public() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// Stack returns the formatted frames recorded at construction time.
func (e *Error) Stack() []string {
	return StackOf(e.stack)
}

// Is matches on code and name so sentinel-style comparisons work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Name == e.Name
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// StackOf renders the innermost pkg/errors stack found in err's chain.
func StackOf(err error) []string {
	var tracer stackTracer
	for err != nil {
		if st, ok := err.(stackTracer); ok {
			tracer = st
		}
		err = errors.Unwrap(err)
	}
	if tracer == nil {
		return []string{}
	}
	frames := tracer.StackTrace()
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, fmt.Sprintf("%n (%s:%d)", f, f, f))
	}
	return out
}

// InvalidToken reports a malformed or unverifiable token.
func InvalidToken(cause error) *Error {
	return newError(CodeInvalidToken, NameInvalidToken, "Invalid token",
		"Your token is invalid - please check it and try again", http.StatusUnauthorized, cause)
}

// IncorrectToken reports a verified token that carries no user identity.
func IncorrectToken() *Error {
	return newError(CodeInvalidToken, NameUnauthenticated, "Missing token/user_id from token",
		"Incorrect token - please try a different one", http.StatusUnauthorized, nil)
}

// Unauthenticated reports a route that requires a user.
func Unauthenticated() *Error {
	return newError(CodeNotAuthenticated, NameUnauthenticated, "Not authenticated",
		"You are not authenticated", http.StatusUnauthorized, nil)
}

// Argument reports malformed caller input. code may be empty.
func Argument(code, message string) *Error {
	return newError(code, NameArgument, message, "", http.StatusBadRequest, nil)
}

// InvalidTarget is the ArgumentError for an unrecognised conversation kind.
func InvalidTarget(kind string) *Error {
	return Argument(CodeInvalidTarget, fmt.Sprintf("Invalid target %q", kind))
}

// InvalidType reports an unsupported message type.
func InvalidType(typ string) *Error {
	return Argument(CodeInvalidType, fmt.Sprintf("Invalid type %q", typ))
}

// NoChanges reports an update patch that changes nothing.
func NoChanges() *Error {
	return Argument("", "No valid data was supplied")
}

// NotFound reports a missing message.
func NotFound() *Error {
	return newError(CodeNotFound, NameNotFound, "Message not found", "", http.StatusNotFound, nil)
}

// RouteNotFound reports an unmatched route.
func RouteNotFound(path string) *Error {
	return newError(CodeNotFound, NameRouteNotFound, fmt.Sprintf("Route at %s was not found", path),
		"Route not found - please check your URL and try again", http.StatusNotFound, nil)
}

// Remote reports an error returned by the directory service itself.
func Remote(code, name, message string, status int) *Error {
	if name == "" {
		name = NameRemote
	}
	if status < 400 {
		status = http.StatusBadGateway
	}
	return newError(code, name, message, "", status, nil)
}

// Unavailable reports a transport failure talking to the directory service.
func Unavailable(cause error) *Error {
	return newError(CodeAPIError, NameRemote, "Failed to connect to the API",
		"", http.StatusBadGateway, cause)
}

// Internal wraps an unclassified failure; clients only see a generic message.
func Internal(cause error) *Error {
	return newError("", NameInternal, "Internal error", "Something went wrong",
		http.StatusInternalServerError, cause)
}

// From classifies any error, wrapping unknown ones as Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var classifier interface{ AppError() *Error }
	if errors.As(err, &classifier) {
		return classifier.AppError()
	}
	return Internal(err)
}
