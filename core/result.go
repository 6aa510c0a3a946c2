package core

import "net/http"

// Kind tags the outcome of an operation.
type Kind string

const (
	GeneralSuccess Kind = "GeneralSuccess"
	PostSuccess    Kind = "PostSuccess"
	PendingSuccess Kind = "PendingSuccess"

	InvalidRecord    Kind = "InvalidRecord"
	MalformedContent Kind = "MalformedContent"
	InvalidFilter    Kind = "InvalidFilter"

	MissingToken                    Kind = "MissingToken"
	InvalidToken                    Kind = "InvalidToken"
	UnauthorizedToken               Kind = "UnauthorizedToken"
	PermissionDenied                Kind = "PermissionDenied"
	ServerConnectionError           Kind = "ServerConnectionError"
	MalformedAuthenticationResponse Kind = "MalformedAuthenticationResponse"

	NotFound Kind = "NotFound"

	ConnectionFailure Kind = "ConnectionFailure"
	WriteConflict     Kind = "WriteConflict"
	Timeout           Kind = "Timeout"
	StorageFailure    Kind = "StorageFailure"
)

type kindInfo struct {
	status  int
	message string
}

var kinds = map[Kind]kindInfo{
	GeneralSuccess: {http.StatusOK, "request completed"},
	PostSuccess:    {http.StatusCreated, "record created"},
	PendingSuccess: {http.StatusAccepted, "record submitted for approval"},

	InvalidRecord:    {http.StatusBadRequest, "record is invalid"},
	MalformedContent: {http.StatusBadRequest, "request content is malformed"},
	InvalidFilter:    {http.StatusBadRequest, "filter is invalid"},

	MissingToken:                    {http.StatusUnauthorized, "token is missing"},
	InvalidToken:                    {http.StatusUnauthorized, "token is malformed"},
	UnauthorizedToken:               {http.StatusUnauthorized, "token was not accepted"},
	PermissionDenied:                {http.StatusForbidden, "permission denied"},
	ServerConnectionError:           {http.StatusServiceUnavailable, "authentication server is unreachable"},
	MalformedAuthenticationResponse: {http.StatusBadGateway, "authentication server sent a malformed response"},

	NotFound: {http.StatusNotFound, "record not found"},

	ConnectionFailure: {http.StatusServiceUnavailable, "database is unreachable"},
	WriteConflict:     {http.StatusConflict, "write conflict"},
	Timeout:           {http.StatusGatewayTimeout, "database timed out"},
	StorageFailure:    {http.StatusInternalServerError, "database error"},
}

// Status returns the HTTP status code of the kind. Unknown kinds yield 500.
func (k Kind) Status() int {
	if info, ok := kinds[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

func (k Kind) Success() bool {
	switch k {
	case GeneralSuccess, PostSuccess, PendingSuccess:
		return true
	}
	return false
}

// Message returns the default message of the kind.
func (k Kind) Message() string {
	return kinds[k].message
}

// Result is returned by every catalog and collection operation.
type Result struct {
	Success  bool
	Kind     Kind
	Message  string
	Data     interface{}
	Warnings []string // non-fatal notices like low inventory
}

// Ok returns a successful result.
func Ok(kind Kind, data interface{}) Result {
	return Result{
		Success: true,
		Kind:    kind,
		Message: kind.Message(),
		Data:    data,
	}
}

// Fail returns a failed result. An empty message is replaced by the default message of the kind.
func Fail(kind Kind, message string) Result {
	if message == "" {
		message = kind.Message()
	}
	return Result{
		Kind:    kind,
		Message: message,
	}
}

// Warn appends a warning and returns the result.
func (r Result) Warn(warning string) Result {
	r.Warnings = append(r.Warnings, warning)
	return r
}
