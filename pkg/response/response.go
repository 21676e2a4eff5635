package response

import "net/http"

// Machine-readable error codes. Clients branch on these rather than on the message text.
const (
	CodeValidation        = "validation_error"
	CodeUnauthenticated   = "unauthenticated"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeInvalidTransition = "invalid_transition"
	CodeConflict          = "conflict"
	CodeUnavailable       = "unavailable"
	CodeInternal          = "internal_error"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Code       string      `json:"code,omitempty"`
}

func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error builds an error envelope whose code is derived from the HTTP status.
func Error(statusCode int, err string) Response {
	return ErrorWithCode(statusCode, CodeForStatus(statusCode), err)
}

// ErrorWithCode is Error with an explicit code, for statuses shared by several failure kinds.
func ErrorWithCode(statusCode int, code, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
		Code:       code,
	}
}

// CodeForStatus picks the default code for a status. 409 defaults to conflict.
func CodeForStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	default:
		return CodeInternal
	}
}
