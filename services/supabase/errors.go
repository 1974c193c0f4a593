package supabase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Error is a failure reported by the remote service. Status is the HTTP
// status, Code the service-specific error code when one is present.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// codeNoRows is returned by the table API when a request for exactly one
// object matched no rows.
const codeNoRows = "PGRST116"

// IsNotFound reports whether err is the remote service saying that a
// requested single object does not exist.
func IsNotFound(err error) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Code == codeNoRows || e.Status == http.StatusNotFound
}

// IsDuplicate reports whether err indicates that the resource being created
// already exists, e.g. signing up an email that is already registered.
func IsDuplicate(err error) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	msg := strings.ToLower(e.Message)
	return e.Status == http.StatusConflict ||
		strings.Contains(msg, "already registered") ||
		strings.Contains(msg, "already exists")
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		cause, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = cause.Unwrap()
	}
	return false
}

// parseErrorResponse builds an *Error from a non-2xx response. The auth,
// table and storage endpoints each use a slightly different envelope, so
// every known message field is tried before falling back to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	e := &Error{Status: resp.StatusCode}

	var envelope struct {
		Message          string      `json:"message"`
		Msg              string      `json:"msg"`
		Code             interface{} `json:"code"`
		ErrorField       string      `json:"error"`
		ErrorCode        string      `json:"error_code"`
		ErrorDescription string      `json:"error_description"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch {
		case envelope.Message != "":
			e.Message = envelope.Message
		case envelope.Msg != "":
			e.Message = envelope.Msg
		case envelope.ErrorDescription != "":
			e.Message = envelope.ErrorDescription
		case envelope.ErrorField != "":
			e.Message = envelope.ErrorField
		}
		switch code := envelope.Code.(type) {
		case string:
			e.Code = code
		case float64:
			e.Code = fmt.Sprintf("%d", int(code))
		}
		if e.Code == "" {
			e.Code = envelope.ErrorCode
		}
	}

	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}
