package generator

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Kind classifies where a generation failure came from.
type Kind int

const (
	// KindTransport means no response was received.
	KindTransport Kind = iota + 1
	// KindServer means the server answered with an error field.
	KindServer
	// KindStatus means a non-2xx answer without a usable error field.
	KindStatus
	// KindResponse means a 2xx answer without image_path.
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindStatus:
		return "status"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// MissingImagePathMessage is shown when a 2xx response has no image_path.
const MissingImagePathMessage = "Server didn't return image path"

// Error is returned by Client for every failed call. Error() is the text
// shown to the user.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}

// transportError keeps the innermost message of a failed round trip, so the
// user sees "connection refused" instead of the full request line.
func transportError(err error) *Error {
	msg := err.Error()
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		msg = ue.Err.Error()
	}
	return &Error{Kind: KindTransport, Message: msg, Err: err}
}

// statusText returns the reason phrase of an HTTP response.
func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); text != "" {
		return text
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return "HTTP " + code
}

// serverMessage extracts an application error from a response body. The
// service reports failures as {"error": "..."}; framework validation
// failures arrive as {"detail": "..."} or {"detail": [{"msg": "..."}]}.
func serverMessage(body []byte) string {
	var payload struct {
		Error  json.RawMessage `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if msg := rawText(payload.Error); msg != "" {
		return msg
	}
	return rawText(payload.Detail)
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}

	var obj struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Msg
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &list) == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				parts = append(parts, item.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// IsTransient reports whether err is likely to go away on retry: no response
// at all, or a gateway/overload status from a server that is still starting.
func IsTransient(err error) bool {
	var ge *Error
	if !errors.As(err, &ge) {
		return false
	}
	switch ge.Kind {
	case KindTransport:
		return true
	case KindStatus, KindServer:
		switch ge.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// Answered reports whether err came with a successful HTTP response, so the
// request itself completed: a 2xx carrying an error field or no image_path.
func Answered(err error) bool {
	var ge *Error
	if !errors.As(err, &ge) {
		return false
	}
	if ge.Kind == KindResponse {
		return true
	}
	return ge.Kind == KindServer && ge.StatusCode >= 200 && ge.StatusCode <= 299
}
