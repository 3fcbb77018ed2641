// errors.go
// ---------
// The error taxonomy as a single tagged-union-shaped type, per spec.md's
// design note ("tagged errors... a single sum type"). Grounded on
// codex-api/src/error.rs's ApiError enum; Kind plays the role of the
// enum discriminant and the struct carries whichever fields a given Kind
// needs, leaving the rest zero.
package aoaiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Kind discriminates the error taxonomy. Which of the struct's payload
// fields are meaningful depends on the Kind.
type Kind int

const (
	KindHTTPStatus Kind = iota
	KindNetwork
	KindTimeout
	KindStream
	KindContextWindowExceeded
	KindQuotaExceeded
	KindUsageNotIncluded
	KindPreviousResponseChainBroken
	KindRetryable
	KindRateLimit
	KindInvalidRequest
	KindRetryLimit
	KindAzure
)

// Error is the module's single error type. Status/Headers/Body are
// populated for KindHTTPStatus and KindAzure; Message carries the
// human-readable detail for every kind; Cause chains the underlying
// transport error where one exists.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Headers http.Header
	Body    string
	Cause   error

	// Azure-specific detail, populated for KindAzure.
	AzureCode      string
	AzureRequestID string
	AzureErrorCode string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("http status %d: %s", e.Status, e.Message)
	case KindAzure:
		if e.AzureErrorCode != "" {
			return fmt.Sprintf("azure error %s [%s] (request %s): %s", e.AzureCode, e.AzureErrorCode, e.AzureRequestID, e.Message)
		}
		return fmt.Sprintf("azure error %s (request %s): %s", e.AzureCode, e.AzureRequestID, e.Message)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// errorEnvelope is the `{"error": {...}}` shape the Responses API returns
// on a 400, used both for chain-break detection and for surfacing a
// readable message.
type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Param   string `json:"param"`
		Message string `json:"message"`
	} `json:"error"`
}

// classifyBadRequestBody inspects a 400 response body and returns a
// KindPreviousResponseChainBroken error when the body matches one of the
// known chain-break shapes, or nil otherwise (so the caller falls back to
// a plain KindHTTPStatus).
//
// Ported predicate-for-predicate from
// codex-api/src/error.rs::from_bad_request_body: the message is matched
// case-insensitively against a fixed set of phrases tied to specific
// params, since the API doesn't give this condition its own error type.
func classifyBadRequestBody(body string) *Error {
	var env errorEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil
	}
	if env.Error.Type != "invalid_request_error" {
		return nil
	}

	param := env.Error.Param
	msg := strings.ToLower(env.Error.Message)

	isChainBreak := param == "previous_response_id" ||
		(strings.Contains(msg, "previous") && strings.Contains(msg, "not found")) ||
		(strings.HasPrefix(param, "input") && strings.Contains(msg, "not found")) ||
		(param == "input" && strings.Contains(msg, "duplicate item")) ||
		(param == "input" && strings.Contains(msg, "no tool output found")) ||
		(param == "input" && strings.Contains(msg, "output is missing"))

	if !isChainBreak {
		return nil
	}
	return &Error{Kind: KindPreviousResponseChainBroken, Message: env.Error.Message}
}

// classifyHTTPError builds the taxonomy error for a non-2xx HTTP
// response, preferring the chain-break classification when the body
// matches, otherwise falling back to a plain status error.
func classifyHTTPError(status int, headers http.Header, body string) *Error {
	if status == http.StatusBadRequest {
		if chainErr := classifyBadRequestBody(body); chainErr != nil {
			return chainErr
		}
	}
	return &Error{Kind: KindHTTPStatus, Status: status, Headers: headers, Body: body, Message: http.StatusText(status)}
}
