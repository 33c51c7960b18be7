// Package types holds the JSON envelopes shared by the HTTP surface and its
// clients. Every success body is {"data": ...} and every failure body is
// {"error": {code, message, details?}}.
package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a failure. Details is only populated for
// codes whose metadata allows exposing them.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewSuccess wraps a payload in the standard envelope.
func NewSuccess(data any) SuccessEnvelope {
	return SuccessEnvelope{Data: data}
}
