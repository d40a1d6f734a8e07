package httpapi

import (
	"encoding/json"
	"net/http"
)

// ErrorEnvelope is the uniform error body of the metering API. Code mirrors
// the structured service-error code so clients can branch without parsing
// Message; Details carries the failing entity or rule when one is known, and
// Meta carries transport context such as the request id.
type ErrorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details string            `json:"details,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Write sends the envelope with the given HTTP status.
func (e *ErrorEnvelope) Write(w http.ResponseWriter, status int) error {
	return WriteJSON(w, status, e)
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	env := ErrorEnvelope{Code: code, Message: message, Meta: meta}
	return env.Write(w, status)
}
