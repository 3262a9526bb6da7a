// Package httpx writes the JSON envelopes shared by every endpoint.
// Errors always carry a stable machine-readable code in "error", with
// optional structured details; clients branch on the code, never on
// prose.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the error envelope: a code plus optional details.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func Error(w http.ResponseWriter, status int, code string, details any) {
	JSON(w, status, ErrorResponse{Error: code, Details: details})
}

// ValidationFailed writes the 400 envelope for a rejected request. The
// reason code names the violated rule; the message is human-readable.
func ValidationFailed(w http.ResponseWriter, reason, message string) {
	Error(w, http.StatusBadRequest, "validation_failed", map[string]string{
		"reason":  reason,
		"message": message,
	})
}

func InvalidJSON(w http.ResponseWriter) {
	Error(w, http.StatusBadRequest, "invalid_json", nil)
}

func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "not_found", nil)
}

func Internal(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "internal_error", nil)
}

func MethodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	Error(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
