package httpx

import (
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON writes a JSON response with the given status code and data.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// ErrorResponse carries a short machine-readable reason plus optional
// human-readable detail. No internal state or stack traces go over the wire.
type ErrorResponse struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// RespondError writes an error response with the given status code and
// reason string.
func RespondError(w http.ResponseWriter, status int, reason, message string) {
	RespondJSON(w, status, ErrorResponse{
		Reason:  reason,
		Message: message,
	})
}
