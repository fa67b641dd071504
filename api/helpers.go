package api

import (
	"encoding/json"
	"net/http"
)

// Success sends a JSON response with the given status.
func Success(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error sends a standardized error response. The message is repeated in
// msg so clients that only read msg still see it.
func Error(w http.ResponseWriter, statusCode int, message string) {
	Success(w, statusCode, ErrorResponse{Error: message, Code: CodeError, Msg: message})
}

// Code returns a pointer to c for DeleteResponse.Code.
func Code(c int) *int { return &c }
