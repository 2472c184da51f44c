package handlers

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope shared by all mutating endpoints. Error
// responses reuse it with Success false; messages stay generic and
// never leak which credential field was wrong.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}
