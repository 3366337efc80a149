package server

import (
	"encoding/json"
	"net/http"
)

// envelope wraps every device API response.
type envelope struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

func respond(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

func respondError(w http.ResponseWriter, status int, message string, data interface{}) {
	respond(w, status, data, message)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
