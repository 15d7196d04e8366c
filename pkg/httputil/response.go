// Package httputil provides HTTP handler utilities for consistent response
// envelopes, JSON decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"
	"time"
)

// Envelope is the response body shape shared by every API endpoint:
// {data, message, statusCode, timestamp, path}. Error responses carry a
// null data field.
type Envelope struct {
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Timestamp  string      `json:"timestamp"`
	Path       string      `json:"path"`
}

// WriteEnvelope writes a full response envelope with the given status code
func WriteEnvelope(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(Envelope{
		Data:       data,
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       r.URL.Path,
	})
}

// WriteSuccess writes a 200 envelope with JSON data
func WriteSuccess(w http.ResponseWriter, r *http.Request, message string, data interface{}) error {
	return WriteEnvelope(w, r, http.StatusOK, message, data)
}

// WriteCreated writes a 201 envelope with JSON data
func WriteCreated(w http.ResponseWriter, r *http.Request, message string, data interface{}) error {
	return WriteEnvelope(w, r, http.StatusCreated, message, data)
}

// WriteAPIError writes an error envelope (null data) with the given status
func WriteAPIError(w http.ResponseWriter, r *http.Request, status int, message string) {
	WriteEnvelope(w, r, status, message, nil) //nolint:errcheck
}

// WriteBadRequest writes a 400 error envelope
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteAPIError(w, r, http.StatusBadRequest, message)
}

// WriteNotFound writes a 404 error envelope
func WriteNotFound(w http.ResponseWriter, r *http.Request, message string) {
	WriteAPIError(w, r, http.StatusNotFound, message)
}

// WriteInternalError writes a 500 error envelope with an opaque message.
// The underlying error is never exposed to the client; log it server-side.
func WriteInternalError(w http.ResponseWriter, r *http.Request) {
	WriteAPIError(w, r, http.StatusInternalServerError, "Internal Server Error")
}

// WriteMessage writes a bare {"message": ...} body, the shape the auth gate
// uses for 401 rejections.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"message": message,
	})
}

// WriteErrorField writes a bare {"error": ...} body, the shape the auth gate
// uses for unexpected 500s.
func WriteErrorField(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
