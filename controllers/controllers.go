package controllers

import (
	"encoding/json"
	"net/http"
)

// writeJSON renders a success payload. Error payloads go through
// apperrors.Write so every endpoint shares one error shape.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
