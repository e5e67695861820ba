package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/logging"
)

// envelope is the uniform response body shared by every endpoint. Success is
// derived from the status code; failures carry an errors array and no data.
type envelope struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data,omitempty"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors,omitempty"`
}

func respond(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	writeEnvelope(ctx, w, envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeEnvelope(ctx, w, envelope{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     []string{message},
	})
}

func writeEnvelope(ctx context.Context, w http.ResponseWriter, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.StatusCode)

	if err := json.NewEncoder(w).Encode(env); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", env.StatusCode, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case env.StatusCode >= http.StatusInternalServerError:
		logger.Error("request failed", "status", env.StatusCode, "message", env.Message)
	case env.StatusCode >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", env.StatusCode, "message", env.Message)
	}
}

// validID reports whether the supplied path or body parameter is a well-formed
// record identifier.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
