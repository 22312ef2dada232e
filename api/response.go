package api

import (
	"errors"
	"log/slog"
	"net/http"

	"chili-cookoff-backend/service"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse acknowledges an operation without a payload.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// writeError maps service errors to HTTP responses.
func writeError(ctx *gin.Context, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSubmission):
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrEntryNotFound):
		ctx.JSON(http.StatusNotFound, ErrorResponse{Error: "Entry not found"})
	case errors.Is(err, service.ErrVoteNotFound):
		ctx.JSON(http.StatusNotFound, ErrorResponse{Error: "Vote not found"})
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidWebhook):
		ctx.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
	case errors.Is(err, service.ErrValidationUnavailable):
		ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Vote checks are temporarily unavailable, please try again"})
	case errors.Is(err, service.ErrSubmitFailed):
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: service.ErrSubmitFailed.Error()})
	default:
		log.Error("request failed", "path", ctx.FullPath(), "error", err)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}
