package handler

import (
	"errors"
	"net/http"

	"github.com/voiced-app/voiced/internal/api/response"
	"github.com/voiced-app/voiced/internal/domain"
)

// writeError maps domain errors onto HTTP statuses
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrConversationNotFound):
		response.NotFound(w, "conversation not found")
	case errors.Is(err, domain.ErrConversationEmpty):
		response.BadRequest(w, "conversation has no messages")
	case errors.Is(err, domain.ErrConversationClosed):
		response.Conflict(w, "conversation is already closed")
	case errors.Is(err, domain.ErrConversationBusy):
		response.Conflict(w, "conversation has a request in flight")
	case errors.Is(err, domain.ErrTransport), errors.Is(err, domain.ErrMalformedOutput):
		response.BadGateway(w, err.Error())
	default:
		response.InternalError(w, err.Error())
	}
}
