package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/voiced-app/voiced/internal/api/response"
	"github.com/voiced-app/voiced/internal/domain"
	"github.com/voiced-app/voiced/internal/export"
	"github.com/voiced-app/voiced/internal/session"
)

var validate = validator.New()

// ConversationHandler serves the conversation lifecycle endpoints
type ConversationHandler struct {
	controller *session.Controller
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(controller *session.Controller) *ConversationHandler {
	return &ConversationHandler{controller: controller}
}

// List returns all conversations, most recent first
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.controller.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if conversations == nil {
		conversations = []domain.Conversation{}
	}
	response.OK(w, conversations)
}

// Create starts a new conversation seeded with the greeting
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	conversation, err := h.controller.NewConversation(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, conversation)
}

// Get returns one conversation
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conversation, err := h.controller.Get(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, conversation)
}

// Delete removes one conversation
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Delete(r.Context(), chi.URLParam(r, "conversationID")); err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"message": "conversation deleted"})
}

// ClearAll removes every conversation together with working memory
func (h *ConversationHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.ClearAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	response.NoContent(w)
}

// State reports whether the conversation is active, busy or closed
func (h *ConversationHandler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.controller.State(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"state": string(state)})
}

type sendMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// SendMessage appends a user turn and streams the assistant reply as plain
// text chunks. Errors before the first fragment are returned as JSON; once
// streaming has begun the connection is simply closed.
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, "message is required")
		return
	}

	flusher, canFlush := w.(http.Flusher)
	started := false
	begin := func() {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		started = true
	}

	_, err := h.controller.SendMessage(r.Context(), chi.URLParam(r, "conversationID"), req.Message,
		func(fragment string) error {
			if !started {
				begin()
			}
			if _, err := io.WriteString(w, fragment); err != nil {
				return err
			}
			if canFlush {
				flusher.Flush()
			}
			return nil
		})
	if err != nil {
		if !started {
			writeError(w, err)
		}
		return
	}
	if !started {
		begin()
	}
}

type doneRequest struct {
	Style string `json:"style"`
}

// Done closes the conversation and returns it with its end screen attached
func (h *ConversationHandler) Done(w http.ResponseWriter, r *http.Request) {
	// Body is optional
	var req doneRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	conversation, err := h.controller.Done(r.Context(), chi.URLParam(r, "conversationID"), req.Style)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, conversation)
}

// Sentiment classifies the conversation's emotional tone. Conversations too
// short to classify return a null sentiment.
func (h *ConversationHandler) Sentiment(w http.ResponseWriter, r *http.Request) {
	sentiment, err := h.controller.Sentiment(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, map[string]any{"sentiment": sentiment})
}

// Export renders the conversation for download in the requested format
func (h *ConversationHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	id := chi.URLParam(r, "conversationID")
	conversation, err := h.controller.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := export.Render(conversation, format)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "conversation-"+id+"."+format.Extension()))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
