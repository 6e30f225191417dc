package handler

import (
	"encoding/json"
	"net/http"

	"github.com/voiced-app/voiced/internal/api/response"
	"github.com/voiced-app/voiced/internal/domain"
)

// PromptHandler serves the system prompt override endpoints
type PromptHandler struct {
	prompts domain.PromptRepository
}

// NewPromptHandler creates a new prompt handler
func NewPromptHandler(prompts domain.PromptRepository) *PromptHandler {
	return &PromptHandler{prompts: prompts}
}

// Get returns the effective base system prompt
func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"prompt": h.prompts.Get(r.Context())})
}

type setPromptRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// Set stores a custom system prompt override
func (h *PromptHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, "prompt is required")
		return
	}

	if err := h.prompts.Set(r.Context(), req.Prompt); err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"prompt": req.Prompt})
}

// Reset removes the override, restoring the default prompt
func (h *PromptHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.prompts.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"prompt": h.prompts.Get(r.Context())})
}
