package handler

import (
	"net/http"

	"github.com/voiced-app/voiced/internal/api/response"
	"github.com/voiced-app/voiced/internal/domain"
)

// MemoryHandler serves the working-memory endpoints
type MemoryHandler struct {
	memory domain.MemoryRepository
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(memory domain.MemoryRepository) *MemoryHandler {
	return &MemoryHandler{memory: memory}
}

// Get returns current working memory
func (h *MemoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.memory.Read(r.Context()))
}

// Clear removes all working memory. Conversations are untouched.
func (h *MemoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.memory.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	response.NoContent(w)
}
