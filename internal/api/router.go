package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"github.com/voiced-app/voiced/internal/api/handler"
	customMiddleware "github.com/voiced-app/voiced/internal/api/middleware"
	"github.com/voiced-app/voiced/internal/config"
	"github.com/voiced-app/voiced/internal/insight"
	"github.com/voiced-app/voiced/internal/llm"
	"github.com/voiced-app/voiced/internal/llm/anthropic"
	"github.com/voiced-app/voiced/internal/llm/gemini"
	"github.com/voiced-app/voiced/internal/llm/ollama"
	"github.com/voiced-app/voiced/internal/llm/openai"
	"github.com/voiced-app/voiced/internal/memory"
	"github.com/voiced-app/voiced/internal/session"
	"github.com/voiced-app/voiced/internal/storage"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, kv storage.KV) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize stores
	conversations := storage.NewConversationStore(kv, cfg.Storage.ConversationsKey)
	workingMemory := memory.NewStore(kv, cfg.Storage.MemoryKey, cfg.Storage.UserID)
	prompts := storage.NewPromptStore(kv, cfg.Storage.PromptKey, llm.DefaultSystemPrompt)

	// Initialize LLM router with providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.OpenAI.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI))
	}
	if cfg.LLM.Anthropic.APIKey != "" {
		llmRouter.RegisterProvider(anthropic.NewProvider(cfg.LLM.Anthropic))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	}
	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		llmRouter.RegisterProvider(ollama.NewProvider(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel))
	}

	// Initialize services
	insights := insight.NewService(llmRouter, cfg.Insight)
	controller := session.NewController(conversations, workingMemory, prompts, insights, llmRouter, cfg.Chat)

	// Initialize handlers
	conversationHandler := handler.NewConversationHandler(controller)
	memoryHandler := handler.NewMemoryHandler(workingMemory)
	promptHandler := handler.NewPromptHandler(prompts)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		if pinger, ok := kv.(handler.Pinger); ok {
			r.Get("/ready", handler.ReadyCheck(pinger))
		}

		// LLM providers
		r.Get("/llm-providers", handler.ListLLMProviders(llmRouter))

		// Conversation routes
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Post("/", conversationHandler.Create)
			r.Delete("/", conversationHandler.ClearAll)

			r.Route("/{conversationID}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Delete("/", conversationHandler.Delete)
				r.Get("/state", conversationHandler.State)
				r.Post("/messages", conversationHandler.SendMessage)
				r.Post("/done", conversationHandler.Done)
				r.Get("/sentiment", conversationHandler.Sentiment)
				r.Get("/export", conversationHandler.Export)
			})
		})

		// Working memory routes
		r.Route("/memory", func(r chi.Router) {
			r.Get("/", memoryHandler.Get)
			r.Delete("/", memoryHandler.Clear)
		})

		// System prompt routes
		r.Route("/prompt", func(r chi.Router) {
			r.Get("/", promptHandler.Get)
			r.Put("/", promptHandler.Set)
			r.Delete("/", promptHandler.Reset)
		})
	})

	return r
}
