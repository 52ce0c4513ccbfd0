package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/NicoEspin/chatbot-portfolio/config"
	apperrors "github.com/NicoEspin/chatbot-portfolio/errors"
	"github.com/NicoEspin/chatbot-portfolio/llmclient"
	"github.com/NicoEspin/chatbot-portfolio/prompts"
	"github.com/NicoEspin/chatbot-portfolio/rag"
	"github.com/NicoEspin/chatbot-portfolio/web/services"
	"github.com/NicoEspin/chatbot-portfolio/web/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChatHandler struct {
	cfg       *config.Config
	retriever *rag.Retriever
	llm       *llmclient.Client
	relay     *services.RelayService
	logger    *zap.Logger
}

func NewChatHandler(cfg *config.Config, retriever *rag.Retriever, llm *llmclient.Client, relay *services.RelayService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		cfg:       cfg,
		retriever: retriever,
		llm:       llm,
		relay:     relay,
		logger:    logger,
	}
}

// bindMessages decodes the request body, insisting that "messages" is a JSON
// array of message objects. Violations come back wrapped on ErrInvalidInput.
func (h *ChatHandler) bindMessages(c *gin.Context) ([]types.ChatMessage, error) {
	var raw struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := c.ShouldBindJSON(&raw); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInvalidInput, "decode request body")
	}

	var messages []types.ChatMessage
	if raw.Messages == nil || json.Unmarshal(raw.Messages, &messages) != nil || messages == nil {
		return nil, apperrors.WrapError(apperrors.ErrInvalidInput, "messages field")
	}
	return messages, nil
}

// rejectBadRequest writes the client-facing response for a bind failure.
func (h *ChatHandler) rejectBadRequest(c *gin.Context, err error) {
	if apperrors.IsInvalidInput(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messages must be an array"})
		return
	}
	h.logger.Error("Unexpected bind failure", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
}

// buildSystemMessage runs retrieval and prompt assembly for the most recent
// user message.
func (h *ChatHandler) buildSystemMessage(messages []types.ChatMessage) types.ChatMessage {
	lastUser := types.LastUserContent(messages)
	lang := rag.DetectLanguage(lastUser)
	docs := h.retriever.Retrieve(lastUser, h.cfg.RetrieveK)

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	h.logger.Info("Retrieved context",
		zap.String("query", llmclient.Truncate(lastUser, 120)),
		zap.String("lang", string(lang)),
		zap.Strings("doc_ids", ids))

	_, system := prompts.Assemble(docs, lang)
	return system
}

// Stream handles POST /api/chat/stream: retrieval, prompt assembly, then the
// SSE relay of the upstream completion.
func (h *ChatHandler) Stream(c *gin.Context) {
	messages, err := h.bindMessages(c)
	if err != nil {
		h.rejectBadRequest(c, err)
		return
	}

	system := h.buildSystemMessage(messages)
	full := append([]types.ChatMessage{system}, messages...)

	h.relay.Relay(c.Request.Context(), c.Writer, full)
}

// Send handles POST /api/chat, the non-streaming variant: one upstream call,
// one JSON reply.
func (h *ChatHandler) Send(c *gin.Context) {
	messages, err := h.bindMessages(c)
	if err != nil {
		h.rejectBadRequest(c, err)
		return
	}

	system := h.buildSystemMessage(messages)
	full := append([]types.ChatMessage{system}, messages...)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ChatRequestTimeout)
	defer cancel()

	reply, err := h.llm.Chat(ctx, full)
	if err != nil {
		h.logger.Error("Chat completion failed", zap.Error(err))
		if apperrors.IsUpstream(err) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream_error"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// Health handles GET /health.
func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
