package handlers

import (
	"errors"
	"net/http"

	"appispot/middleware"
	"appispot/services/chat"

	"github.com/gin-gonic/gin"
)

// ChatHandler exposes the REST side of messaging; live delivery goes over the
// websocket endpoint.
type ChatHandler struct {
	Service chat.ChatService
}

func statusForChatError(err error) int {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, chat.ErrEmptyContent), errors.Is(err, chat.ErrSelfChat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ListChatsHandler handles GET /chat/chats.
func (h *ChatHandler) ListChatsHandler(c *gin.Context) {
	chats, err := h.Service.ListChats(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chats)
}

// CreateChatHandler handles POST /chat/chats. Creating a chat that already
// exists for the pair returns the existing one.
func (h *ChatHandler) CreateChatHandler(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	created, err := h.Service.CreateChat(c.Request.Context(), middleware.CallerID(c), req.UserID)
	if err != nil {
		c.JSON(statusForChatError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, created)
}

// ListMessagesHandler handles GET /chat/chats/:chatId/messages.
func (h *ChatHandler) ListMessagesHandler(c *gin.Context) {
	messages, err := h.Service.Messages(c.Request.Context(), middleware.CallerID(c), c.Param("chatId"))
	if err != nil {
		c.JSON(statusForChatError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, messages)
}

// SendMessageHandler handles POST /chat/chats/:chatId/messages, the REST
// fallback for clients without a live connection.
func (h *ChatHandler) SendMessageHandler(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	msg, err := h.Service.SendMessage(c.Request.Context(), middleware.CallerID(c), c.Param("chatId"), req.Content)
	if err != nil {
		c.JSON(statusForChatError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkReadHandler handles POST /chat/chats/:chatId/read.
func (h *ChatHandler) MarkReadHandler(c *gin.Context) {
	if err := h.Service.MarkRead(c.Request.Context(), middleware.CallerID(c), c.Param("chatId")); err != nil {
		c.JSON(statusForChatError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Messages marked read"})
}
