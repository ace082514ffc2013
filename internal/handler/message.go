package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"sealed-relay/internal/delivery"
	"sealed-relay/internal/middleware"
	"sealed-relay/internal/store"
)

type MessageHandler struct {
	Store    *store.Store
	Delivery *delivery.Orchestrator
}

type sendMessageBody struct {
	ConversationID string          `json:"conversationId" binding:"required"`
	Nonce          []byte          `json:"nonce" binding:"required"`
	Ciphertext     []byte          `json:"ciphertext" binding:"required"`
	AssociatedData json.RawMessage `json:"associatedData"`
}

// Send appends the opaque record to the ledger, then pushes the exact
// stored bytes to every current member. The ledger write is the operation;
// the push is best-effort on top of it.
func (h *MessageHandler) Send(c *gin.Context) {
	username, ok := middleware.UsernameFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg, err := h.Store.AppendMessage(body.ConversationID, username, body.Nonce, body.Ciphertext, body.AssociatedData)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	if members, err := h.Store.Members(body.ConversationID); err == nil {
		h.Delivery.MessageStored(msg, members)
	}

	c.JSON(http.StatusCreated, gin.H{"messageId": msg.ID, "timestamp": msg.Timestamp})
}
