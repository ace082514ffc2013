package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sealed-relay/internal/delivery"
	"sealed-relay/internal/middleware"
	"sealed-relay/internal/store"
)

type ConversationHandler struct {
	Store    *store.Store
	Delivery *delivery.Orchestrator
}

type createConversationBody struct {
	Participants []string          `json:"participants" binding:"required,min=1"`
	SealedKeys   map[string][]byte `json:"sealedKeys" binding:"required"`
}

type addParticipantBody struct {
	Username         string `json:"username" binding:"required"`
	SealedSessionKey []byte `json:"sealedSessionKey" binding:"required"`
}

type rotateKeyBody struct {
	RemainingParticipants []string          `json:"remainingParticipants" binding:"required,min=1"`
	NewSealedKeys         map[string][]byte `json:"newSealedKeys"`
}

func (h *ConversationHandler) Create(c *gin.Context) {
	username, ok := middleware.UsernameFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	var body createConversationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	info, err := h.Store.CreateConversation(username, body.Participants, body.SealedKeys)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"conversationId": info.ID,
		"participants":   info.Participants,
		"createdAt":      info.CreatedAt,
	})
}

func (h *ConversationHandler) List(c *gin.Context) {
	username, ok := middleware.UsernameFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	convs, err := h.Store.ListConversationsForUser(username)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	resp := make([]gin.H, 0, len(convs))
	for _, conv := range convs {
		resp = append(resp, gin.H{
			"conversationId":   conv.ID,
			"participants":     conv.Participants,
			"createdAt":        conv.CreatedAt,
			"sealedSessionKey": conv.SealedSessionKey,
		})
	}
	c.JSON(http.StatusOK, gin.H{"conversations": resp})
}

func (h *ConversationHandler) Messages(c *gin.Context) {
	username, ok := middleware.UsernameFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	convID := c.Param("id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = v
	}
	before := int64(0)
	if raw := c.Query("before"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
			return
		}
		before = v
	}

	msgs, err := h.Store.ListMessages(convID, username, limit, before)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	resp := make([]gin.H, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, gin.H{
			"messageId":      m.ID,
			"conversationId": m.ConversationID,
			"sender":         m.Sender,
			"timestamp":      m.Timestamp,
			"nonce":          m.Nonce,
			"ciphertext":     m.Ciphertext,
			"associatedData": m.AssociatedData,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	username, ok := middleware.UsernameFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	convID := c.Param("id")

	var body addParticipantBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.Store.AddParticipant(convID, username, body.Username, body.SealedSessionKey)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	h.Delivery.ParticipantAdded(convID, username, result, body.Username)
	c.JSON(http.StatusOK, gin.H{"success": true, "participants": result.Members})
}

func (h *ConversationHandler) RotateKey(c *gin.Context) {
	username, ok := middleware.UsernameFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	convID := c.Param("id")

	var body rotateKeyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.Store.RotateSessionKey(convID, username, body.RemainingParticipants, body.NewSealedKeys)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	// Post-commit, best-effort: a member offline right now simply misses
	// the push and reconciles from the conversation list later.
	h.Delivery.KeyRotated(convID, result)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"removed":   result.Removed,
		"remaining": result.Remaining,
	})
}
