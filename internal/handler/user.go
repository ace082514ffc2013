package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sealed-relay/internal/store"
)

type UserHandler struct {
	Store *store.Store
}

// PublicKey returns a user's long-term verify key so other clients can seal
// conversation keys to them. The encrypted key material stays private to
// the challenge flow.
func (h *UserHandler) PublicKey(c *gin.Context) {
	identity, err := h.Store.GetIdentity(c.Param("username"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username":  identity.Username,
		"verifyKey": identity.VerifyKey,
	})
}
