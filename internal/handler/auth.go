package handler

import (
	"crypto/ed25519"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"sealed-relay/internal/auth"
	"sealed-relay/internal/middleware"
	"sealed-relay/internal/model"
	"sealed-relay/internal/store"
)

type AuthHandler struct {
	Store       *store.Store
	Challenges  *auth.ChallengeStore
	TokenConfig auth.TokenConfig
}

// Binary fields ride as base64 strings on the wire; encoding/json handles
// the []byte conversion both ways.
type registerBody struct {
	Username            string          `json:"username" binding:"required,min=3,max=50,alphanum"`
	VerifyKey           []byte          `json:"verifyKey" binding:"required"`
	EncryptedPrivateKey []byte          `json:"encryptedPrivateKey" binding:"required"`
	KDFSalt             []byte          `json:"kdfSalt" binding:"required"`
	KDFParams           json.RawMessage `json:"kdfParams" binding:"required"`
}

type challengeBody struct {
	Username string `json:"username" binding:"required"`
}

type verifyBody struct {
	Username  string `json:"username" binding:"required"`
	Challenge []byte `json:"challenge" binding:"required"`
	Signature []byte `json:"signature" binding:"required"`
}

type changePasswordBody struct {
	NewEncryptedPrivateKey []byte `json:"newEncryptedPrivateKey" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if len(body.VerifyKey) != ed25519.PublicKeySize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verify key"})
		return
	}

	err := h.Store.CreateIdentity(model.Identity{
		Username:            body.Username,
		VerifyKey:           body.VerifyKey,
		EncryptedPrivateKey: body.EncryptedPrivateKey,
		KDFSalt:             body.KDFSalt,
		KDFParams:           body.KDFParams,
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Identity created"})
}

// Challenge hands out a fresh challenge together with the stored key
// bundle, so the client can derive its signing key from a passphrase and
// sign without any secret crossing the wire.
func (h *AuthHandler) Challenge(c *gin.Context) {
	var body challengeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	identity, err := h.Store.GetIdentity(body.Username)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	challenge, err := h.Challenges.Issue(body.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Challenge generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge":           challenge,
		"verifyKey":           identity.VerifyKey,
		"encryptedPrivateKey": identity.EncryptedPrivateKey,
		"kdfSalt":             identity.KDFSalt,
		"kdfParams":           identity.KDFParams,
	})
}

// Verify consumes the recorded challenge before checking the signature, so
// a (challenge, signature) pair can never be replayed regardless of
// outcome.
func (h *AuthHandler) Verify(c *gin.Context) {
	var body verifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	identity, err := h.Store.GetIdentity(body.Username)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	if !h.Challenges.Consume(body.Username, body.Challenge) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Challenge not issued or expired"})
		return
	}
	if err := auth.VerifySignature(identity.VerifyKey, body.Challenge, body.Signature); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	token, err := auth.CreateToken(body.Username, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token creation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": token, "tokenType": "bearer"})
}

// ChangePassword replaces the encrypted key blob verbatim. The server
// cannot decrypt the old or new blob, so possession of a valid token is the
// entire check.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	username, ok := middleware.UsernameFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	var body changePasswordBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.Store.ReplaceKeyBlob(username, body.NewEncryptedPrivateKey); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
