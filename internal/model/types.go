package model

import "encoding/json"

// Identity is a registered user. The server stores only the public
// verification key and opaque client-encrypted key material; it can never
// recover the private key.
type Identity struct {
	Username            string          `json:"username"`
	VerifyKey           []byte          `json:"verifyKey"`
	EncryptedPrivateKey []byte          `json:"encryptedPrivateKey"`
	KDFSalt             []byte          `json:"kdfSalt"`
	KDFParams           json.RawMessage `json:"kdfParams"`
	CreatedAt           int64           `json:"createdAt"`
}

type Conversation struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
}

// Membership ties one identity to one conversation and holds the shared
// session key sealed to that member's public key.
type Membership struct {
	ConversationID   string `json:"conversationId"`
	Username         string `json:"username"`
	SealedSessionKey []byte `json:"sealedSessionKey"`
	JoinedAt         int64  `json:"joinedAt"`
}

// Message is an opaque ciphertext record. IDs increase monotonically across
// the whole ledger; Timestamp is assigned by the server on append.
type Message struct {
	ID             int64           `json:"id"`
	ConversationID string          `json:"conversationId"`
	Sender         string          `json:"sender"`
	Timestamp      int64           `json:"timestamp"`
	Nonce          []byte          `json:"nonce"`
	Ciphertext     []byte          `json:"ciphertext"`
	AssociatedData json.RawMessage `json:"associatedData,omitempty"`
}

// ConversationInfo is a per-caller view of a conversation: the full
// participant list plus the caller's own sealed session key.
type ConversationInfo struct {
	Conversation
	Participants     []string
	SealedSessionKey []byte
}
