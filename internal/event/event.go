package event

import (
	"encoding/json"

	"sealed-relay/internal/model"
)

// Type tags every envelope pushed over the live channel. The set is closed:
// adding a kind means adding a payload struct and a constructor here.
type Type string

const (
	TypeNewMessage              Type = "newMessage"
	TypeParticipantAdded        Type = "participantAdded"
	TypeKeyRotation             Type = "keyRotation"
	TypeRemovedFromConversation Type = "removedFromConversation"
)

type Envelope struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

type NewMessage struct {
	MessageID      int64           `json:"messageId"`
	ConversationID string          `json:"conversationId"`
	Sender         string          `json:"sender"`
	Timestamp      int64           `json:"timestamp"`
	Nonce          []byte          `json:"nonce"`
	Ciphertext     []byte          `json:"ciphertext"`
	AssociatedData json.RawMessage `json:"associatedData,omitempty"`
}

type ParticipantAdded struct {
	ConversationID string `json:"conversationId"`
	Username       string `json:"username"`
	AddedBy        string `json:"addedBy"`
	PublicKey      []byte `json:"publicKey"`
}

// KeyRotation is sent to each remaining member individually; the sealed key
// inside is the one addressed to that member.
type KeyRotation struct {
	ConversationID   string   `json:"conversationId"`
	RemovedUsernames []string `json:"removedUsernames"`
	Remaining        []string `json:"remainingParticipants"`
	SealedSessionKey []byte   `json:"newSealedSessionKey"`
}

type RemovedFromConversation struct {
	ConversationID string `json:"conversationId"`
}

func NewMessageEnvelope(msg model.Message) Envelope {
	return Envelope{Type: TypeNewMessage, Data: NewMessage{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		Sender:         msg.Sender,
		Timestamp:      msg.Timestamp,
		Nonce:          msg.Nonce,
		Ciphertext:     msg.Ciphertext,
		AssociatedData: msg.AssociatedData,
	}}
}

func ParticipantAddedEnvelope(conversationID, username, addedBy string, publicKey []byte) Envelope {
	return Envelope{Type: TypeParticipantAdded, Data: ParticipantAdded{
		ConversationID: conversationID,
		Username:       username,
		AddedBy:        addedBy,
		PublicKey:      publicKey,
	}}
}

func KeyRotationEnvelope(conversationID string, removed, remaining []string, sealedKey []byte) Envelope {
	return Envelope{Type: TypeKeyRotation, Data: KeyRotation{
		ConversationID:   conversationID,
		RemovedUsernames: removed,
		Remaining:        remaining,
		SealedSessionKey: sealedKey,
	}}
}

func RemovedEnvelope(conversationID string) Envelope {
	return Envelope{Type: TypeRemovedFromConversation, Data: RemovedFromConversation{ConversationID: conversationID}}
}

// Marshal serializes an envelope for the wire. Payload structs contain only
// marshalable fields, so failure is not expected at runtime.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
