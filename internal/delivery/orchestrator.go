package delivery

import (
	"log/slog"

	"sealed-relay/internal/event"
	"sealed-relay/internal/hub"
	"sealed-relay/internal/model"
	"sealed-relay/internal/store"
)

// Orchestrator turns committed state changes into live-channel pushes.
// Everything here runs after the persistence operation succeeded and is
// best-effort: a failed or missing connection never surfaces to the request
// that triggered the event, because the ledger remains the durable catch-up
// path.
type Orchestrator struct {
	Hub *hub.Hub
	Log *slog.Logger
}

func New(h *hub.Hub, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{Hub: h, Log: log}
}

// MessageStored fans the exact stored record out to every current member,
// sender included (other devices of the sender catch up the same way).
func (o *Orchestrator) MessageStored(msg model.Message, members []string) {
	payload, err := event.NewMessageEnvelope(msg).Marshal()
	if err != nil {
		o.Log.Error("marshal newMessage event", "err", err)
		return
	}
	o.Hub.SendToMany(members, payload)
}

func (o *Orchestrator) ParticipantAdded(convID, addedBy string, result store.AddResult, newUser string) {
	payload, err := event.ParticipantAddedEnvelope(convID, newUser, addedBy, result.NewUserVerifyKey).Marshal()
	if err != nil {
		o.Log.Error("marshal participantAdded event", "err", err)
		return
	}
	o.Hub.SendToMany(result.Members, payload)
}

// KeyRotated notifies each remaining member with their own newly sealed key
// and tells removed members they are out. Offline members miss these pushes;
// they reconcile from the conversation list on reconnect.
func (o *Orchestrator) KeyRotated(convID string, result store.RotationResult) {
	for _, username := range result.Remaining {
		payload, err := event.KeyRotationEnvelope(convID, result.Removed, result.Remaining, result.SealedKeys[username]).Marshal()
		if err != nil {
			o.Log.Error("marshal keyRotation event", "err", err)
			return
		}
		o.Hub.Send(username, payload)
	}

	removedPayload, err := event.RemovedEnvelope(convID).Marshal()
	if err != nil {
		o.Log.Error("marshal removedFromConversation event", "err", err)
		return
	}
	for _, username := range result.Removed {
		o.Hub.Send(username, removedPayload)
	}
}
