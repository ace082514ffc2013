package store

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"sealed-relay/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// AppendMessage persists one opaque ciphertext record and returns it with
// its assigned id and server timestamp. The payload is stored verbatim; the
// server never inspects nonce or ciphertext.
func (s *Store) AppendMessage(convID, sender string, nonce, ciphertext []byte, associatedData json.RawMessage) (model.Message, error) {
	next, err := s.seq.Next()
	if err != nil {
		return model.Message{}, fmt.Errorf("message sequence: %w", err)
	}

	msg := model.Message{
		ID:             int64(next) + 1, // sequence starts at zero
		ConversationID: convID,
		Sender:         sender,
		Timestamp:      nowMillis(),
		Nonce:          nonce,
		Ciphertext:     ciphertext,
		AssociatedData: associatedData,
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if !memberExists(txn, convID, sender) {
			return fmt.Errorf("sender %q: %w", sender, ErrForbidden)
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return txn.Set(msgKey(convID, msg.ID), data)
	})
	if err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

// ListMessages returns up to limit messages newest-first, restricted to
// id < before when before > 0. Keyset pagination: pages taken while writers
// append concurrently never skip or duplicate a record.
func (s *Store) ListMessages(convID, requester string, limit int, before int64) ([]model.Message, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	result := make([]model.Message, 0, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		if !memberExists(txn, convID, requester) {
			return fmt.Errorf("requester %q: %w", requester, ErrForbidden)
		}

		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(msgPrefix + convID + ":")
		seek := msgKey(convID, before-1)
		if before <= 0 {
			// Past the last possible id for this conversation.
			seek = append(append([]byte{}, prefix...), 0xFF)
		}

		for it.Seek(seek); it.ValidForPrefix(prefix) && len(result) < limit; it.Next() {
			var msg model.Message
			err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &msg) })
			if err != nil {
				return err
			}
			result = append(result, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
