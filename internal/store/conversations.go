package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"sealed-relay/internal/model"
)

// AddResult reports the post-add membership for fan-out, plus the new
// member's verify key so existing members can be told who joined.
type AddResult struct {
	Members          []string
	NewUserVerifyKey []byte
}

// RotationResult is what the caller needs to notify members after a commit:
// every remaining member's current sealed key, who was removed, and which
// remaining members had no new key supplied (degraded: they keep the old one).
type RotationResult struct {
	Removed    []string
	Remaining  []string
	SealedKeys map[string][]byte
	Skipped    []string
}

// CreateConversation creates the conversation and one membership per
// participant in a single transaction; either all rows exist afterwards or
// none do.
func (s *Store) CreateConversation(creator string, participants []string, sealedKeys map[string][]byte) (model.ConversationInfo, error) {
	var info model.ConversationInfo
	if !lo.Contains(participants, creator) {
		return info, fmt.Errorf("creator %q not in participant list: %w", creator, ErrValidation)
	}

	conv := model.Conversation{ID: uuid.NewString(), CreatedAt: nowMillis()}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, username := range participants {
			if _, err := getIdentity(txn, username); err != nil {
				return err
			}
			if len(sealedKeys[username]) == 0 {
				return fmt.Errorf("missing sealed key for %q: %w", username, ErrValidation)
			}
		}

		data, err := json.Marshal(conv)
		if err != nil {
			return err
		}
		if err := txn.Set(convKey(conv.ID), data); err != nil {
			return err
		}
		for _, username := range participants {
			if err := putMembership(txn, model.Membership{
				ConversationID:   conv.ID,
				Username:         username,
				SealedSessionKey: sealedKeys[username],
				JoinedAt:         conv.CreatedAt,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return info, err
	}

	info.Conversation = conv
	info.Participants = participants
	info.SealedSessionKey = sealedKeys[creator]
	return info, nil
}

// AddParticipant adds one membership. Existing members' sealed keys are not
// touched: the invitee receives the current key, and history stays
// unreadable to them only because past messages were never sealed to them.
func (s *Store) AddParticipant(convID, inviter, newUser string, sealedKey []byte) (AddResult, error) {
	var result AddResult
	if len(sealedKey) == 0 {
		return result, fmt.Errorf("missing sealed key for %q: %w", newUser, ErrValidation)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := convExists(txn, convID); err != nil {
			return err
		}
		if !memberExists(txn, convID, inviter) {
			return fmt.Errorf("inviter %q: %w", inviter, ErrForbidden)
		}
		identity, err := getIdentity(txn, newUser)
		if err != nil {
			return err
		}
		if memberExists(txn, convID, newUser) {
			return fmt.Errorf("membership %q: %w", newUser, ErrConflict)
		}

		if err := putMembership(txn, model.Membership{
			ConversationID:   convID,
			Username:         newUser,
			SealedSessionKey: sealedKey,
			JoinedAt:         nowMillis(),
		}); err != nil {
			return err
		}

		members, err := memberships(txn, convID)
		if err != nil {
			return err
		}
		result.Members = lo.Map(members, func(m model.Membership, _ int) string { return m.Username })
		result.NewUserVerifyKey = identity.VerifyKey
		return nil
	})
	return result, err
}

// RotateSessionKey replaces the sealed keys of every remaining member and
// deletes everyone else, atomically. A reader sees either the pre-rotation
// or post-rotation membership, never a mix; a partial rotation would leave
// evicted members able to read future traffic.
func (s *Store) RotateSessionKey(convID, requester string, remaining []string, newKeys map[string][]byte) (RotationResult, error) {
	var result RotationResult
	if !lo.Contains(remaining, requester) {
		return result, fmt.Errorf("requester %q not in remaining set: %w", requester, ErrForbidden)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := convExists(txn, convID); err != nil {
			return err
		}
		members, err := memberships(txn, convID)
		if err != nil {
			return err
		}

		result.SealedKeys = make(map[string][]byte)
		for _, m := range members {
			if !lo.Contains(remaining, m.Username) {
				if err := txn.Delete(memberKey(convID, m.Username)); err != nil {
					return err
				}
				if err := txn.Delete(userConvKey(m.Username, convID)); err != nil {
					return err
				}
				result.Removed = append(result.Removed, m.Username)
				continue
			}

			if key, ok := newKeys[m.Username]; ok && len(key) > 0 {
				m.SealedSessionKey = key
				if err := putMembership(txn, m); err != nil {
					return err
				}
			} else {
				result.Skipped = append(result.Skipped, m.Username)
			}
			result.Remaining = append(result.Remaining, m.Username)
			result.SealedKeys[m.Username] = m.SealedSessionKey
		}
		return nil
	})
	if err != nil {
		return RotationResult{}, err
	}

	if len(result.Skipped) > 0 {
		s.log.Warn("rotation left members on the old key",
			"conversation", convID, "members", result.Skipped)
	}
	return result, nil
}

// Members returns the usernames of current members, lexically ordered.
func (s *Store) Members(convID string) ([]string, error) {
	var usernames []string
	err := s.db.View(func(txn *badger.Txn) error {
		if err := convExists(txn, convID); err != nil {
			return err
		}
		members, err := memberships(txn, convID)
		if err != nil {
			return err
		}
		usernames = lo.Map(members, func(m model.Membership, _ int) string { return m.Username })
		return nil
	})
	return usernames, err
}

func (s *Store) IsMember(convID, username string) (bool, error) {
	var ok bool
	err := s.db.View(func(txn *badger.Txn) error {
		ok = memberExists(txn, convID, username)
		return nil
	})
	return ok, err
}

// ListConversationsForUser walks the caller's conversation index and returns
// each conversation with its participant list and the caller's own sealed
// key, so a reconnecting client can reconcile membership and key state.
func (s *Store) ListConversationsForUser(username string) ([]model.ConversationInfo, error) {
	result := make([]model.ConversationInfo, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userConvPrefix + username + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			convID := strings.TrimPrefix(string(it.Item().Key()), string(prefix))

			var conv model.Conversation
			item, err := txn.Get(convKey(convID))
			if err != nil {
				return err
			}
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &conv) }); err != nil {
				return err
			}

			members, err := memberships(txn, convID)
			if err != nil {
				return err
			}
			info := model.ConversationInfo{Conversation: conv}
			for _, m := range members {
				info.Participants = append(info.Participants, m.Username)
				if m.Username == username {
					info.SealedSessionKey = m.SealedSessionKey
				}
			}
			result = append(result, info)
		}
		return nil
	})
	return result, err
}

func convExists(txn *badger.Txn, convID string) error {
	_, err := txn.Get(convKey(convID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("conversation %q: %w", convID, ErrNotFound)
	}
	return err
}

func memberExists(txn *badger.Txn, convID, username string) bool {
	_, err := txn.Get(memberKey(convID, username))
	return err == nil
}

func putMembership(txn *badger.Txn, m model.Membership) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := txn.Set(memberKey(m.ConversationID, m.Username), data); err != nil {
		return err
	}
	return txn.Set(userConvKey(m.Username, m.ConversationID), nil)
}

func memberships(txn *badger.Txn, convID string) ([]model.Membership, error) {
	prefix := []byte(memberPrefix + convID + ":")
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var members []model.Membership
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var m model.Membership
		err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &m) })
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}
