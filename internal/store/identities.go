package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"sealed-relay/internal/model"
)

// CreateIdentity registers a new identity. The record is written only if the
// username is free; a duplicate leaves the original untouched.
func (s *Store) CreateIdentity(identity model.Identity) error {
	identity.CreatedAt = nowMillis()
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := identityKey(identity.Username)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("identity %q: %w", identity.Username, ErrConflict)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

func (s *Store) GetIdentity(username string) (model.Identity, error) {
	var identity model.Identity
	err := s.db.View(func(txn *badger.Txn) error {
		got, err := getIdentity(txn, username)
		if err != nil {
			return err
		}
		identity = got
		return nil
	})
	return identity, err
}

// ReplaceKeyBlob swaps the encrypted private key blob verbatim. The server
// cannot decrypt the blob, so there is nothing to verify beyond existence.
func (s *Store) ReplaceKeyBlob(username string, blob []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		identity, err := getIdentity(txn, username)
		if err != nil {
			return err
		}
		identity.EncryptedPrivateKey = blob
		data, err := json.Marshal(identity)
		if err != nil {
			return err
		}
		return txn.Set(identityKey(username), data)
	})
}

func getIdentity(txn *badger.Txn, username string) (model.Identity, error) {
	var identity model.Identity
	item, err := txn.Get(identityKey(username))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return identity, fmt.Errorf("identity %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return identity, err
	}
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &identity)
	})
	return identity, err
}
