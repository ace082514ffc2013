package store

import (
	"encoding/json"
	"testing"

	"sealed-relay/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func registerTestIdentity(t *testing.T, s *Store, username string) {
	t.Helper()
	err := s.CreateIdentity(model.Identity{
		Username:            username,
		VerifyKey:           []byte("verify-key-" + username),
		EncryptedPrivateKey: []byte("blob-" + username),
		KDFSalt:             []byte("salt"),
		KDFParams:           json.RawMessage(`{"alg":"argon2id","m":65536,"t":3}`),
	})
	if err != nil {
		t.Fatalf("CreateIdentity(%s): %v", username, err)
	}
}
