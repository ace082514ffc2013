package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"sync"
	"time"
)

const challengeSize = 32

// ChallengeStore records issued login challenges so that verification only
// accepts a challenge that was actually handed to that username, once, and
// within its TTL. Without this record the verify step degrades to "the
// client can sign any self-chosen nonce" and is replayable.
type ChallengeStore struct {
	mu       sync.Mutex
	issued   map[string]challengeRecord // keyed by username|challengeB64
	ttl      time.Duration
	now      func() time.Time
	stopOnce sync.Once
	stop     chan struct{}
}

type challengeRecord struct {
	challenge []byte
	expiresAt time.Time
}

func NewChallengeStore(ttl time.Duration) *ChallengeStore {
	return NewChallengeStoreWithNow(ttl, time.Now)
}

func NewChallengeStoreWithNow(ttl time.Duration, now func() time.Time) *ChallengeStore {
	cs := &ChallengeStore{
		issued: make(map[string]challengeRecord),
		ttl:    ttl,
		now:    now,
		stop:   make(chan struct{}),
	}
	go cs.cleanup()
	return cs
}

func (cs *ChallengeStore) cleanup() {
	if cs.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(cs.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-cs.stop:
			return
		case <-ticker.C:
			cs.mu.Lock()
			now := cs.now()
			for key, rec := range cs.issued {
				if now.After(rec.expiresAt) {
					delete(cs.issued, key)
				}
			}
			cs.mu.Unlock()
		}
	}
}

func (cs *ChallengeStore) Close() {
	cs.stopOnce.Do(func() { close(cs.stop) })
}

// Issue mints a fresh random challenge bound to username.
func (cs *ChallengeStore) Issue(username string) ([]byte, error) {
	challenge := make([]byte, challengeSize)
	if _, err := rand.Read(challenge); err != nil {
		return nil, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.issued[challengeKey(username, challenge)] = challengeRecord{
		challenge: challenge,
		expiresAt: cs.now().Add(cs.ttl),
	}
	return challenge, nil
}

// Consume reports whether challenge is currently issued to username and
// unexpired, and removes it either way so it can never be used twice.
func (cs *ChallengeStore) Consume(username string, challenge []byte) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	key := challengeKey(username, challenge)
	rec, ok := cs.issued[key]
	if !ok {
		return false
	}
	delete(cs.issued, key)

	if cs.now().After(rec.expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare(rec.challenge, challenge) == 1
}

func challengeKey(username string, challenge []byte) string {
	return username + "|" + base64.StdEncoding.EncodeToString(challenge)
}
