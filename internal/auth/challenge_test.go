package auth

import (
	"testing"
	"time"
)

func TestChallengeStore_IssueAndConsumeOnce(t *testing.T) {
	cs := NewChallengeStore(time.Minute)
	defer cs.Close()

	challenge, err := cs.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(challenge) != challengeSize {
		t.Fatalf("expected %d bytes, got %d", challengeSize, len(challenge))
	}

	if !cs.Consume("alice", challenge) {
		t.Fatalf("expected consume to succeed")
	}
	if cs.Consume("alice", challenge) {
		t.Fatalf("expected second consume to fail")
	}
}

func TestChallengeStore_WrongUser(t *testing.T) {
	cs := NewChallengeStore(time.Minute)
	defer cs.Close()

	challenge, err := cs.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if cs.Consume("bob", challenge) {
		t.Fatalf("expected consume to fail for another user")
	}
	if !cs.Consume("alice", challenge) {
		t.Fatalf("expected original user consume to succeed")
	}
}

func TestChallengeStore_Unissued(t *testing.T) {
	cs := NewChallengeStore(time.Minute)
	defer cs.Close()

	if cs.Consume("alice", []byte("self-chosen nonce")) {
		t.Fatalf("expected unissued challenge to fail")
	}
}

func TestChallengeStore_Expired(t *testing.T) {
	now := time.Unix(1000, 0)
	cs := NewChallengeStoreWithNow(time.Minute, func() time.Time { return now })
	defer cs.Close()

	challenge, err := cs.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if cs.Consume("alice", challenge) {
		t.Fatalf("expected expired challenge to fail")
	}
}

func TestChallengeStore_FreshPerIssue(t *testing.T) {
	cs := NewChallengeStore(time.Minute)
	defer cs.Close()

	c1, _ := cs.Issue("alice")
	c2, _ := cs.Issue("alice")
	if string(c1) == string(c2) {
		t.Fatalf("expected distinct challenges")
	}
	// Both outstanding challenges stay valid until consumed.
	if !cs.Consume("alice", c2) || !cs.Consume("alice", c1) {
		t.Fatalf("expected both challenges consumable once")
	}
}
