package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key layout:
//
//	identity:<username>        identity record
//	conv:<id>                  conversation record
//	member:<conv>:<username>   membership (sealed session key)
//	uconv:<username>:<conv>    index: conversations per user
//	msg:<conv>:<id, %020d>     ledger record, ordered by id
const (
	identityPrefix = "identity:"
	convPrefix     = "conv:"
	memberPrefix   = "member:"
	userConvPrefix = "uconv:"
	msgPrefix      = "msg:"

	messageSeqKey = "seq:message"
)

type Store struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

// Open opens the store at dir. An empty dir opens badger in memory, which is
// what the tests use.
func Open(dir string, log *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	seq, err := db.GetSequence([]byte(messageSeqKey), 128)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open message sequence: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, seq: seq, log: log}, nil
}

func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		s.log.Warn("release message sequence", "err", err)
	}
	return s.db.Close()
}

func identityKey(username string) []byte {
	return []byte(identityPrefix + username)
}

func convKey(id string) []byte {
	return []byte(convPrefix + id)
}

func memberKey(convID, username string) []byte {
	return []byte(memberPrefix + convID + ":" + username)
}

func userConvKey(username, convID string) []byte {
	return []byte(userConvPrefix + username + ":" + convID)
}

func msgKey(convID string, id int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", msgPrefix, convID, id))
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
