package hub

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type testWriter struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
	fail   bool
	block  chan struct{}
}

func (w *testWriter) Write(message []byte) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("write failed")
	}
	w.writes = append(w.writes, message)
	return nil
}

func (w *testWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *testWriter) snapshot() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]byte(nil), w.writes...)
}

func (w *testWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached")
}

func TestHub_SendAndUnregister(t *testing.T) {
	h := New(nil)
	defer h.Close()

	w := &testWriter{}
	conn := h.Register("alice", w)

	h.Send("alice", []byte("one"))
	waitFor(t, func() bool { return len(w.snapshot()) == 1 })

	h.Unregister(conn)
	h.Send("alice", []byte("two"))
	time.Sleep(20 * time.Millisecond)
	if got := w.snapshot(); len(got) != 1 {
		t.Fatalf("expected 1 write after unregister, got %d", len(got))
	}
	if !w.isClosed() {
		t.Fatalf("expected writer closed on unregister")
	}
}

func TestHub_SendToAbsentIsNoop(t *testing.T) {
	h := New(nil)
	defer h.Close()

	h.Send("nobody", []byte("x"))
	h.SendToMany([]string{"nobody", "else"}, []byte("x"))
}

func TestHub_SupersedeClosesPrior(t *testing.T) {
	h := New(nil)
	defer h.Close()

	w1 := &testWriter{}
	w2 := &testWriter{}
	h.Register("alice", w1)
	conn2 := h.Register("alice", w2)

	if !w1.isClosed() {
		t.Fatalf("expected prior writer closed synchronously")
	}

	h.Send("alice", []byte("hello"))
	waitFor(t, func() bool { return len(w2.snapshot()) == 1 })
	if len(w1.snapshot()) != 0 {
		t.Fatalf("expected no delivery via superseded connection")
	}

	select {
	case <-conn2.Done():
		t.Fatalf("second connection must stay open")
	default:
	}
}

func TestHub_FailedWriteEvicts(t *testing.T) {
	h := New(nil)
	defer h.Close()

	w := &testWriter{fail: true}
	h.Register("alice", w)

	h.Send("alice", []byte("x"))
	waitFor(t, func() bool { return !h.Online("alice") })
	if !w.isClosed() {
		t.Fatalf("expected failed connection closed")
	}
}

func TestHub_PerRecipientFIFO(t *testing.T) {
	h := New(nil)
	defer h.Close()

	w := &testWriter{}
	h.Register("alice", w)

	for _, payload := range []string{"a", "b", "c", "d"} {
		h.Send("alice", []byte(payload))
	}
	waitFor(t, func() bool { return len(w.snapshot()) == 4 })

	got := w.snapshot()
	for i, want := range []string{"a", "b", "c", "d"} {
		if string(got[i]) != want {
			t.Fatalf("out of order at %d: got %q want %q", i, got[i], want)
		}
	}
}

func TestHub_QueueOverflowEvicts(t *testing.T) {
	h := New(nil)
	defer h.Close()

	w := &testWriter{block: make(chan struct{})}
	h.Register("alice", w)

	// One payload wedged in Write plus a full queue; the next send must
	// drop the connection rather than block the caller.
	for i := 0; i < outboundQueueSize+2; i++ {
		h.Send("alice", []byte("x"))
	}
	if h.Online("alice") {
		t.Fatalf("expected slow connection evicted")
	}
	close(w.block)
}

func TestHub_CloseEvictsAll(t *testing.T) {
	h := New(nil)
	w1 := &testWriter{}
	w2 := &testWriter{}
	h.Register("alice", w1)
	h.Register("bob", w2)

	h.Close()
	if !w1.isClosed() || !w2.isClosed() {
		t.Fatalf("expected all writers closed")
	}
	if h.Online("alice") || h.Online("bob") {
		t.Fatalf("expected empty registry")
	}
}
