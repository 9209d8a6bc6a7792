package stream

import (
	"testing"
)

func newTestBinding(r *Registry, forceSingle bool) *Binding {
	b := NewBinding(r, BindingOptions{
		Topics:      []string{TopicResult},
		CloseOn:     []string{TopicDone, TopicError},
		ForceSingle: forceSingle,
	})
	return b
}

func TestBindSameIdentityIsNoOp(t *testing.T) {
	srv := newSSEServer(t)
	r := NewRegistry()
	defer r.CloseAll()

	b := newTestBinding(r, false)
	var got collector
	b.SetCallbacks(Callbacks{OnEvent: got.fn})

	identity := srv.URL() + "?id=a"
	b.Bind(identity)
	b.Bind(identity)
	b.Bind(identity)

	srv.send("result", `{}`)
	waitUntil(t, func() bool { return got.len() == 1 }, "delivery")

	if n := srv.connections(); n != 1 {
		t.Errorf("rebinding an unchanged identity opened %d connections, want 1", n)
	}
	if got.len() != 1 {
		t.Errorf("event delivered %d times, want once", got.len())
	}
}

func TestBindIdentityChurn(t *testing.T) {
	srv := newSSEServer(t)
	r := NewRegistry()
	defer r.CloseAll()

	b := newTestBinding(r, false)
	b.SetCallbacks(Callbacks{})

	idA := srv.URL() + "?id=a"
	idB := srv.URL() + "?id=b"

	b.Bind(idA)
	firstA := r.Open(idA)
	waitUntil(t, func() bool { return firstA.Status() == StatusOpen }, "A open")

	b.Bind(idB)
	// Leaving A detached its listeners; as the sole attacher that closed
	// the session too.
	if n := firstA.ListenerCount(); n != 0 {
		t.Errorf("first A session still has %d listeners", n)
	}
	if !firstA.Status().Closed() {
		t.Error("first A session not closed after rebind")
	}

	b.Bind(idA)
	secondA := r.Open(idA)
	if secondA == firstA {
		t.Error("returning to A reused the closed session")
	}
	waitUntil(t, func() bool { return secondA.Status() == StatusOpen }, "A reopened")

	if n := srv.connectionsFor("id=a"); n != 2 {
		t.Errorf("A dialed %d times, want 2 (first bind, return)", n)
	}
	if n := srv.connectionsFor("id=b"); n != 1 {
		t.Errorf("B dialed %d times, want 1", n)
	}
}

func TestBindEmptyIdentityDeactivates(t *testing.T) {
	srv := newSSEServer(t)
	r := NewRegistry()
	defer r.CloseAll()

	b := newTestBinding(r, false)
	b.SetCallbacks(Callbacks{})

	b.Bind(srv.URL())
	s := r.Open(srv.URL())
	waitUntil(t, func() bool { return s.Status() == StatusOpen }, "open")

	b.Bind("")

	if !s.Status().Closed() {
		t.Error("session survived deactivation by its only attacher")
	}
	if got := b.Identity(); got != "" {
		t.Errorf("Identity() = %q, want empty", got)
	}
}

func TestBindingInvokesLatestCallbacks(t *testing.T) {
	srv := newSSEServer(t)
	r := NewRegistry()
	defer r.CloseAll()

	b := newTestBinding(r, false)
	var stale, fresh collector
	b.SetCallbacks(Callbacks{OnEvent: stale.fn})
	b.Bind(srv.URL())

	// Reconfigure after the session exists: the new callback must win
	// without any reconnection.
	b.SetCallbacks(Callbacks{OnEvent: fresh.fn})

	srv.send("result", `{}`)
	waitUntil(t, func() bool { return fresh.len() == 1 }, "fresh callback")

	if stale.len() != 0 {
		t.Errorf("stale callback invoked %d times", stale.len())
	}
	if n := srv.connections(); n != 1 {
		t.Errorf("callback swap dialed %d connections, want 1", n)
	}
}

func TestBindingCloseIsFinalAndIdempotent(t *testing.T) {
	srv := newSSEServer(t)
	r := NewRegistry()
	defer r.CloseAll()

	b := newTestBinding(r, false)
	var got collector
	b.SetCallbacks(Callbacks{OnEvent: got.fn})
	b.Bind(srv.URL())
	s := r.Open(srv.URL())
	waitUntil(t, func() bool { return s.Status() == StatusOpen }, "open")

	// Overlapping teardown causes: identity change racing scope exit.
	b.Close()
	b.Close()
	b.Bind("")
	b.Bind(srv.URL())

	if n := srv.connections(); n != 1 {
		t.Errorf("closed binding dialed again (%d connections)", n)
	}
	if !s.Status().Closed() {
		t.Error("session survived binding teardown")
	}
}

func TestForceSingleClosesOtherSessions(t *testing.T) {
	srv := newSSEServer(t)
	r := NewRegistry()
	defer r.CloseAll()

	idX := srv.URL() + "?id=x"
	idY := srv.URL() + "?id=y"

	x := newTestBinding(r, true)
	x.SetCallbacks(Callbacks{})
	x.Bind(idX)
	sx := r.Open(idX)
	waitUntil(t, func() bool { return sx.Status() == StatusOpen }, "X open")

	y := newTestBinding(r, true)
	y.SetCallbacks(Callbacks{})
	y.Bind(idY)

	if !sx.Status().Closed() {
		t.Error("force-single bind left X's session open")
	}
	sy := r.Open(idY)
	waitUntil(t, func() bool { return sy.Status() == StatusOpen }, "Y open")
	if n := r.Len(); n != 1 {
		t.Errorf("registry holds %d sessions, want only Y's", n)
	}
}

func TestAutoClosedBindingCanBindAgain(t *testing.T) {
	srv := newSSEServer(t)
	r := NewRegistry()
	defer r.CloseAll()

	b := newTestBinding(r, false)
	var got collector
	b.SetCallbacks(Callbacks{OnEvent: got.fn})

	idA := srv.URL() + "?run=1"
	b.Bind(idA)
	s := r.Open(idA)
	waitUntil(t, func() bool { return s.Status() == StatusOpen }, "open")

	srv.send("done", `{"summary":{}}`)
	waitUntil(t, func() bool { return s.Status().Closed() }, "terminal auto-close")

	// A new run with a new identity starts cleanly. The done event above
	// was delivered too (terminal topics reach the consumer before the
	// close), so the result is the second event.
	idB := srv.URL() + "?run=2"
	b.Bind(idB)
	srv.send("result", `{}`)
	waitUntil(t, func() bool { return got.len() == 2 }, "event on new run")
	if got.at(1).Topic != TopicResult {
		t.Errorf("second event topic = %q, want result", got.at(1).Topic)
	}
}
