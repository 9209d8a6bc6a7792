package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// sseServer is a scripted SSE endpoint. Frames pushed via send/sendRaw are
// written to the currently connected client; connections stay open until the
// client hangs up or closeConns is called.
type sseServer struct {
	srv    *httptest.Server
	frames chan frame

	mu        sync.Mutex
	total     int32
	perQuery  map[string]int32
	closeConn chan struct{}
}

type frame struct {
	topic string
	data  string
	raw   string
}

func newSSEServer(t *testing.T) *sseServer {
	t.Helper()
	s := &sseServer{
		frames:    make(chan frame, 64),
		perQuery:  make(map[string]int32),
		closeConn: make(chan struct{}),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.total++
		s.perQuery[r.URL.RawQuery]++
		closeConn := s.closeConn
		s.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fl := w.(http.Flusher)
		fl.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-closeConn:
				return
			case f := <-s.frames:
				if f.raw != "" {
					fmt.Fprint(w, f.raw)
				} else {
					if f.topic != "" {
						fmt.Fprintf(w, "event: %s\n", f.topic)
					}
					fmt.Fprintf(w, "data: %s\n\n", f.data)
				}
				fl.Flush()
			}
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *sseServer) URL() string { return s.srv.URL }

func (s *sseServer) send(topic, data string) { s.frames <- frame{topic: topic, data: data} }

func (s *sseServer) sendRaw(raw string) { s.frames <- frame{raw: raw} }

// hangUp closes every open connection from the server side.
func (s *sseServer) hangUp() {
	s.mu.Lock()
	close(s.closeConn)
	s.closeConn = make(chan struct{})
	s.mu.Unlock()
}

func (s *sseServer) connections() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *sseServer) connectionsFor(query string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perQuery[query]
}

// collector records delivered events.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) fn(ev Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) at(i int) Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[i]
}

func waitUntil(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startSession(t *testing.T, identity string) *Session {
	t.Helper()
	s := newSession(identity, nil)
	t.Cleanup(s.Close)
	return s
}

func TestSessionParsesTopicsAndData(t *testing.T) {
	srv := newSSEServer(t)
	s := startSession(t, srv.URL())

	var got collector
	if _, err := s.AddListener(TopicProgress, got.fn); err != nil {
		t.Fatalf("AddListener: %v", err)
	}
	if _, err := s.AddListener(TopicMessage, got.fn); err != nil {
		t.Fatalf("AddListener: %v", err)
	}
	s.start()

	srv.send("progress", `{"step":"embedding","progress":0.5}`)
	srv.send("", `{"hello":1}`) // no event line → default topic

	waitUntil(t, func() bool { return got.len() == 2 }, "two events")

	if ev := got.at(0); ev.Topic != TopicProgress || string(ev.Data) != `{"step":"embedding","progress":0.5}` {
		t.Errorf("first event = %q %s", ev.Topic, ev.Data)
	}
	if ev := got.at(1); ev.Topic != TopicMessage {
		t.Errorf("untagged frame delivered on %q, want %q", ev.Topic, TopicMessage)
	}
	if st := s.Status(); st != StatusOpen {
		t.Errorf("status = %v, want open", st)
	}
}

func TestSessionOpenEvent(t *testing.T) {
	srv := newSSEServer(t)
	s := startSession(t, srv.URL())

	var opened atomic.Int32
	if _, err := s.AddListener(TopicOpen, func(Event) { opened.Add(1) }); err != nil {
		t.Fatalf("AddListener: %v", err)
	}
	s.start()

	waitUntil(t, func() bool { return opened.Load() == 1 }, "open event")
}

func TestSessionMalformedFrameDropped(t *testing.T) {
	srv := newSSEServer(t)
	s := startSession(t, srv.URL())

	var got collector
	s.AddListener(TopicResult, got.fn)
	s.start()

	srv.send("result", `{"broken":`)
	srv.send("result", `{"ok":true}`)

	waitUntil(t, func() bool { return got.len() == 1 }, "the valid frame")

	if string(got.at(0).Data) != `{"ok":true}` {
		t.Errorf("delivered %s, want the valid frame only", got.at(0).Data)
	}
	if st := s.Status(); st != StatusOpen {
		t.Errorf("malformed frame closed the session: status = %v", st)
	}
}

func TestSessionIgnoresCommentsAndUnknownFields(t *testing.T) {
	srv := newSSEServer(t)
	s := startSession(t, srv.URL())

	var got collector
	s.AddListener(TopicProgress, got.fn)
	s.start()

	srv.sendRaw(": keepalive\nid: 42\nretry: 3000\nevent: progress\ndata: {\"step\":\"parsing\"}\n\n")

	waitUntil(t, func() bool { return got.len() == 1 }, "one event")
	if string(got.at(0).Data) != `{"step":"parsing"}` {
		t.Errorf("data = %s", got.at(0).Data)
	}
}

func TestSessionJoinsMultilineData(t *testing.T) {
	srv := newSSEServer(t)
	s := startSession(t, srv.URL())

	var got collector
	s.AddListener(TopicResult, got.fn)
	s.start()

	srv.sendRaw("event: result\ndata: [\"a\",\ndata: \"b\"]\n\n")

	waitUntil(t, func() bool { return got.len() == 1 }, "one event")
	if string(got.at(0).Data) != "[\"a\",\n\"b\"]" {
		t.Errorf("data = %q", got.at(0).Data)
	}
}

func TestSessionFanOutPreservesOrder(t *testing.T) {
	srv := newSSEServer(t)
	s := startSession(t, srv.URL())

	var a, b collector
	s.AddListener(TopicResult, a.fn)
	s.AddListener(TopicResult, b.fn)
	s.start()

	const n = 5
	for i := 0; i < n; i++ {
		srv.send("result", fmt.Sprintf(`{"i":%d}`, i))
	}

	waitUntil(t, func() bool { return a.len() == n && b.len() == n }, "all events on both listeners")
	for i := 0; i < n; i++ {
		want := fmt.Sprintf(`{"i":%d}`, i)
		if string(a.at(i).Data) != want {
			t.Errorf("listener a event %d = %s, want %s", i, a.at(i).Data, want)
		}
		if string(b.at(i).Data) != want {
			t.Errorf("listener b event %d = %s, want %s", i, b.at(i).Data, want)
		}
	}
}

func TestSessionAddListenerAfterCloseRejected(t *testing.T) {
	srv := newSSEServer(t)
	s := startSession(t, srv.URL())
	s.start()
	s.Close()

	if _, err := s.AddListener(TopicResult, func(Event) {}); err != ErrSessionClosed {
		t.Errorf("AddListener on closed session: err = %v, want ErrSessionClosed", err)
	}
	if st := s.Status(); st != StatusClosedByCaller {
		t.Errorf("status = %v, want closed-by-caller", st)
	}
}

func TestSessionCloseDropsInFlightFrames(t *testing.T) {
	srv := newSSEServer(t)
	s := startSession(t, srv.URL())

	var got collector
	s.AddListener(TopicResult, got.fn)
	var errs collector
	s.AddListener(TopicError, errs.fn)
	s.start()

	srv.send("result", `{"i":0}`)
	waitUntil(t, func() bool { return got.len() == 1 }, "first event")

	s.Close()
	srv.send("result", `{"i":1}`)
	time.Sleep(50 * time.Millisecond)

	if got.len() != 1 {
		t.Errorf("received %d events after close, want frames dropped", got.len()-1)
	}
	// A caller-initiated close must not look like a transport failure.
	if errs.len() != 0 {
		t.Errorf("close surfaced %d error events", errs.len())
	}
}

func TestSessionRemoteCloseSurfacesError(t *testing.T) {
	srv := newSSEServer(t)
	s := startSession(t, srv.URL())

	var errs collector
	s.AddListener(TopicError, errs.fn)
	s.start()

	waitUntil(t, func() bool { return s.Status() == StatusOpen }, "open")
	srv.hangUp()

	waitUntil(t, func() bool { return errs.len() == 1 }, "error event")
	if errs.at(0).Err == nil {
		t.Error("transport error event has nil Err")
	}
	if st := s.Status(); st != StatusClosedByRemote {
		t.Errorf("status = %v, want closed-by-remote", st)
	}
}

func TestSessionBadStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := startSession(t, srv.URL)
	var errs collector
	s.AddListener(TopicError, errs.fn)
	s.start()

	waitUntil(t, func() bool { return errs.len() == 1 }, "error event")
	if st := s.Status(); st != StatusClosedByError {
		t.Errorf("status = %v, want closed-by-error", st)
	}
}

func TestRemoveListenerIsIdempotent(t *testing.T) {
	srv := newSSEServer(t)
	s := startSession(t, srv.URL())

	var got collector
	l, err := s.AddListener(TopicResult, got.fn)
	if err != nil {
		t.Fatalf("AddListener: %v", err)
	}
	var other collector
	s.AddListener(TopicResult, other.fn)
	s.start()

	s.RemoveListener(l)
	s.RemoveListener(l)
	s.RemoveListener(nil)

	srv.send("result", `{}`)
	waitUntil(t, func() bool { return other.len() == 1 }, "remaining listener")

	if got.len() != 0 {
		t.Errorf("removed listener received %d events", got.len())
	}
	if n := s.ListenerCount(); n != 1 {
		t.Errorf("ListenerCount = %d, want 1", n)
	}
}
