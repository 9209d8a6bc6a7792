package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
)

// ErrSessionClosed is returned by AddListener once a session has reached a
// terminal status. Callers should go back through the Registry for a fresh
// session instead of holding on to a closed one.
var ErrSessionClosed = errors.New("stream: session closed")

// Status tracks where a session is in its lifecycle.
type Status int

const (
	StatusConnecting Status = iota
	StatusOpen
	StatusClosedByCaller
	StatusClosedByError
	StatusClosedByRemote
)

// Closed reports whether the session has reached a terminal status.
func (s Status) Closed() bool {
	return s >= StatusClosedByCaller
}

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusClosedByCaller:
		return "closed-by-caller"
	case StatusClosedByError:
		return "closed-by-error"
	case StatusClosedByRemote:
		return "closed-by-remote"
	default:
		return "unknown"
	}
}

// Listener is an opaque handle for a registered callback. Go funcs are not
// comparable, so removal goes through the handle rather than the func value.
type Listener struct {
	topic string
	fn    func(Event)
}

// Session is one physical SSE connection to an endpoint. Sessions are created
// and owned by a Registry; consumers attach and detach listeners through it.
type Session struct {
	identity string
	client   *http.Client
	cancel   context.CancelFunc

	startOnce sync.Once

	mu             sync.Mutex
	status         Status
	closedByCaller bool
	listeners      map[string][]*Listener
}

func newSession(identity string, client *http.Client) *Session {
	if client == nil {
		client = http.DefaultClient
	}
	return &Session{
		identity:  identity,
		client:    client,
		status:    StatusConnecting,
		listeners: make(map[string][]*Listener),
	}
}

// Identity returns the normalized endpoint URL this session is bound to.
func (s *Session) Identity() string { return s.identity }

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// AddListener registers fn for a topic. Multiple listeners per topic are
// allowed; each receives every event in arrival order. Fails once the
// session is closed.
func (s *Session) AddListener(topic string, fn func(Event)) (*Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Closed() {
		return nil, ErrSessionClosed
	}
	l := &Listener{topic: topic, fn: fn}
	s.listeners[topic] = append(s.listeners[topic], l)
	return l, nil
}

// RemoveListener detaches a previously added listener. Removing a listener
// twice, or from a closed session, is a no-op.
func (s *Session) RemoveListener(l *Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ls := s.listeners[l.topic]
	for i, cand := range ls {
		if cand == l {
			s.listeners[l.topic] = append(ls[:i], ls[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of currently attached listeners across
// all topics.
func (s *Session) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ls := range s.listeners {
		n += len(ls)
	}
	return n
}

// Close terminates the transport. In-flight frames arriving afterwards are
// dropped. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.status.Closed() {
		s.mu.Unlock()
		return
	}
	s.closedByCaller = true
	s.status = StatusClosedByCaller
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// start launches the connect/read loop. The registry calls it exactly once,
// after the initial listeners have been attached, so the first frame can
// never race an attach.
func (s *Session) start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.mu.Lock()
		if s.status.Closed() {
			s.mu.Unlock()
			cancel()
			return
		}
		s.cancel = cancel
		s.mu.Unlock()
		go s.run(ctx)
	})
}

func (s *Session) run(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.identity, nil)
	if err != nil {
		s.fail(fmt.Errorf("bad endpoint %q: %w", s.identity, err))
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		s.fail(err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.fail(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
		return
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		s.fail(fmt.Errorf("unexpected content type: %s", ct))
		return
	}

	s.mu.Lock()
	if s.status.Closed() {
		s.mu.Unlock()
		return
	}
	s.status = StatusOpen
	s.mu.Unlock()
	s.dispatch(Event{Topic: TopicOpen})

	err = s.readFrames(bufio.NewReader(resp.Body))

	s.mu.Lock()
	if s.closedByCaller {
		s.mu.Unlock()
		return
	}
	s.status = StatusClosedByRemote
	s.mu.Unlock()
	s.dispatch(Event{Topic: TopicError, Err: fmt.Errorf("connection lost: %w", err)})
}

// fail marks the session closed-by-error and notifies error listeners,
// unless the caller already closed it (in which case the failure is just the
// aborted request).
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.closedByCaller {
		s.mu.Unlock()
		return
	}
	s.status = StatusClosedByError
	s.mu.Unlock()
	log.Printf("stream: %s: %v", s.identity, err)
	s.dispatch(Event{Topic: TopicError, Err: err})
}

// readFrames decodes the SSE wire format: frames are delimited by a blank
// line, each with optional "event:" and "data:" fields. Lines starting with
// ":" are comments; any other field token is ignored.
func (s *Session) readFrames(r *bufio.Reader) error {
	var topic, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if data != "" {
				s.deliver(topic, strings.TrimSuffix(data, "\n"))
			}
			topic, data = "", ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseField(line)
		switch field {
		case "event":
			topic = value
		case "data":
			data += value + "\n"
		}
	}
}

func parseField(line string) (field, value string) {
	i := strings.Index(line, ":")
	if i == -1 {
		return line, ""
	}
	field = line[:i]
	value = line[i+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}

// deliver validates and fans out one complete frame. A malformed payload is
// logged and dropped without touching the session or its listeners.
func (s *Session) deliver(topic, data string) {
	if topic == "" {
		topic = TopicMessage
	}
	if !json.Valid([]byte(data)) {
		log.Printf("stream: %s: dropping malformed %q frame: %.120s", s.identity, topic, data)
		return
	}
	s.dispatch(Event{Topic: topic, Data: json.RawMessage(data)})
}

// dispatch snapshots the topic's listeners and invokes them outside the lock
// so a callback may detach or close without deadlocking. Nothing is
// delivered after a caller-initiated close.
func (s *Session) dispatch(ev Event) {
	s.mu.Lock()
	if s.closedByCaller {
		s.mu.Unlock()
		return
	}
	ls := make([]*Listener, len(s.listeners[ev.Topic]))
	copy(ls, s.listeners[ev.Topic])
	s.mu.Unlock()

	for _, l := range ls {
		l.fn(ev)
	}
}
