package stream

import (
	"net/http"
	"sync"
)

// DetachFunc removes exactly the handlers one Attach call added. Calling it
// more than once is a no-op.
type DetachFunc func()

// Handlers is the set of callbacks one consumer attaches to an endpoint.
type Handlers struct {
	// Topics are the application topics routed to OnEvent. TopicMessage
	// must be listed explicitly if the consumer wants untyped frames.
	Topics []string
	// CloseOn lists terminal topics: they are delivered like Topics, then
	// the session is closed and removed from the registry.
	CloseOn []string
	OnEvent func(Event)
	OnOpen  func()
	// OnError receives transport failures (Err set) and application error
	// frames (Data set). Error frames are routed here, never to OnEvent,
	// even when TopicError appears in Topics or CloseOn.
	OnError func(Event)
}

// Registry maps endpoint identities to at most one live session each. It is
// the only component that creates or destroys sessions; consumers attach and
// detach listeners. Construct one per application (or per test).
type Registry struct {
	client *http.Client

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Registry.
type Option func(*Registry)

// WithHTTPClient overrides the transport used to dial endpoints.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Registry) { r.client = c }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		client:   http.DefaultClient,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns the live session for identity, dialing a new one if none
// exists or the previous one already closed (a session can sit in the table
// after the remote side hung up). Safe to call repeatedly.
func (r *Registry) Open(identity string) *Session {
	r.mu.Lock()
	s := r.getOrCreateLocked(identity)
	r.mu.Unlock()
	s.start()
	return s
}

// Attach opens (or reuses) the session for identity and registers the given
// handlers. The handlers are wired before the session's read loop starts, so
// the first attacher cannot miss frames. The returned DetachFunc removes
// only these handlers; when the last listener detaches, the session is
// closed and removed.
func (r *Registry) Attach(identity string, h Handlers) DetachFunc {
	for {
		r.mu.Lock()
		s := r.getOrCreateLocked(identity)
		handles, err := r.wireLocked(s, h)
		r.mu.Unlock()
		if err != nil {
			// The session closed underneath us (remote hangup between
			// lookup and attach). Drop it and reopen.
			r.closeSession(identity, s)
			continue
		}
		s.start()

		var once sync.Once
		return func() {
			once.Do(func() {
				for _, l := range handles {
					s.RemoveListener(l)
				}
				if s.ListenerCount() == 0 {
					r.closeSession(identity, s)
				}
			})
		}
	}
}

// Close closes and removes the session for identity, if any. Idempotent.
func (r *Registry) Close(identity string) {
	r.mu.Lock()
	s := r.sessions[identity]
	delete(r.sessions, identity)
	r.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// CloseAll closes every registered session. Used for global teardown
// (navigation away, forced cancellation of all in-flight runs). Idempotent.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) getOrCreateLocked(identity string) *Session {
	if s, ok := r.sessions[identity]; ok && !s.Status().Closed() {
		return s
	}
	s := newSession(identity, r.client)
	r.sessions[identity] = s
	return s
}

// closeSession removes s from the table only if it is still the registered
// session for identity, so a terminal event from a stale session can never
// kill its replacement.
func (r *Registry) closeSession(identity string, s *Session) {
	r.mu.Lock()
	if r.sessions[identity] == s {
		delete(r.sessions, identity)
	}
	r.mu.Unlock()
	s.Close()
}

// wireLocked registers h's callbacks on s and returns the handles. The
// caller holds r.mu, which keeps the attach atomic with respect to other
// Attach/Close calls; the session's own lock orders it against the read loop.
func (r *Registry) wireLocked(s *Session, h Handlers) ([]*Listener, error) {
	var handles []*Listener
	add := func(topic string, fn func(Event)) error {
		l, err := s.AddListener(topic, fn)
		if err != nil {
			for _, prev := range handles {
				s.RemoveListener(prev)
			}
			return err
		}
		handles = append(handles, l)
		return nil
	}

	forward := func(ev Event) {
		if h.OnEvent != nil {
			h.OnEvent(ev)
		}
	}

	if h.OnOpen != nil {
		if err := add(TopicOpen, func(Event) { h.OnOpen() }); err != nil {
			return nil, err
		}
	}
	if h.OnError != nil {
		if err := add(TopicError, func(ev Event) { h.OnError(ev) }); err != nil {
			return nil, err
		}
	}

	seen := map[string]bool{TopicOpen: true, TopicError: true}
	for _, topic := range h.Topics {
		if seen[topic] {
			continue
		}
		seen[topic] = true
		if err := add(topic, forward); err != nil {
			return nil, err
		}
	}
	for _, topic := range h.CloseOn {
		if !seen[topic] && topic != TopicOpen && topic != TopicError {
			seen[topic] = true
			if err := add(topic, forward); err != nil {
				return nil, err
			}
		}
		// The auto-close listener is registered after the forwarding one,
		// so consumers see the terminal event before the session dies.
		identity := s.Identity()
		if err := add(topic, func(Event) { r.closeSession(identity, s) }); err != nil {
			return nil, err
		}
	}
	return handles, nil
}
