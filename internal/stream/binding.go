package stream

import (
	"sync"
	"sync/atomic"
)

// Callbacks are the application hooks a Binding forwards events to. The most
// recently supplied set wins: swapping callbacks never reconnects the
// underlying session.
type Callbacks struct {
	OnEvent func(Event)
	OnOpen  func()
	OnError func(Event)
}

// BindingOptions configure a Binding for its whole lifetime.
type BindingOptions struct {
	// Topics and CloseOn have Handlers semantics.
	Topics  []string
	CloseOn []string
	// ForceSingle closes every other session in the registry before
	// binding, guaranteeing one active stream application-wide at the cost
	// of interrupting unrelated streams.
	ForceSingle bool
}

// Binding is a UI-lifecycle-scoped attachment to the registry: bind on
// identity change, unbind on scope exit. Rebinding with an unchanged
// identity is a pure no-op, so re-renders never cause reconnect storms.
type Binding struct {
	reg  *Registry
	opts BindingOptions
	cb   atomic.Pointer[Callbacks]

	mu       sync.Mutex
	identity string
	detach   DetachFunc
	closed   bool
}

// NewBinding creates an inactive binding. Call SetCallbacks before Bind.
func NewBinding(reg *Registry, opts BindingOptions) *Binding {
	return &Binding{reg: reg, opts: opts}
}

// SetCallbacks replaces the callbacks future events are delivered to. The
// session keeps running; only the indirection target changes.
func (b *Binding) SetCallbacks(cb Callbacks) {
	b.cb.Store(&cb)
}

// Bind points the binding at a new endpoint identity. An empty identity
// means inactive. Rebinding the current identity performs zero transport
// operations, even if the previous connection died silently; reconnection
// happens only on an actual identity change or a fresh Bind after Close.
func (b *Binding) Bind(identity string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || identity == b.identity {
		return
	}
	if b.detach != nil {
		b.detach()
		b.detach = nil
	}
	b.identity = identity
	if identity == "" {
		return
	}
	if b.opts.ForceSingle {
		b.reg.CloseAll()
	}
	b.detach = b.reg.Attach(identity, Handlers{
		Topics:  b.opts.Topics,
		CloseOn: b.opts.CloseOn,
		OnEvent: func(ev Event) {
			if cb := b.cb.Load(); cb != nil && cb.OnEvent != nil {
				cb.OnEvent(ev)
			}
		},
		OnOpen: func() {
			if cb := b.cb.Load(); cb != nil && cb.OnOpen != nil {
				cb.OnOpen()
			}
		},
		OnError: func(ev Event) {
			if cb := b.cb.Load(); cb != nil && cb.OnError != nil {
				cb.OnError(ev)
			}
		},
	})
}

// Identity returns the currently bound endpoint identity, or "" when
// inactive.
func (b *Binding) Identity() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.identity
}

// Close detaches the binding's listeners. Detachment runs exactly once no
// matter how many teardown paths race (scope exit plus identity change); any
// later Bind or Close is a no-op.
func (b *Binding) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.identity = ""
	if b.detach != nil {
		b.detach()
		b.detach = nil
	}
}
