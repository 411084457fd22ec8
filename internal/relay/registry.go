package relay

import (
	"log/slog"
	"sync"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

const defaultBuffer = 64

// Registry fans progress events out to the open sockets of each user. Each
// listener gets its own buffered channel; delivery preserves per-user
// publish order and a slow listener drops events rather than blocking the
// relay.
type Registry struct {
	mu        sync.Mutex
	listeners map[string]map[int]chan domain.ProgressEvent
	nextID    int
	buffer    int
	logger    *slog.Logger
	onDrop    func()
}

type Option func(*Registry)

func WithBuffer(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.buffer = n
		}
	}
}

// WithDropHook registers a callback fired once per dropped event.
func WithDropHook(fn func()) Option {
	return func(r *Registry) { r.onDrop = fn }
}

func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		listeners: make(map[string]map[int]chan domain.ProgressEvent),
		buffer:    defaultBuffer,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach registers a listener for one user and returns its event channel
// plus a detach func. The channel is closed on detach.
func (r *Registry) Attach(userID string) (<-chan domain.ProgressEvent, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan domain.ProgressEvent, r.buffer)
	if r.listeners[userID] == nil {
		r.listeners[userID] = make(map[int]chan domain.ProgressEvent)
	}
	id := r.nextID
	r.nextID++
	r.listeners[userID][id] = ch

	detach := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if chans, ok := r.listeners[userID]; ok {
			if got, ok := chans[id]; ok {
				delete(chans, id)
				close(got)
			}
			if len(chans) == 0 {
				delete(r.listeners, userID)
			}
		}
	}
	return ch, detach
}

// Publish delivers an event to every listener of its user. Never blocks.
func (r *Registry) Publish(event domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range r.listeners[event.UserID] {
		select {
		case ch <- event:
		default:
			if r.onDrop != nil {
				r.onDrop()
			}
			if r.logger != nil {
				r.logger.Warn("progress event dropped",
					slog.String("user_id", event.UserID),
					slog.String("run_id", event.RunID),
					slog.String("type", string(event.Type)))
			}
		}
	}
}

// ListenerCount reports the number of attached listeners across all users.
func (r *Registry) ListenerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, chans := range r.listeners {
		n += len(chans)
	}
	return n
}
