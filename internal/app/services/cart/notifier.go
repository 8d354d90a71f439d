package cart

import (
	"sync"
	"time"
)

// Notification kinds.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
)

// DefaultNoticeTTL is how long a notification stays visible before it
// dismisses itself.
const DefaultNoticeTTL = 3 * time.Second

// Notification is a transient per-user message surfaced by the cart.
type Notification struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Notifier holds at most one live notification per user. Publishing a new
// one replaces the previous message and restarts its dismiss timer.
type Notifier struct {
	ttl time.Duration

	mu      sync.Mutex
	current map[string]Notification
	timers  map[string]*time.Timer
}

// NewNotifier creates a notifier with the given TTL (default 3s).
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return &Notifier{
		ttl:     ttl,
		current: make(map[string]Notification),
		timers:  make(map[string]*time.Timer),
	}
}

// Publish replaces the user's live notification and restarts the dismiss
// timer.
func (n *Notifier) Publish(userID, message, kind string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if timer, ok := n.timers[userID]; ok {
		timer.Stop()
	}
	n.current[userID] = Notification{Message: message, Kind: kind}
	n.timers[userID] = time.AfterFunc(n.ttl, func() {
		n.dismiss(userID)
	})
}

// Current returns the user's live notification, if any.
func (n *Notifier) Current(userID string) (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	notice, ok := n.current[userID]
	return notice, ok
}

func (n *Notifier) dismiss(userID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.current, userID)
	delete(n.timers, userID)
}
