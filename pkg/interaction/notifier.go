package interaction

import (
	"sync"
	"time"
)

// NoPathMessage is shown when a path search finds nothing
const NoPathMessage = "No path found"

// Notifier shows transient, non-blocking messages to the user
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(msg string)

// Notify implements Notifier
func (f NotifierFunc) Notify(msg string) { f(msg) }

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

// Notice is one message with its expiry
type Notice struct {
	Message string
	Expires time.Time
}

// Notices keeps messages until they expire
type Notices struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	all []Notice
}

// NewNotices creates a notice board whose messages live for ttl
func NewNotices(ttl time.Duration) *Notices {
	return &Notices{ttl: ttl, now: time.Now}
}

// Notify implements Notifier
func (n *Notices) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.all = append(n.all, Notice{Message: msg, Expires: n.now().Add(n.ttl)})
}

// Active returns the messages that have not expired and drops the rest
func (n *Notices) Active() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	kept := n.all[:0]
	var out []string
	for _, notice := range n.all {
		if notice.Expires.After(now) {
			kept = append(kept, notice)
			out = append(out, notice.Message)
		}
	}
	n.all = kept
	return out
}
