package dashboard

import (
	"sync"
	"time"

	"github.com/bobmcallan/railpulse-portal/internal/models"
)

// Notifier buffers transient notices until a renderer drains them.
type Notifier struct {
	mu      sync.Mutex
	pending []models.Notice
	max     int
	now     func() time.Time
}

// NewNotifier creates a Notifier holding at most max undrained notices.
func NewNotifier(max int) *Notifier {
	if max <= 0 {
		max = 20
	}
	return &Notifier{max: max, now: time.Now}
}

// Push queues a notice, dropping the oldest when full.
func (n *Notifier) Push(level models.NoticeLevel, message string, d time.Duration) {
	n.Add(models.Notice{Level: level, Message: message, Duration: d})
}

// Add queues a prepared notice.
func (n *Notifier) Add(notice models.Notice) {
	if notice.Duration == 0 {
		notice.Duration = models.DefaultNoticeDuration
	}
	if notice.Created.IsZero() {
		notice.Created = n.now()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, notice)
	if len(n.pending) > n.max {
		n.pending = n.pending[len(n.pending)-n.max:]
	}
}

// Success queues a success notice.
func (n *Notifier) Success(message string, d time.Duration) {
	n.Push(models.NoticeSuccess, message, d)
}

// Error queues an error notice.
func (n *Notifier) Error(message string) {
	n.Push(models.NoticeError, message, 0)
}

// Drain returns and clears the pending notices, oldest first.
func (n *Notifier) Drain() []models.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.pending
	n.pending = nil
	return out
}
