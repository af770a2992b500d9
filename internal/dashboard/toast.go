package dashboard

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// DefaultToastTTL is how long a transient notification stays up.
const DefaultToastTTL = 3 * time.Second

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Toast struct {
	ID        int64
	Level     Level
	Message   string
	CreatedAt time.Time
}

// Notifier surfaces a transient message to the user.
type Notifier interface {
	Notify(level Level, message string) Toast
}

// Toasts keeps transient notifications and dismisses each one after the TTL.
type Toasts struct {
	mu        sync.Mutex
	ttl       time.Duration
	nextID    int64
	active    map[int64]Toast
	timers    map[int64]*time.Timer
	onDismiss func(Toast)
}

// NewToasts creates a notifier. onDismiss, if set, runs on the timer
// goroutine when a toast expires.
func NewToasts(ttl time.Duration, onDismiss func(Toast)) *Toasts {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Toasts{
		ttl:       ttl,
		active:    make(map[int64]Toast),
		timers:    make(map[int64]*time.Timer),
		onDismiss: onDismiss,
	}
}

func (t *Toasts) TTL() time.Duration { return t.ttl }

func (t *Toasts) Notify(level Level, message string) Toast {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	toast := Toast{ID: t.nextID, Level: level, Message: message, CreatedAt: time.Now()}
	t.active[toast.ID] = toast
	t.timers[toast.ID] = time.AfterFunc(t.ttl, func() { t.Dismiss(toast.ID) })
	return toast
}

// Dismiss removes a toast early. Unknown ids are ignored.
func (t *Toasts) Dismiss(id int64) {
	t.mu.Lock()
	toast, ok := t.active[id]
	if ok {
		delete(t.active, id)
		if timer := t.timers[id]; timer != nil {
			timer.Stop()
		}
		delete(t.timers, id)
	}
	onDismiss := t.onDismiss
	t.mu.Unlock()

	if ok && onDismiss != nil {
		onDismiss(toast)
	}
}

// Active returns the toasts currently shown, oldest first.
func (t *Toasts) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Toast, 0, len(t.active))
	for _, toast := range t.active {
		out = append(out, toast)
	}
	slices.SortFunc(out, func(a, b Toast) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Close stops every pending timer without running onDismiss.
func (t *Toasts) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
	t.active = make(map[int64]Toast)
}
