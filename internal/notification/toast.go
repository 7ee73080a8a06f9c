package notification

import (
	"slices"
	"sync"
	"time"

	"github.com/tphakala/contractwatch/internal/logger"
)

const (
	// DefaultToastDuration is how long a toast stays visible
	DefaultToastDuration = 5000 * time.Millisecond
	// ToastSpacing is the vertical distance between stacked toasts
	ToastSpacing = 72
	// ToastBaseZ is the z-index of the oldest visible toast minus the stack height
	ToastBaseZ = 1000
)

// DismissReason tells why a toast left the screen
type DismissReason string

const (
	DismissManual  DismissReason = "manual"
	DismissExpired DismissReason = "expired"
	DismissClosed  DismissReason = "closed"
)

// Toast is a transient, non-persisted message
type Toast struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Type      Type          `json:"type"`
	CreatedAt time.Time     `json:"createdAt"`
	Duration  time.Duration `json:"duration"`
}

// ToastView is a toast with its stacking position
type ToastView struct {
	Toast
	Index  int `json:"index"`
	Offset int `json:"offset"`
	ZIndex int `json:"zIndex"`
}

// Timer is a stoppable scheduled callback
type Timer interface {
	Stop() bool
}

// TimerFunc schedules f after d
type TimerFunc func(d time.Duration, f func()) Timer

func defaultTimerFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type activeToast struct {
	toast Toast
	timer Timer
}

// ToastManager keeps the visible toast stack. Each toast owns a timer keyed
// by its id; whichever of expiry and dismissal takes the lock first removes
// the toast, the other finds it gone.
type ToastManager struct {
	mu       sync.Mutex
	toasts   []activeToast
	duration time.Duration
	timer    TimerFunc
	now      func() time.Time
	logger   logger.Logger
	closed   bool

	onShow    []func(Toast)
	onDismiss []func(Toast, DismissReason)
}

// ToastOption configures a ToastManager
type ToastOption func(*ToastManager)

// WithToastDuration overrides DefaultToastDuration
func WithToastDuration(d time.Duration) ToastOption {
	return func(m *ToastManager) {
		if d > 0 {
			m.duration = d
		}
	}
}

// WithTimerFunc replaces time.AfterFunc, for tests
func WithTimerFunc(f TimerFunc) ToastOption {
	return func(m *ToastManager) {
		if f != nil {
			m.timer = f
		}
	}
}

// WithToastClock replaces time.Now
func WithToastClock(now func() time.Time) ToastOption {
	return func(m *ToastManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithToastLogger sets the logger
func WithToastLogger(l logger.Logger) ToastOption {
	return func(m *ToastManager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithShowHook registers a callback run after a toast is shown
func WithShowHook(h func(Toast)) ToastOption {
	return func(m *ToastManager) {
		if h != nil {
			m.onShow = append(m.onShow, h)
		}
	}
}

// WithDismissHook registers a callback run after a toast is removed
func WithDismissHook(h func(Toast, DismissReason)) ToastOption {
	return func(m *ToastManager) {
		if h != nil {
			m.onDismiss = append(m.onDismiss, h)
		}
	}
}

// NewToastManager creates an empty toast stack
func NewToastManager(opts ...ToastOption) *ToastManager {
	m := &ToastManager{
		duration: DefaultToastDuration,
		timer:    defaultTimerFunc,
		now:      time.Now,
		logger:   logger.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Show appends a toast and schedules its expiry. An invalid type becomes info.
// After Close the toast is returned but never displayed.
func (m *ToastManager) Show(title, message string, typ Type) Toast {
	if !typ.Valid() {
		typ = TypeInfo
	}
	t := Toast{
		ID:        newID(),
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: m.now(),
		Duration:  m.duration,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return t
	}
	id := t.ID
	m.toasts = append(m.toasts, activeToast{
		toast: t,
		timer: m.timer(m.duration, func() { m.expire(id) }),
	})
	m.mu.Unlock()

	m.logger.Debug("toast shown", logger.String("id", t.ID), logger.String("type", string(t.Type)))
	for _, h := range m.onShow {
		h(t)
	}
	return t
}

// Dismiss stops the toast timer and removes the toast. It reports whether
// the toast was still visible.
func (m *ToastManager) Dismiss(id string) bool {
	t, ok := m.remove(id, true)
	if !ok {
		return false
	}
	m.fireDismiss(t, DismissManual)
	return true
}

func (m *ToastManager) expire(id string) {
	t, ok := m.remove(id, false)
	if !ok {
		return
	}
	m.fireDismiss(t, DismissExpired)
}

func (m *ToastManager) remove(id string, stop bool) (Toast, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.IndexFunc(m.toasts, func(a activeToast) bool { return a.toast.ID == id })
	if i < 0 {
		return Toast{}, false
	}
	at := m.toasts[i]
	if stop && at.timer != nil {
		at.timer.Stop()
	}
	m.toasts = slices.Delete(m.toasts, i, i+1)
	return at.toast, true
}

func (m *ToastManager) fireDismiss(t Toast, reason DismissReason) {
	m.logger.Debug("toast dismissed", logger.String("id", t.ID), logger.String("reason", string(reason)))
	for _, h := range m.onDismiss {
		h(t, reason)
	}
}

// Active returns the visible toasts in creation order with their layout
func (m *ToastManager) Active() []ToastView {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.toasts)
	views := make([]ToastView, n)
	for i, at := range m.toasts {
		views[i] = ToastView{
			Toast:  at.toast,
			Index:  i,
			Offset: i * ToastSpacing,
			ZIndex: ToastBaseZ + (n - 1 - i),
		}
	}
	return views
}

// Close stops every pending timer and drops all toasts
func (m *ToastManager) Close() {
	m.mu.Lock()
	pending := m.toasts
	m.toasts = nil
	m.closed = true
	for _, at := range pending {
		if at.timer != nil {
			at.timer.Stop()
		}
	}
	m.mu.Unlock()

	for _, at := range pending {
		m.fireDismiss(at.toast, DismissClosed)
	}
}
