package notification

import (
	"cmp"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/tphakala/contractwatch/internal/logger"
	"github.com/tphakala/contractwatch/internal/state"
)

// DefaultMaxItems caps the feed, older entries are trimmed
const DefaultMaxItems = 200

// AddHook observes notifications after they were added to the feed
type AddHook func(n Notification)

// ChangeHook observes the unread count after every feed mutation
type ChangeHook func(unread int)

// Feed is the persisted, newest-first list of notifications.
//
// Every mutation rewrites the whole feed to the state store while holding
// the feed lock, so readers never observe a partial write. Save failures are
// logged and otherwise ignored.
type Feed struct {
	mu       sync.RWMutex
	store    state.Store
	items    []Notification
	maxItems int
	logger   logger.Logger
	now      func() time.Time

	hooksMu     sync.RWMutex
	addHooks    []AddHook
	changeHooks []ChangeHook
}

// FeedOption configures a Feed
type FeedOption func(*Feed)

// WithFeedLogger sets the feed logger
func WithFeedLogger(l logger.Logger) FeedOption {
	return func(f *Feed) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMaxItems caps the number of stored notifications
func WithMaxItems(n int) FeedOption {
	return func(f *Feed) {
		if n > 0 {
			f.maxItems = n
		}
	}
}

// WithFeedClock replaces time.Now, for tests
func WithFeedClock(now func() time.Time) FeedOption {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}

// WithAddHook registers a hook run after every Add
func WithAddHook(h AddHook) FeedOption {
	return func(f *Feed) { f.OnAdd(h) }
}

// WithChangeHook registers a hook run after every mutation
func WithChangeHook(h ChangeHook) FeedOption {
	return func(f *Feed) { f.OnChange(h) }
}

// NewFeed loads the persisted feed from store. A missing or corrupt payload
// yields an empty feed.
func NewFeed(store state.Store, opts ...FeedOption) *Feed {
	f := &Feed{
		store:    store,
		maxItems: DefaultMaxItems,
		logger:   logger.NewDiscardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.items = f.load()
	f.notifyChange(f.UnreadCount())
	return f
}

// OnAdd registers a hook run after every Add
func (f *Feed) OnAdd(h AddHook) {
	if h == nil {
		return
	}
	f.hooksMu.Lock()
	defer f.hooksMu.Unlock()
	f.addHooks = append(f.addHooks, h)
}

// OnChange registers a hook run after every mutation
func (f *Feed) OnChange(h ChangeHook) {
	if h == nil {
		return
	}
	f.hooksMu.Lock()
	defer f.hooksMu.Unlock()
	f.changeHooks = append(f.changeHooks, h)
}

func (f *Feed) load() []Notification {
	if f.store == nil {
		return nil
	}

	raw, found, err := f.store.Get(state.KeyFeed)
	if err != nil {
		f.logger.Warn("failed to read notification feed, starting empty", logger.Error(err))
		return nil
	}
	if !found || len(raw) == 0 {
		return nil
	}

	var items []Notification
	if err := json.Unmarshal(raw, &items); err != nil {
		f.logger.Warn("corrupt notification feed, starting empty",
			logger.Error(err),
			logger.Int("bytes", len(raw)))
		return nil
	}

	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, n := range items {
		if n.ID == "" || seen[n.ID] {
			n.ID = newID()
		}
		seen[n.ID] = true
		out = append(out, n)
	}

	slices.SortStableFunc(out, func(a, b Notification) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(out) > f.maxItems {
		out = out[:f.maxItems]
	}

	f.logger.Debug("notification feed loaded", logger.Int("count", len(out)))
	return out
}

// persist writes the whole feed. Callers hold f.mu.
func (f *Feed) persist() {
	if f.store == nil {
		return
	}
	items := f.items
	if items == nil {
		items = []Notification{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		f.logger.Error("failed to encode notification feed", logger.Error(err))
		return
	}
	if err := f.store.Set(state.KeyFeed, data); err != nil {
		f.logger.Warn("failed to persist notification feed",
			logger.Error(err),
			logger.String("key", state.KeyFeed))
	}
}

func (f *Feed) unreadLocked() int {
	n := 0
	for i := range f.items {
		if !f.items[i].Read {
			n++
		}
	}
	return n
}

func (f *Feed) indexLocked(id string) int {
	return slices.IndexFunc(f.items, func(n Notification) bool { return n.ID == id })
}

// Add prepends a new unread notification and persists the feed.
// An empty or unknown type becomes info.
func (f *Feed) Add(title, message string, typ Type) Notification {
	if !typ.Valid() {
		typ = TypeInfo
	}

	f.mu.Lock()
	id := newID()
	for f.indexLocked(id) >= 0 {
		id = newID()
	}
	n := Notification{
		ID:        id,
		Title:     title,
		Message:   message,
		Type:      typ,
		Timestamp: f.now(),
	}
	f.items = slices.Insert(f.items, 0, n)
	if len(f.items) > f.maxItems {
		f.items = f.items[:f.maxItems]
	}
	f.persist()
	unread := f.unreadLocked()
	f.mu.Unlock()

	f.logger.Debug("notification added",
		logger.String("id", n.ID),
		logger.String("type", string(n.Type)))

	f.hooksMu.RLock()
	hooks := slices.Clone(f.addHooks)
	f.hooksMu.RUnlock()
	for _, h := range hooks {
		h(n)
	}
	f.notifyChange(unread)
	return n
}

// MarkRead marks one notification as read. It reports whether anything changed.
func (f *Feed) MarkRead(id string) bool {
	return f.mutate(func() bool {
		i := f.indexLocked(id)
		if i < 0 || f.items[i].Read {
			return false
		}
		f.items[i].Read = true
		return true
	})
}

// MarkAllRead marks every notification as read
func (f *Feed) MarkAllRead() bool {
	return f.mutate(func() bool {
		changed := false
		for i := range f.items {
			if !f.items[i].Read {
				f.items[i].Read = true
				changed = true
			}
		}
		return changed
	})
}

// Remove deletes one notification
func (f *Feed) Remove(id string) bool {
	return f.mutate(func() bool {
		i := f.indexLocked(id)
		if i < 0 {
			return false
		}
		f.items = slices.Delete(f.items, i, i+1)
		return true
	})
}

// Clear deletes every notification
func (f *Feed) Clear() bool {
	return f.mutate(func() bool {
		if len(f.items) == 0 {
			return false
		}
		f.items = nil
		return true
	})
}

// mutate runs change under the lock and persists when it changed something
func (f *Feed) mutate(change func() bool) bool {
	f.mu.Lock()
	changed := change()
	if changed {
		f.persist()
	}
	unread := f.unreadLocked()
	f.mu.Unlock()

	if changed {
		f.notifyChange(unread)
	}
	return changed
}

func (f *Feed) notifyChange(unread int) {
	f.hooksMu.RLock()
	hooks := slices.Clone(f.changeHooks)
	f.hooksMu.RUnlock()
	for _, h := range hooks {
		h(unread)
	}
}

// UnreadCount returns the number of unread notifications
func (f *Feed) UnreadCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.unreadLocked()
}

// Len returns the number of notifications
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// List returns a copy of the feed, newest first
func (f *Feed) List() []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.items)
}

// Get returns one notification by id
func (f *Feed) Get(id string) (Notification, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if i := f.indexLocked(id); i >= 0 {
		return f.items[i], nil
	}
	return Notification{}, ErrNotificationNotFound
}

// Filter selects a page of the feed
type Filter struct {
	UnreadOnly bool
	Types      []Type
	Offset     int
	Limit      int // 0 means no limit
}

// Query returns the notifications matching filter and the total number of
// matches before paging
func (f *Feed) Query(filter Filter) (page []Notification, total int) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	matches := make([]Notification, 0, len(f.items))
	for _, n := range f.items {
		if filter.UnreadOnly && n.Read {
			continue
		}
		if len(filter.Types) > 0 && !slices.Contains(filter.Types, n.Type) {
			continue
		}
		matches = append(matches, n)
	}

	total = len(matches)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matches[start:end], total
}

// Oldest returns the timestamp of the oldest entry, zero when empty
func (f *Feed) Oldest() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.items) == 0 {
		return time.Time{}
	}
	return slices.MinFunc(f.items, func(a, b Notification) int {
		return cmp.Compare(a.Timestamp.UnixNano(), b.Timestamp.UnixNano())
	}).Timestamp
}
