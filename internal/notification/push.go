package notification

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/logger"
)

// Provider defines a push delivery backend.
// Implementations must be safe for concurrent use.
type Provider interface {
	GetName() string
	ValidateConfig() error
	Send(ctx context.Context, n *Notification) error
	SupportsType(notifType Type) bool
	IsEnabled() bool
}

// closer is implemented by providers that hold connections
type closer interface {
	Close()
}

// Delivery outcomes reported to the DeliveryObserver
const (
	DeliverySuccess = "success"
	DeliveryError   = "error"
	DeliveryDropped = "dropped"
	DeliveryDedup   = "deduplicated"
)

// DeliveryObserver is told about every delivery attempt
type DeliveryObserver func(provider, status string, elapsed time.Duration)

// ForwarderConfig tunes the push forwarder
type ForwarderConfig struct {
	Types         []Type        // forwarded types, empty means warning and error
	RatePerMinute int           // 0 disables rate limiting
	Burst         int
	DedupTTL      time.Duration // identical title and message inside this window are sent once
	Timeout       time.Duration // per provider send timeout
	QueueSize     int
}

// DefaultForwarderConfig returns the push defaults
func DefaultForwarderConfig() ForwarderConfig {
	return ForwarderConfig{
		Types:         []Type{TypeWarning, TypeError},
		RatePerMinute: 30,
		Burst:         5,
		DedupTTL:      time.Hour,
		Timeout:       30 * time.Second,
		QueueSize:     64,
	}
}

// Forwarder delivers new feed notifications to push providers from a single
// background worker. Enqueue never blocks: a full queue drops the
// notification.
type Forwarder struct {
	providers []Provider
	types     []Type
	timeout   time.Duration
	queue     chan Notification
	limiter   *rate.Limiter
	dedup     *cache.Cache
	dedupTTL  time.Duration
	logger    logger.Logger
	observer  DeliveryObserver

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// ForwarderOption configures a Forwarder
type ForwarderOption func(*Forwarder)

// WithForwarderLogger sets the forwarder logger
func WithForwarderLogger(l logger.Logger) ForwarderOption {
	return func(f *Forwarder) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithDeliveryObserver registers a delivery callback, used for metrics
func WithDeliveryObserver(o DeliveryObserver) ForwarderOption {
	return func(f *Forwarder) { f.observer = o }
}

// NewForwarder validates the enabled providers and builds a stopped
// forwarder. Disabled providers are ignored.
func NewForwarder(cfg ForwarderConfig, providers []Provider, opts ...ForwarderOption) (*Forwarder, error) {
	def := DefaultForwarderConfig()
	if len(cfg.Types) == 0 {
		cfg.Types = def.Types
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}

	f := &Forwarder{
		types:    slices.Clone(cfg.Types),
		timeout:  cfg.Timeout,
		queue:    make(chan Notification, cfg.QueueSize),
		limiter:  rate.NewLimiter(rate.Inf, cfg.Burst),
		dedupTTL: cfg.DedupTTL,
		logger:   logger.NewDiscardLogger(),
	}
	if cfg.RatePerMinute > 0 {
		f.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.Burst)
	}
	if cfg.DedupTTL > 0 {
		// No janitor goroutine; the worker purges expired keys itself.
		f.dedup = cache.New(cfg.DedupTTL, 0)
	}
	for _, opt := range opts {
		opt(f)
	}

	var errs []error
	for _, p := range providers {
		if p == nil || !p.IsEnabled() {
			continue
		}
		if err := p.ValidateConfig(); err != nil {
			errs = append(errs, errors.New(err).
				Component("notification").
				Category(errors.CategoryConfiguration).
				Context("provider", p.GetName()).
				Build())
			continue
		}
		f.providers = append(f.providers, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return f, nil
}

// Providers returns the names of the active providers
func (f *Forwarder) Providers() []string {
	names := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		names = append(names, p.GetName())
	}
	return names
}

// Start launches the delivery worker. It is a no-op when already started.
func (f *Forwarder) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return
	}
	f.started = true

	ctx, f.cancel = context.WithCancel(ctx)
	f.done = make(chan struct{})
	go f.run(ctx, f.done)
	f.logger.Info("push forwarder started", logger.Int("providers", len(f.providers)))
}

// Stop cancels the worker and waits for it to exit. Queued notifications
// are discarded. Providers holding connections are closed.
func (f *Forwarder) Stop() {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return
	}
	f.started = false
	cancel, done := f.cancel, f.done
	f.mu.Unlock()

	cancel()
	<-done

	if n := len(f.queue); n > 0 {
		f.logger.Warn("push forwarder stopped with pending notifications", logger.Int("pending", n))
	}
	for _, p := range f.providers {
		if c, ok := p.(closer); ok {
			c.Close()
		}
	}
	f.logger.Info("push forwarder stopped")
}

// Enqueue queues n for delivery. It reports whether the notification was
// accepted; filtered types, duplicates and a full queue are rejected.
func (f *Forwarder) Enqueue(n Notification) bool {
	if len(f.providers) == 0 || !slices.Contains(f.types, n.Type) {
		return false
	}

	if f.dedup != nil {
		if err := f.dedup.Add(dedupKey(n), struct{}{}, f.dedupTTL); err != nil {
			f.observe("forwarder", DeliveryDedup, 0)
			f.logger.Debug("duplicate notification not forwarded", logger.String("id", n.ID))
			return false
		}
	}

	select {
	case f.queue <- n:
		return true
	default:
		if f.dedup != nil {
			f.dedup.Delete(dedupKey(n))
		}
		f.observe("forwarder", DeliveryDropped, 0)
		f.logger.Warn("push queue full, notification dropped",
			logger.String("id", n.ID),
			logger.Int("capacity", cap(f.queue)))
		return false
	}
}

// Hook adapts Enqueue to a feed AddHook
func (f *Forwarder) Hook() AddHook {
	return func(n Notification) { f.Enqueue(n) }
}

func dedupKey(n Notification) string {
	return n.Title + "\x00" + n.Message
}

func (f *Forwarder) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	purge := time.NewTicker(time.Minute)
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-purge.C:
			if f.dedup != nil {
				f.dedup.DeleteExpired()
			}
		case n := <-f.queue:
			if err := f.limiter.Wait(ctx); err != nil {
				return
			}
			f.deliver(ctx, &n)
		}
	}
}

func (f *Forwarder) deliver(ctx context.Context, n *Notification) {
	for _, p := range f.providers {
		if !p.SupportsType(n.Type) {
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, f.timeout)
		start := time.Now()
		err := p.Send(sendCtx, n)
		elapsed := time.Since(start)
		cancel()

		if err != nil {
			f.observe(p.GetName(), DeliveryError, elapsed)
			f.logger.Warn("push delivery failed",
				logger.String("provider", p.GetName()),
				logger.String("id", n.ID),
				logger.Error(err))
			continue
		}
		f.observe(p.GetName(), DeliverySuccess, elapsed)
		f.logger.Debug("push delivered",
			logger.String("provider", p.GetName()),
			logger.String("id", n.ID),
			logger.Duration("elapsed", elapsed))
	}
}

func (f *Forwarder) observe(provider, status string, elapsed time.Duration) {
	if f.observer != nil {
		f.observer(provider, status, elapsed)
	}
}

// typeSet builds a lookup of supported types, defaulting to warning and error
func typeSet(types []string) map[Type]bool {
	set := make(map[Type]bool)
	for _, t := range types {
		set[ParseType(t)] = true
	}
	if len(set) == 0 {
		set[TypeWarning] = true
		set[TypeError] = true
	}
	return set
}
