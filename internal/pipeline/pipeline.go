// Package pipeline runs the daily scan-and-notify cycle: gate on the last
// check marker, fetch a contract store snapshot, scan for expiring contracts,
// notify through the feed and a toast, then record the marker.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/contractwatch/internal/contract"
	"github.com/tphakala/contractwatch/internal/contractstore"
	"github.com/tphakala/contractwatch/internal/dates"
	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/expiry"
	"github.com/tphakala/contractwatch/internal/logger"
	"github.com/tphakala/contractwatch/internal/notification"
	"github.com/tphakala/contractwatch/internal/observability/metrics"
	"github.com/tphakala/contractwatch/internal/state"
)

// Deps holds everything a Pipeline works with. Source, Feed, Toasts and
// Store are required, the rest have defaults.
type Deps struct {
	Source contractstore.Source
	Feed   *notification.Feed
	Toasts *notification.ToastManager
	Store  state.Store

	// Now defaults to time.Now
	Now func() time.Time
	// Location is the calendar "today" is taken in, time.Local when nil
	Location *time.Location
	// WindowDays of zero or less uses expiry.DefaultWindowDays
	WindowDays int

	Logger  logger.Logger
	Metrics *metrics.ScanMetrics
}

// Outcome describes what one Run, StageHandoff or ConsumeHandoff did
type Outcome struct {
	// Result is one of the metrics.Result* values
	Result       string                     `json:"result"`
	Day          time.Time                  `json:"day"`
	Expiring     []expiry.Expiring          `json:"expiring,omitempty"`
	Notification *notification.Notification `json:"notification,omitempty"`
	Toast        *notification.Toast        `json:"toast,omitempty"`
}

// Pipeline serializes whole scan runs. Concurrent callers in one process
// observe a single gate decision and a single write phase.
type Pipeline struct {
	deps Deps
	log  logger.Logger

	mu sync.Mutex

	closeOnce sync.Once
	closers   []func() error
}

// New validates deps and returns a ready pipeline
func New(deps Deps) (*Pipeline, error) {
	var missing string
	switch {
	case deps.Source == nil:
		missing = "source"
	case deps.Feed == nil:
		missing = "feed"
	case deps.Toasts == nil:
		missing = "toasts"
	case deps.Store == nil:
		missing = "store"
	}
	if missing != "" {
		return nil, errors.Newf("pipeline dependency %s is required", missing).
			Component("pipeline").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.WindowDays <= 0 {
		deps.WindowDays = expiry.DefaultWindowDays
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewDiscardLogger()
	}

	return &Pipeline{deps: deps, log: deps.Logger}, nil
}

// Feed returns the notification feed
func (p *Pipeline) Feed() *notification.Feed { return p.deps.Feed }

// Toasts returns the toast manager
func (p *Pipeline) Toasts() *notification.ToastManager { return p.deps.Toasts }

// Store returns the state store
func (p *Pipeline) Store() state.Store { return p.deps.Store }

// Source returns the contract store
func (p *Pipeline) Source() contractstore.Source { return p.deps.Source }

// WindowDays returns the effective expiry window
func (p *Pipeline) WindowDays() int { return p.deps.WindowDays }

// Today returns the current calendar date in the configured location
func (p *Pipeline) Today() time.Time {
	return dates.Today(p.deps.Now().In(p.deps.Location))
}

// Run performs the gated scan. Unless force is set, a marker equal to today
// skips the run. A fetch failure leaves the marker untouched and is returned
// with category network or timeout.
func (p *Pipeline) Run(ctx context.Context, force bool) (*Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	today := p.Today()
	out := &Outcome{Day: today}

	if !force && p.checkedToday(today) {
		p.log.Debug("expiration check already done today", logger.String("day", dates.FormatISO(today)))
		return p.finish(out, metrics.ResultSkipped), nil
	}

	expiring, err := p.scan(ctx, today)
	if err != nil {
		return p.finish(out, metrics.ResultFetchError), err
	}
	out.Expiring = expiring

	if len(expiring) > 0 {
		title, message := p.render(expiring)
		n := p.deps.Feed.Add(title, message, notification.TypeWarning)
		t := p.deps.Toasts.Show(title, message, notification.TypeWarning)
		out.Notification, out.Toast = &n, &t
	}

	if err := state.WriteMarker(p.deps.Store, today); err != nil {
		p.log.Error("failed to record expiration check", logger.Error(err))
		return p.finish(out, metrics.ResultError), err
	}
	p.dropStagedHandoff()

	result := metrics.ResultNothingDue
	if len(expiring) > 0 {
		result = metrics.ResultNotified
	}
	p.log.Info("expiration check finished",
		logger.String("day", dates.FormatISO(today)),
		logger.Int("expiring", len(expiring)),
		logger.Bool("forced", force),
		logger.Duration("elapsed", time.Since(start)))
	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordCompleted(len(expiring), p.deps.Now(), time.Since(start))
	}
	return p.finish(out, result), nil
}

// Preview returns the contracts currently inside the window without
// touching the feed, the toasts or the marker
func (p *Pipeline) Preview(ctx context.Context) ([]expiry.Expiring, error) {
	return p.scan(ctx, p.Today())
}

// Names returns the worker name lookup of the source, nil when the source
// keeps none
func (p *Pipeline) Names() expiry.NameLookup {
	if d := p.deps.Source.Directory(); d != nil {
		return d
	}
	return nil
}

// ValidateCandidate checks c against the worker's current contracts. A
// rejected candidate is a validation error, a fetch failure keeps its
// network or timeout category.
func (p *Pipeline) ValidateCandidate(ctx context.Context, c contract.Candidate) error {
	existing, err := p.deps.Source.Contracts(ctx)
	if err != nil {
		return fetchError(err, "contracts")
	}
	return contract.ValidateCandidate(c, existing)
}

// Close runs the registered teardown functions once, in reverse order
func (p *Pipeline) Close() error {
	var errs []error
	p.closeOnce.Do(func() {
		for i := len(p.closers) - 1; i >= 0; i-- {
			if err := p.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// own registers a teardown function run by Close
func (p *Pipeline) own(closer func() error) {
	p.closers = append(p.closers, closer)
}

func (p *Pipeline) checkedToday(today time.Time) bool {
	checked, err := state.CheckedOn(p.deps.Store, today)
	if err != nil {
		p.log.Warn("expiration check marker unreadable, treating as never checked", logger.Error(err))
		return false
	}
	return checked
}

// checkedOn reports whether the marker equals the ISO day
func (p *Pipeline) checkedOn(day string) bool {
	d, err := dates.Parse(day)
	if err != nil {
		return false
	}
	return p.checkedToday(d)
}

func (p *Pipeline) scan(ctx context.Context, today time.Time) ([]expiry.Expiring, error) {
	snap, err := p.deps.Source.Snapshot(ctx)
	if err != nil {
		err = fetchError(err, "snapshot")
		p.log.Warn("contract store unavailable, expiration check postponed", logger.Error(err))
		return nil, err
	}
	return expiry.Scan(snap.Contracts, today, p.deps.WindowDays), nil
}

func (p *Pipeline) render(expiring []expiry.Expiring) (title, message string) {
	return expiry.Title(expiring), expiry.Summarize(expiring, p.Names())
}

func (p *Pipeline) finish(out *Outcome, result string) *Outcome {
	out.Result = result
	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordRun(result)
	}
	return out
}

// fetchError keeps a store failure inside the network and timeout categories
func fetchError(err error, operation string) error {
	category := errors.CategoryNetwork
	if errors.Is(err, context.DeadlineExceeded) || errors.IsCategory(err, errors.CategoryTimeout) {
		category = errors.CategoryTimeout
	}
	if errors.IsCategory(err, category) {
		return err
	}
	return errors.New(err).
		Component("pipeline").
		Category(category).
		Context("operation", operation).
		Build()
}
