package pipeline

import (
	"context"

	"github.com/tphakala/contractwatch/internal/dates"
	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/logger"
	"github.com/tphakala/contractwatch/internal/notification"
	"github.com/tphakala/contractwatch/internal/observability/metrics"
	"github.com/tphakala/contractwatch/internal/state"
)

// StageHandoff runs the gated scan at login and, when contracts are
// expiring, stores a pending handoff for the next dashboard mount. The
// marker is left alone so the consumer records it.
func (p *Pipeline) StageHandoff(ctx context.Context) (*Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	today := p.Today()
	out := &Outcome{Day: today}

	if p.checkedToday(today) {
		return p.finish(out, metrics.ResultSkipped), nil
	}

	expiring, err := p.scan(ctx, today)
	if err != nil {
		return p.finish(out, metrics.ResultFetchError), err
	}
	out.Expiring = expiring
	if len(expiring) == 0 {
		return p.finish(out, metrics.ResultNothingDue), nil
	}

	title, message := p.render(expiring)
	h := state.Handoff{
		Pending: true,
		Title:   title,
		Message: message,
		Type:    string(notification.TypeWarning),
		Scanned: true,
		Day:     dates.FormatISO(today),
	}
	if err := state.WriteHandoff(p.deps.Store, h); err != nil {
		p.log.Error("failed to stage toast handoff", logger.Error(err))
		return p.finish(out, metrics.ResultError), err
	}

	p.log.Info("toast handoff staged", logger.Int("expiring", len(expiring)))
	return p.finish(out, metrics.ResultStaged), nil
}

// SetHandoff stores an arbitrary pending handoff. An empty type becomes
// info, an empty title is rejected.
func (p *Pipeline) SetHandoff(title, message string, typ notification.Type) error {
	if title == "" {
		return errors.Newf("handoff title is required").
			Component("pipeline").
			Category(errors.CategoryValidation).
			Build()
	}
	if !typ.Valid() {
		typ = notification.TypeInfo
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return state.WriteHandoff(p.deps.Store, state.Handoff{
		Pending: true,
		Title:   title,
		Message: message,
		Type:    string(typ),
	})
}

// ConsumeHandoff delivers a pending handoff: it shows the toast, adds the
// same notification to the feed and clears the handoff. A handoff staged by
// today's scan also records today's marker. A scan handoff whose day was
// already checked is cleared without delivery. Without a pending handoff it
// does nothing. A corrupt handoff is logged, cleared and treated as absent.
func (p *Pipeline) ConsumeHandoff() (*Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	today := p.Today()
	out := &Outcome{Day: today, Result: metrics.ResultNothingDue}

	h, err := state.ReadHandoff(p.deps.Store)
	if err != nil {
		if !errors.IsCategory(err, errors.CategoryState) {
			return out, err
		}
		p.log.Warn("discarding unreadable toast handoff", logger.Error(err))
		if clearErr := state.ClearHandoff(p.deps.Store); clearErr != nil {
			p.log.Warn("failed to clear toast handoff", logger.Error(clearErr))
		}
		return out, nil
	}
	if !h.Pending {
		return out, nil
	}
	if h.Scanned && p.checkedOn(h.Day) {
		p.log.Info("discarding toast handoff for a day already checked", logger.String("day", h.Day))
		out.Result = metrics.ResultSkipped
		if err := state.ClearHandoff(p.deps.Store); err != nil {
			p.log.Error("failed to clear toast handoff", logger.Error(err))
			return out, err
		}
		return out, nil
	}

	typ := notification.ParseType(h.Type)
	t := p.deps.Toasts.Show(h.Title, h.Message, typ)
	n := p.deps.Feed.Add(h.Title, h.Message, typ)
	out.Toast, out.Notification = &t, &n
	out.Result = metrics.ResultNotified

	if err := state.ClearHandoff(p.deps.Store); err != nil {
		p.log.Error("failed to clear toast handoff", logger.Error(err))
		return out, err
	}
	if h.ScannedOn(today) {
		if err := state.WriteMarker(p.deps.Store, today); err != nil {
			p.log.Error("failed to record expiration check", logger.Error(err))
			return out, err
		}
	}

	p.log.Info("toast handoff consumed",
		logger.String("notification_id", n.ID),
		logger.Bool("scanned", h.Scanned),
		logger.String("day", dates.FormatISO(today)))
	return out, nil
}

// dropStagedHandoff clears a pending scan handoff once a run has delivered
// the same facts. Handoffs set by callers are kept.
func (p *Pipeline) dropStagedHandoff() {
	h, err := state.ReadHandoff(p.deps.Store)
	if err != nil || !h.Pending || !h.Scanned {
		return
	}
	if err := state.ClearHandoff(p.deps.Store); err != nil {
		p.log.Warn("failed to clear superseded toast handoff", logger.Error(err))
		return
	}
	p.log.Debug("superseded toast handoff cleared", logger.String("day", h.Day))
}
