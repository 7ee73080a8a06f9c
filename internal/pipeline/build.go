package pipeline

import (
	"context"

	"github.com/tphakala/contractwatch/internal/conf"
	"github.com/tphakala/contractwatch/internal/contractstore"
	"github.com/tphakala/contractwatch/internal/logger"
	"github.com/tphakala/contractwatch/internal/mqtt"
	"github.com/tphakala/contractwatch/internal/notification"
	"github.com/tphakala/contractwatch/internal/observability"
	"github.com/tphakala/contractwatch/internal/state"
)

// FromSettings opens the state store and assembles the contract store
// client, the feed, the toast manager and, when configured, the push
// forwarder. Collectors in m are wired to every component when m is not nil.
// The returned pipeline owns all of them and releases them on Close.
func FromSettings(ctx context.Context, settings *conf.Settings, log logger.Logger, m *observability.Metrics) (*Pipeline, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	store, err := state.Open(settings.State, log.Module("state"))
	if err != nil {
		return nil, err
	}
	closers := []func() error{store.Close}
	fail := func(err error) (*Pipeline, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	storeOpts := []contractstore.Option{contractstore.WithLogger(log.Module("contractstore"))}
	if m != nil {
		storeOpts = append(storeOpts, contractstore.WithRequestObserver(m.ContractStore.RecordRequest))
	}
	source, err := contractstore.New(settings.ContractStore, storeOpts...)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() error { source.Close(); return nil })

	feedOpts := []notification.FeedOption{
		notification.WithFeedLogger(log.Module("notification")),
		notification.WithMaxItems(settings.Notifications.MaxItems),
	}
	toastOpts := []notification.ToastOption{
		notification.WithToastLogger(log.Module("notification")),
		notification.WithToastDuration(settings.Notifications.ToastDuration),
	}
	if m != nil {
		feedOpts = append(feedOpts,
			notification.WithAddHook(func(n notification.Notification) { m.Notification.RecordAdded(string(n.Type)) }),
			notification.WithChangeHook(m.Notification.SetUnread))
		toastOpts = append(toastOpts,
			notification.WithShowHook(func(t notification.Toast) { m.Notification.RecordToastShown(string(t.Type)) }),
			notification.WithDismissHook(func(_ notification.Toast, r notification.DismissReason) {
				m.Notification.RecordToastDismissed(string(r))
			}))
	}
	feed := notification.NewFeed(store, feedOpts...)
	toasts := notification.NewToastManager(toastOpts...)
	closers = append(closers, func() error { toasts.Close(); return nil })

	forwarder, err := newForwarder(settings.Notifications, log.Module("push"), m)
	if err != nil {
		return fail(err)
	}
	if forwarder != nil {
		feed.OnAdd(forwarder.Hook())
		forwarder.Start(ctx)
		closers = append(closers, func() error { forwarder.Stop(); return nil })
		log.Info("push forwarding enabled", logger.Any("providers", forwarder.Providers()))
	}

	deps := Deps{
		Source:     source,
		Feed:       feed,
		Toasts:     toasts,
		Store:      store,
		Location:   settings.Location(),
		WindowDays: settings.Expiry.WindowDays,
		Logger:     log,
	}
	if m != nil {
		deps.Metrics = m.Scan
	}

	p, err := New(deps)
	if err != nil {
		return fail(err)
	}
	for _, c := range closers {
		p.own(c)
	}
	return p, nil
}

// newForwarder builds the push forwarder from the enabled shoutrrr and MQTT
// settings, nil when neither is enabled
func newForwarder(s conf.NotificationSettings, log logger.Logger, m *observability.Metrics) (*notification.Forwarder, error) {
	var providers []notification.Provider
	if s.Push.Enabled && len(s.Push.URLs) > 0 {
		providers = append(providers,
			notification.NewShoutrrrProvider("shoutrrr", true, s.Push.URLs, s.Push.Types, s.Push.Timeout))
	}
	if s.MQTT.Enabled {
		var opts []mqtt.Option
		opts = append(opts, mqtt.WithLogger(log.Module("mqtt")))
		if m != nil {
			opts = append(opts, mqtt.WithConnectionObserver(m.Notification.SetMQTTConnected))
		}
		providers = append(providers,
			notification.NewMQTTProvider(true, mqtt.ConfigFromSettings(s.MQTT), s.Push.Types, opts...))
	}
	if len(providers) == 0 {
		return nil, nil
	}

	cfg := notification.ForwarderConfig{
		Types:         notificationTypes(s.Push.Types),
		RatePerMinute: s.Push.RatePerMinute,
		Burst:         s.Push.Burst,
		DedupTTL:      s.Push.DedupTTL,
		Timeout:       s.Push.Timeout,
		QueueSize:     s.Push.QueueSize,
	}
	opts := []notification.ForwarderOption{notification.WithForwarderLogger(log)}
	if m != nil {
		opts = append(opts, notification.WithDeliveryObserver(m.Notification.RecordDelivery))
	}
	return notification.NewForwarder(cfg, providers, opts...)
}

func notificationTypes(names []string) []notification.Type {
	if len(names) == 0 {
		return nil
	}
	types := make([]notification.Type, 0, len(names))
	for _, n := range names {
		types = append(types, notification.ParseType(n))
	}
	return types
}
