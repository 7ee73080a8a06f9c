package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/logger"
)

// Scheduler triggers the gated Run on a cron schedule
type Scheduler struct {
	pipeline     *Pipeline
	cron         *cron.Cron
	entry        cron.EntryID
	runOnStartup bool
	log          logger.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewScheduler parses a standard five-field cron expression (descriptors
// such as @daily are accepted) evaluated in the pipeline's location
func NewScheduler(p *Pipeline, schedule string, runOnStartup bool) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryConfiguration).
			Context("schedule", schedule).
			Build()
	}

	log := p.log.Module("scheduler")
	cl := cronLogger{log: log}
	s := &Scheduler{
		pipeline:     p,
		runOnStartup: runOnStartup,
		log:          log,
		cron: cron.New(
			cron.WithLocation(p.deps.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}

	entry, err := s.cron.AddFunc(schedule, s.tick)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule expiration check: %w", err)
	}
	s.entry = entry
	return s, nil
}

// Start begins the schedule. With run-on-startup the gated check also runs
// immediately in the background.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.cron.Start()
	s.log.Info("expiration check scheduled", logger.Time("next", s.cron.Entry(s.entry).Next))

	if s.runOnStartup {
		s.wg.Go(s.tick)
	}
}

// Stop cancels in-flight runs and waits for them to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// Next returns the time of the next scheduled check, zero when stopped
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	out, err := s.pipeline.Run(ctx, false)
	if err != nil {
		s.log.Warn("scheduled expiration check failed", logger.Error(err))
		return
	}
	s.log.Debug("scheduled expiration check done", logger.String("result", out.Result))
}

// cronLogger adapts logger.Logger to cron.Logger
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Trace(msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, logger.Any(key, kv[i+1]))
	}
	return fields
}
