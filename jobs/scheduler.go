package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"winzone/settlement"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Processor runs one settlement pass for a mode.
type Processor interface {
	ProcessMode(ctx context.Context, mode int) (settlement.PassReport, error)
}

// Scheduler ticks every configured mode on its own cron entry. A tick that
// finds the previous pass of the same mode still running is skipped.
type Scheduler struct {
	cron  *cron.Cron
	proc  Processor
	log   *zap.Logger
	modes []int
	tick  string
	ctx   context.Context
	boot  sync.WaitGroup
}

func NewScheduler(proc Processor, log *zap.Logger, modes []int, tick string) *Scheduler {
	cl := cron.PrintfLogger(zap.NewStdLog(log))
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		proc:  proc,
		log:   log,
		modes: modes,
		tick:  tick,
	}
}

// Start registers one entry per mode, starts the first pass of every mode in
// its own goroutine and starts the cron loop. Passes stop picking up work once ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	for _, mode := range s.modes {
		mode := mode
		job := cron.FuncJob(func() { s.run(mode) })
		if _, err := s.cron.AddJob(s.tick, job); err != nil {
			return fmt.Errorf("schedule mode %d: %w", mode, err)
		}
		s.log.Info("🕒 scheduled draw mode", zap.Int("mode", mode), zap.String("tick", s.tick))
	}

	for _, mode := range s.modes {
		mode := mode
		s.boot.Add(1)
		go func() {
			defer s.boot.Done()
			s.run(mode)
		}()
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for running passes to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.boot.Wait()
	s.log.Info("🛑 scheduler stopped")
}

// RunOnce executes a single pass for each mode in order.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.ctx = ctx
	var errs []error
	for _, mode := range s.modes {
		if err := s.run(mode); err != nil {
			errs = append(errs, fmt.Errorf("mode %d: %w", mode, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) run(mode int) error {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	report, err := s.proc.ProcessMode(ctx, mode)
	switch {
	case errors.Is(err, settlement.ErrPassInProgress):
		s.log.Debug("pass still running, tick skipped", zap.Int("mode", mode))
		return nil
	case err != nil:
		s.log.Error("❌ settlement pass failed", zap.Int("mode", mode), zap.Error(err))
		return err
	}

	if report.Provisioned+report.Settled+report.Failed > 0 {
		s.log.Info("✅ settlement pass finished",
			zap.Int("mode", mode),
			zap.Int("provisioned", report.Provisioned),
			zap.Int("settled", report.Settled),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
		)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d draw(s) failed to settle", report.Failed)
	}
	return nil
}
