package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/najahiiii/marzban-exporter/internal/config"
	"github.com/najahiiii/marzban-exporter/internal/model"
	"github.com/najahiiii/marzban-exporter/internal/state"

	"golang.org/x/sync/errgroup"
)

// Scheduler polls the panel on a fixed interval and feeds the registry.
type Scheduler struct {
	log      *slog.Logger
	src      Source
	sink     Sink
	status   *state.Store
	interval time.Duration
}

func New(cfg *config.Config, log *slog.Logger, src Source, sink Sink, status *state.Store) *Scheduler {
	intv := cfg.UpdateInterval()
	if intv <= 0 {
		intv = time.Duration(config.DefaultUpdateIntervalSec) * time.Second
	}
	if status == nil {
		status = state.New()
	}
	return &Scheduler{
		log:      log,
		src:      src,
		sink:     sink,
		status:   status,
		interval: intv,
	}
}

// Run refreshes immediately and then on every tick until ctx is done.
// Cycles never overlap; a cycle that outlasts the interval is followed by
// at most one catch-up cycle.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("refresh loop started", "interval", s.interval)
	for {
		if err := s.RefreshOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("refresh cycle failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RefreshOnce runs one cycle. Either every fetch succeeds and the sink is
// updated, or the cycle is abandoned and the sink is left untouched.
func (s *Scheduler) RefreshOnce(ctx context.Context) error {
	start := time.Now()
	snap, err := s.fetchAll(ctx)
	took := time.Since(start)
	if err != nil {
		s.status.RecordFailure(start, took, err)
		return err
	}

	s.sink.Update(snap)
	s.status.RecordSuccess(start, took)
	s.log.Debug("refresh cycle done",
		"took", took,
		"nodes", len(snap.Nodes),
		"node_usages", len(snap.NodeUsages),
		"users", len(snap.Users),
	)
	return nil
}

// fetchAll runs the fetches concurrently; the first failure cancels the rest.
func (s *Scheduler) fetchAll(ctx context.Context) (*model.Snapshot, error) {
	var snap model.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		nodes, err := s.src.Nodes(gctx)
		if err != nil {
			return fmt.Errorf("fetch nodes: %w", err)
		}
		snap.Nodes = nodes
		return nil
	})
	g.Go(func() error {
		usages, err := s.src.NodeUsages(gctx)
		if err != nil {
			return fmt.Errorf("fetch node usages: %w", err)
		}
		snap.NodeUsages = usages
		return nil
	})
	g.Go(func() error {
		sys, err := s.src.System(gctx)
		if err != nil {
			return fmt.Errorf("fetch system: %w", err)
		}
		if sys != nil {
			snap.System = *sys
		}
		return nil
	})
	g.Go(func() error {
		core, err := s.src.Core(gctx)
		if err != nil {
			return fmt.Errorf("fetch core: %w", err)
		}
		if core != nil {
			snap.Core = *core
		}
		return nil
	})
	g.Go(func() error {
		users, err := s.src.Users(gctx)
		if err != nil {
			return fmt.Errorf("fetch users: %w", err)
		}
		snap.Users = users
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}
