package scheduler

import (
	"context"

	"github.com/najahiiii/marzban-exporter/internal/model"
)

//go:generate mockgen -destination=mock_scheduler.go -package=scheduler github.com/najahiiii/marzban-exporter/internal/scheduler Source,Sink

// Source fetches the five panel resources polled every cycle.
type Source interface {
	Nodes(ctx context.Context) ([]model.Node, error)
	NodeUsages(ctx context.Context) ([]model.NodeUsage, error)
	System(ctx context.Context) (*model.SystemStats, error)
	Core(ctx context.Context) (*model.CoreStats, error)
	Users(ctx context.Context) ([]model.User, error)
}

// Sink receives the snapshot of a fully successful cycle.
type Sink interface {
	Update(s *model.Snapshot)
}
