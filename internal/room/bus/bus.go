// Package bus fans room snapshots out across server instances. Each applied
// mutation publishes the fresh snapshot; peers forward it to their local
// websocket sessions so every member sees the same board regardless of which
// instance they landed on.
package bus

import (
	"context"

	"github.com/yungbote/senseboard-backend/internal/room"
)

type Bus interface {
	Publish(ctx context.Context, roomID string, snap *room.Snapshot) error
	StartForwarder(ctx context.Context, onSnap func(roomID string, snap *room.Snapshot)) error
	Close() error
}

// Noop serves single-instance deployments with no redis configured.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (Noop) Publish(ctx context.Context, roomID string, snap *room.Snapshot) error { return nil }

func (Noop) StartForwarder(ctx context.Context, onSnap func(roomID string, snap *room.Snapshot)) error {
	return nil
}

func (Noop) Close() error { return nil }
