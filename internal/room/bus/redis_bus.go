package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
	"github.com/yungbote/senseboard-backend/internal/room"
)

const snapshotChannel = "senseboard:snapshots"

type envelope struct {
	Instance string         `json:"instance"`
	RoomID   string         `json:"roomId"`
	Snapshot *room.Snapshot `json:"snapshot"`
}

type redisBus struct {
	log      *logger.Logger
	rdb      *goredis.Client
	instance string
}

func NewRedis(log *logger.Logger, cfg config.BusConfig) (Bus, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log:      log.With("service", "RedisSnapshotBus"),
		rdb:      rdb,
		instance: uuid.NewString(),
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, roomID string, snap *room.Snapshot) error {
	raw, err := json.Marshal(envelope{Instance: b.instance, RoomID: roomID, Snapshot: snap})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, snapshotChannel, raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onSnap func(roomID string, snap *room.Snapshot)) error {
	if onSnap == nil {
		return fmt.Errorf("onSnap callback required")
	}

	sub := b.rdb.Subscribe(ctx, snapshotChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					b.log.Warn("bad snapshot payload", "error", err)
					continue
				}
				// Skip our own publishes; local sessions already got them.
				if env.Instance == b.instance || env.Snapshot == nil {
					continue
				}
				onSnap(env.RoomID, env.Snapshot)
			}
		}
	}()

	return nil
}

func (b *redisBus) Close() error {
	return b.rdb.Close()
}
