// Package app wires the full server: config, logging, the room store, the
// patch pipeline, transcription, personalization, the snapshot bus and the
// HTTP/websocket transport.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/ai/provider"
	"github.com/yungbote/senseboard-backend/internal/ai/scheduler"
	"github.com/yungbote/senseboard-backend/internal/config"
	senseHTTP "github.com/yungbote/senseboard-backend/internal/http"
	httpH "github.com/yungbote/senseboard-backend/internal/http/handlers"
	"github.com/yungbote/senseboard-backend/internal/observability"
	"github.com/yungbote/senseboard-backend/internal/personalization"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
	"github.com/yungbote/senseboard-backend/internal/room"
	"github.com/yungbote/senseboard-backend/internal/room/bus"
	"github.com/yungbote/senseboard-backend/internal/transcribe"
	"github.com/yungbote/senseboard-backend/internal/ws"
)

const publishTimeout = 3 * time.Second

type App struct {
	Log        *logger.Logger
	Cfg        config.Config
	InstanceID string

	Store     *room.Store
	Profiles  personalization.Store
	Engine    *ai.Engine
	Scheduler *scheduler.Scheduler
	Bus       bus.Bus

	transcriber transcribe.Provider
	server      *senseHTTP.Server
	cancel      context.CancelFunc
}

func New(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		log.Warn("metrics init failed, continuing without", "error", err)
		metrics = nil
	}

	store := room.NewStore(log)

	profiles := wireProfiles(log, cfg)

	aiProvider, err := provider.Resolve(log, cfg.AI)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("resolve ai provider: %w", err)
	}
	log.Info("ai provider resolved", "provider", aiProvider.Name())

	engine := ai.NewEngine(log, aiProvider, cfg.AI.Review.MaxRevisions, cfg.AI.Review.ConfidenceThreshold)
	sched := scheduler.New(log, store, engine, profiles, metrics, scheduler.Options{})

	transcriber, err := transcribe.Resolve(log, cfg)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("resolve transcription provider: %w", err)
	}
	log.Info("transcription provider resolved", "provider", transcriber.Name())

	capture := transcribe.NewCapture(log, cfg.Capture.TranscriptionChunks)

	snapBus := wireBus(log, cfg)
	store.SetSnapshotListener(func(roomID string, snap *room.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := snapBus.Publish(ctx, roomID, snap); err != nil {
			log.Warn("snapshot publish failed", "room_id", roomID, "error", err)
		}
	})

	instanceID := uuid.NewString()
	server := senseHTTP.NewServer(log, senseHTTP.RouterConfig{
		HealthHandler:          httpH.NewHealthHandler(instanceID),
		RoomHandler:            httpH.NewRoomHandler(log, store),
		AIHandler:              httpH.NewAIHandler(log, store, sched, engine),
		TranscribeHandler:      httpH.NewTranscribeHandler(log, store, transcriber, capture),
		PersonalizationHandler: httpH.NewPersonalizationHandler(log, profiles),
		WSHandler:              ws.NewHandler(log, store, metrics),
	})

	return &App{
		Log:         log,
		Cfg:         cfg,
		InstanceID:  instanceID,
		Store:       store,
		Profiles:    profiles,
		Engine:      engine,
		Scheduler:   sched,
		Bus:         snapBus,
		transcriber: transcriber,
		server:      server,
	}, nil
}

// wireProfiles opens the sqlite-backed store, falling back to memory when the
// database cannot be opened so a bad path never takes the server down.
func wireProfiles(log *logger.Logger, cfg config.Config) personalization.Store {
	if cfg.Store.PersonalizationPath == "" {
		return personalization.NewMemory()
	}
	s, err := personalization.NewSQLite(log, cfg.Store.PersonalizationPath)
	if err != nil {
		log.Warn("personalization db unavailable, using in-memory store",
			"path", cfg.Store.PersonalizationPath, "error", err)
		return personalization.NewMemory()
	}
	return s
}

// wireBus connects the redis snapshot bus when an address is configured. A
// single-instance deployment runs on the noop bus.
func wireBus(log *logger.Logger, cfg config.Config) bus.Bus {
	if cfg.Bus.RedisAddr == "" {
		return bus.NewNoop()
	}
	b, err := bus.NewRedis(log, cfg.Bus)
	if err != nil {
		log.Warn("redis bus unavailable, running single-instance", "error", err)
		return bus.NewNoop()
	}
	return b
}

// Run binds a port and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.Bus.StartForwarder(runCtx, a.Store.ForwardSnapshot); err != nil {
		a.Log.Warn("snapshot forwarder failed to start", "error", err)
	}

	ln, port, err := a.server.Listen(a.Cfg.Server.Port, a.Cfg.Server.PortScanSpan)
	if err != nil {
		return err
	}
	a.Log.Info("server listening", "port", port, "instance_id", a.InstanceID)
	return a.server.Serve(runCtx, ln)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if err := a.Bus.Close(); err != nil {
		a.Log.Warn("bus close failed", "error", err)
	}
	if err := a.Profiles.Close(); err != nil {
		a.Log.Warn("profile store close failed", "error", err)
	}
	if err := a.transcriber.Close(); err != nil {
		a.Log.Warn("transcriber close failed", "error", err)
	}
	a.Log.Sync()
}
