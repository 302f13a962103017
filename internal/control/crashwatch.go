package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/crashwatch/internal/core/config"
	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/core/worker"
	redisclient "github.com/vietddude/crashwatch/internal/infra/redis"
	"github.com/vietddude/crashwatch/internal/infra/storage"
	"github.com/vietddude/crashwatch/internal/infra/storage/memory"
	"github.com/vietddude/crashwatch/internal/infra/storage/postgres"
	"github.com/vietddude/crashwatch/internal/verify/health"
)

// queuePollInterval is how often the queue worker looks for pending requests.
const queuePollInterval = 5 * time.Second

// Crashwatch is the main application struct that manages the verification
// lifecycle across all configured targets.
type Crashwatch struct {
	cfg          config.AppConfig
	targets      map[string]domain.Target
	sessions     storage.SessionRepository
	db           *postgres.DB
	redisClient  *redisclient.Client
	queue        *redisclient.VerificationQueue
	healthMon    *health.Monitor
	healthServer *health.Server
	pruner       *worker.Pruner
	log          *slog.Logger
	wg           sync.WaitGroup
}

// NewCrashwatch creates a new Crashwatch instance with all dependencies
// initialized.
func NewCrashwatch(cfg config.AppConfig) (*Crashwatch, error) {
	// 1. Initialize Storage
	var sessions storage.SessionRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate("migrations"); err != nil {
			return nil, err
		}
		sessions = postgres.NewSessionRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		sessions = memory.NewSessionRepo()
		slog.Info("Using Memory storage")
	}

	// 2. Targets
	targets := make(map[string]domain.Target, len(cfg.Targets))
	names := make([]string, 0, len(cfg.Targets))
	for _, tc := range cfg.Targets {
		t := tc.Target()
		targets[t.Name] = t
		names = append(names, t.Name)
	}

	// 3. Redis queue (optional)
	var redisClient *redisclient.Client
	var queue *redisclient.VerificationQueue
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, queue disabled", "error", err)
		} else {
			queue = redisclient.NewVerificationQueue(redisClient)
		}
	}

	// 4. Health Monitor + Server
	var counter health.QueueCounter
	if queue != nil {
		counter = queue
	}
	healthMon := health.NewMonitor(names, sessions, counter)
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	return &Crashwatch{
		cfg:          cfg,
		targets:      targets,
		sessions:     sessions,
		db:           db,
		redisClient:  redisClient,
		queue:        queue,
		healthMon:    healthMon,
		healthServer: healthServer,
		pruner:       worker.NewPruner(cfg.LogDir, cfg.LogRetention, slog.Default()),
		log:          slog.Default(),
	}, nil
}

// Sessions exposes the session store, e.g. for status reporting.
func (c *Crashwatch) Sessions() storage.SessionRepository {
	return c.sessions
}

// VerifyTarget runs one full crash/verify cycle against a named target.
func (c *Crashwatch) VerifyTarget(ctx context.Context, name string) (*domain.Session, error) {
	target, ok := c.targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown target: %s", name)
	}

	if c.redisClient != nil {
		ttl := c.cfg.Verify.SessionTimeout + time.Minute
		locked, err := c.redisClient.AcquireTargetLock(ctx, name, ttl)
		if err != nil {
			c.log.Warn("Target lock check failed, proceeding", "target", name, "error", err)
		} else if !locked {
			return nil, fmt.Errorf("target %s already has a session running", name)
		} else {
			defer func() {
				if err := c.redisClient.ReleaseTargetLock(context.WithoutCancel(ctx), name); err != nil {
					c.log.Warn("Failed to release target lock", "target", name, "error", err)
				}
			}()
		}
	}

	runner := NewRunner(target, c.cfg.Verify, c.sessions, c.cfg.LogDir, c.log)
	return runner.Run(ctx)
}

// Start starts the health server and the queue worker. Verification cycles
// are driven by queued requests; Enqueue adds one for each configured target
// when bootVerify is set.
func (c *Crashwatch) Start(ctx context.Context, bootVerify bool) error {
	go func() {
		if err := c.healthServer.Start(); err != nil {
			c.log.Error("Health server failed", "error", err)
		}
	}()

	if bootVerify {
		for name := range c.targets {
			if err := c.Enqueue(ctx, name); err != nil {
				c.log.Warn("Failed to enqueue boot verification", "target", name, "error", err)
			}
		}
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runQueueWorker(ctx)
	}()

	go c.pruner.Start(ctx)

	return nil
}

// Enqueue queues a verification request for a target. Without Redis the
// request runs immediately in the background instead.
func (c *Crashwatch) Enqueue(ctx context.Context, name string) error {
	if _, ok := c.targets[name]; !ok {
		return fmt.Errorf("unknown target: %s", name)
	}

	if c.queue == nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if _, err := c.VerifyTarget(ctx, name); err != nil {
				c.log.Error("Verification failed", "target", name, "error", err)
			}
		}()
		return nil
	}

	return c.queue.Enqueue(ctx, &domain.VerificationRequest{
		ID:          uuid.New().String(),
		Target:      name,
		RequestedAt: time.Now(),
	})
}

func (c *Crashwatch) runQueueWorker(ctx context.Context) {
	if c.queue == nil {
		return
	}

	ticker := time.NewTicker(queuePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			req, err := c.queue.Dequeue(ctx)
			if err != nil {
				c.log.Warn("Queue dequeue failed", "error", err)
				continue
			}
			if req == nil {
				continue
			}

			c.log.Info("Processing verification request",
				"request", req.ID,
				"target", req.Target,
				"attempts", req.Attempts,
			)
			if _, err := c.VerifyTarget(ctx, req.Target); err != nil {
				c.log.Error("Verification failed", "target", req.Target, "error", err)
			}
		}
	}
}

// Stop stops the crashwatch service.
func (c *Crashwatch) Stop(ctx context.Context) error {
	c.log.Info("Stopping crashwatch...")
	c.wg.Wait()

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.log.Warn("Failed to close database", "error", err)
		}
	}

	return c.healthServer.Stop(ctx)
}
