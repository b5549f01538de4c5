package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"ai-videos-backend/internal/logging"
	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/store"
	"ai-videos-backend/internal/supabase"
)

// Sweeper periodically returns scenes whose generation request outlived the
// timeout to pending. A webhook arriving later for such a scene no longer
// correlates and is rejected.
type Sweeper struct {
	store     store.Store
	timeout   time.Duration
	interval  time.Duration
	publisher EventPublisher
	now       func() time.Time
	logger    *slog.Logger

	cron *cron.Cron
}

func NewSweeper(st store.Store, timeout, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    st,
		timeout:  timeout,
		interval: interval,
		now:      time.Now,
		logger:   logging.WithComponent(logger, "generation_sweeper"),
	}
}

func (s *Sweeper) WithPublisher(p EventPublisher) *Sweeper {
	s.publisher = p
	return s
}

func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Start schedules Sweep every interval until ctx is done or Stop is called.
// A zero timeout leaves the sweeper disabled.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.timeout <= 0 {
		s.logger.Info("stale generation sweeper disabled")
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}

	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("stale generation sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweeper: %w", err)
	}
	s.cron.Start()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("stale generation sweeper started", "interval", s.interval.String(), "timeout", s.timeout.String())
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Sweep resets every stale requested scene and returns how many were reset.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()
	stale, err := s.store.ListStaleScenes(ctx, now.Add(-s.timeout))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale scenes: %w", err)
	}

	reset := 0
	for _, candidate := range stale {
		// The webhook may have completed the scene since it was listed.
		current, err := s.store.GetScene(ctx, candidate.ID)
		if err != nil {
			s.logger.Warn("failed to re-read stale scene", "scene_id", candidate.ID, "error", err)
			continue
		}
		if !IsStale(*current, s.timeout, now) || current.GenerationID != candidate.GenerationID {
			continue
		}

		// The reset only lands if the scene is still requested under the same
		// generation, so a completion racing this sweep wins.
		status, expected := models.StatusPending, models.StatusRequested
		err = s.store.UpdateScene(ctx, current.ID, models.SceneUpdate{
			ImageGenerationStatus: &status,
			ClearGenerationID:     true,
			UpdatedAt:             now,
			ExpectStatus:          &expected,
			ExpectGenerationID:    &current.GenerationID,
		})
		if errors.Is(err, store.ErrConflict) {
			s.logger.Debug("stale scene changed before reset, skipping", "scene_id", current.ID)
			continue
		}
		if err != nil {
			s.logger.Error("failed to reset stale scene", "scene_id", current.ID, "error", err)
			continue
		}

		s.logger.Warn("generation request expired",
			"project_id", current.ProjectID, "scene_id", current.ID, "generation_id", current.GenerationID)
		reset++

		if s.publisher != nil {
			if err := s.publisher.PublishProjectEvent(ctx, current.ProjectID, supabase.EventImageGenerationExpired,
				supabase.ImageGenerationExpiredPayload(current.ProjectID, current.ID)); err != nil {
				s.logger.Warn("failed to publish realtime event", "event", supabase.EventImageGenerationExpired, "error", err)
			}
		}
	}
	return reset, nil
}
