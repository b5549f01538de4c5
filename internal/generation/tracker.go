// Package generation drives the per-scene image generation state machine:
// pending, requested, completed. Batch requests move scenes to requested,
// the webhook ingestor completes them and the sweeper returns abandoned
// requests to pending.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ai-videos-backend/internal/logging"
	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/store"
	"ai-videos-backend/internal/supabase"
)

// ImageProvider submits an asynchronous image generation job and returns the
// provider's generation id.
type ImageProvider interface {
	SubmitImageGeneration(ctx context.Context, prompt string) (string, error)
}

// EventPublisher pushes realtime notifications for a project. Failures are
// logged and never fail the operation that published.
type EventPublisher interface {
	PublishProjectEvent(ctx context.Context, projectID, event string, payload map[string]any) error
}

type Tracker struct {
	store     store.Store
	provider  ImageProvider
	publisher EventPublisher
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewTracker(st store.Store, provider ImageProvider, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:    st,
		provider: provider,
		now:      time.Now,
		logger:   logging.WithComponent(logger, "generation_tracker"),
	}
}

// WithTimeout sets how long a request may stay outstanding before a new
// request for the same scene is accepted. Zero means never.
func (t *Tracker) WithTimeout(timeout time.Duration) *Tracker {
	t.timeout = timeout
	return t
}

func (t *Tracker) WithPublisher(p EventPublisher) *Tracker {
	t.publisher = p
	return t
}

func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// IsStale reports whether a requested scene has waited longer than timeout.
func IsStale(scene models.Scene, timeout time.Duration, now time.Time) bool {
	if scene.ImageGenerationStatus != models.StatusRequested || timeout <= 0 {
		return false
	}
	return scene.GenerationRequestedAt == nil || scene.GenerationRequestedAt.Before(now.Add(-timeout))
}

// RequestImages submits one generation job per scene ref. Each scene
// succeeds or fails on its own; failures come back as human readable
// messages next to the refreshed project. Only a missing project or a failed
// re-read is returned as an error.
func (t *Tracker) RequestImages(ctx context.Context, projectID string, refs []models.SceneGenerationRef) (*models.Project, []string, error) {
	project, err := t.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.WithProjectID(t.logger, project.ID)

	scenes := make(map[string]models.Scene, len(project.Scenes))
	for _, s := range project.Scenes {
		scenes[s.ID] = s
	}

	errs := []string{}
	var requested []string
	for _, ref := range refs {
		prompt := strings.TrimSpace(ref.ImagePrompt)
		if prompt == "" {
			errs = append(errs, fmt.Sprintf("Scene %d has no image prompt", ref.Index))
			continue
		}

		scene, ok := scenes[ref.ID]
		if !ok {
			errs = append(errs, fmt.Sprintf("Scene %d not found", ref.Index))
			continue
		}

		if scene.ImageGenerationStatus == models.StatusRequested && !IsStale(scene, t.timeout, t.now()) {
			errs = append(errs, fmt.Sprintf("Scene %d already has a generation in progress", ref.Index))
			continue
		}

		generationID, err := t.provider.SubmitImageGeneration(ctx, prompt)
		if err != nil {
			logger.Warn("image generation rejected", "scene_id", scene.ID, "index", ref.Index, "error", err)
			errs = append(errs, fmt.Sprintf("Error creating image/s for scene %d: %v", ref.Index, err))
			continue
		}

		now := t.now().UTC()
		status := models.StatusRequested
		err = t.store.UpdateScene(ctx, scene.ID, models.SceneUpdate{
			ImagePrompt:           &prompt,
			ImageGenerationStatus: &status,
			GenerationID:          &generationID,
			GenerationRequestedAt: &now,
			UpdatedAt:             now,
			ExpectGenerationID:    &scene.GenerationID,
		})
		if errors.Is(err, store.ErrConflict) {
			logger.Warn("scene changed while requesting generation", "scene_id", scene.ID, "generation_id", generationID)
			errs = append(errs, fmt.Sprintf("Scene %d already has a generation in progress", ref.Index))
			continue
		}
		if err != nil {
			logger.Error("failed to record generation request", "scene_id", scene.ID, "generation_id", generationID, "error", err)
			errs = append(errs, fmt.Sprintf("Error updating scene %d: %v", ref.Index, err))
			continue
		}

		// Later refs to the same scene in this batch see it in flight.
		scene.ImagePrompt = prompt
		scene.ImageGenerationStatus = models.StatusRequested
		scene.GenerationID = generationID
		scene.GenerationRequestedAt = &now
		scenes[scene.ID] = scene

		logger.Info("image generation requested", "scene_id", scene.ID, "index", ref.Index, "generation_id", generationID)
		requested = append(requested, scene.ID)
	}

	if len(requested) > 0 {
		t.publish(ctx, project.ID, supabase.EventImageGenerationRequested,
			supabase.ImageGenerationRequestedPayload(project.ID, requested))
	}

	updated, err := t.store.GetProject(ctx, project.ID)
	if err != nil {
		return nil, errs, fmt.Errorf("failed to reload project: %w", err)
	}
	return updated, errs, nil
}

// Complete attaches the generated images to scene and marks it completed.
// Image inserts that fail are logged and skipped; the scene is completed
// regardless. The webhook ingestor is its only caller.
func (t *Tracker) Complete(ctx context.Context, scene *models.Scene, images []models.Image) (int, error) {
	logger := logging.WithSceneID(logging.WithProjectID(t.logger, scene.ProjectID), scene.ID)

	stored := 0
	for i := range images {
		img := images[i]
		img.SceneID = scene.ID
		if err := t.store.InsertImage(ctx, &img); err != nil {
			logger.Error("failed to insert generated image", "url", img.URL, "error", err)
			continue
		}
		stored++
	}

	status := models.StatusCompleted
	err := t.store.UpdateScene(ctx, scene.ID, models.SceneUpdate{
		ImageGenerationStatus: &status,
		UpdatedAt:             t.now().UTC(),
	})
	if err != nil {
		return stored, fmt.Errorf("failed to complete scene: %w", err)
	}

	logger.Info("image generation completed", "generation_id", scene.GenerationID, "images", stored)
	t.publish(ctx, scene.ProjectID, supabase.EventImageGenerationCompleted,
		supabase.ImageGenerationCompletedPayload(scene.ProjectID, scene.ID, scene.Index, stored))
	return stored, nil
}

func (t *Tracker) publish(ctx context.Context, projectID, event string, payload map[string]any) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.PublishProjectEvent(ctx, projectID, event, payload); err != nil {
		t.logger.Warn("failed to publish realtime event", "event", event, "project_id", projectID, "error", err)
	}
}
