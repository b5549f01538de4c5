// Package webhook ingests Leonardo.AI generation callbacks. It is the only
// path that moves a scene from requested to completed.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"ai-videos-backend/internal/logging"
	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/store"
)

const EventImageGenerationComplete = "image_generation.complete"

var (
	ErrMalformedPayload  = errors.New("malformed webhook payload")
	ErrUnexpectedType    = errors.New("unexpected webhook type")
	ErrNoImages          = errors.New("no images found in generation data")
	ErrUnknownGeneration = errors.New("scene not found for generation id")
)

type Payload struct {
	Type string `json:"type"`
	Data struct {
		Object *GenerationObject `json:"object"`
	} `json:"data"`
}

type GenerationObject struct {
	ID     string  `json:"id"`
	Images []Asset `json:"images"`
}

type Asset struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Completer attaches images to a scene and marks it completed.
type Completer interface {
	Complete(ctx context.Context, scene *models.Scene, images []models.Image) (int, error)
}

type Result struct {
	ProjectID    string
	SceneID      string
	GenerationID string
	Images       int
}

type Ingestor struct {
	store     store.Store
	completer Completer
	logger    *slog.Logger
}

func NewIngestor(st store.Store, completer Completer, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:     st,
		completer: completer,
		logger:    logging.WithComponent(logger, "webhook_ingestor"),
	}
}

// Parse validates body in order: well formed JSON, expected event type,
// at least one image.
func Parse(body []byte) (*GenerationObject, error) {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Type != EventImageGenerationComplete {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedType, payload.Type)
	}
	if payload.Data.Object == nil || len(payload.Data.Object.Images) == 0 {
		return nil, ErrNoImages
	}
	return payload.Data.Object, nil
}

// Ingest validates the callback, resolves its generation id to a scene and
// completes that scene. Nothing is written unless every check passes.
func (i *Ingestor) Ingest(ctx context.Context, body []byte) (*Result, error) {
	object, err := Parse(body)
	if err != nil {
		i.logger.Warn("webhook rejected", "error", err)
		return nil, err
	}

	scene, err := i.store.FindSceneByGenerationID(ctx, object.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			i.logger.Warn("webhook rejected", "generation_id", object.ID, "error", ErrUnknownGeneration)
			return nil, fmt.Errorf("%w: %s", ErrUnknownGeneration, object.ID)
		}
		return nil, fmt.Errorf("failed to resolve generation %s: %w", object.ID, err)
	}

	images := make([]models.Image, 0, len(object.Images))
	for _, asset := range object.Images {
		images = append(images, models.Image{
			SceneID:    scene.ID,
			URL:        asset.URL,
			ProviderID: asset.ID,
		})
	}

	stored, err := i.completer.Complete(ctx, scene, images)
	if err != nil {
		return nil, err
	}

	return &Result{
		ProjectID:    scene.ProjectID,
		SceneID:      scene.ID,
		GenerationID: object.ID,
		Images:       stored,
	}, nil
}
