package supabase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/supabase-community/supabase-go"
)

const (
	EventImageGenerationCompleted = "image_generation_completed"
	EventImageGenerationRequested = "image_generation_requested"
	EventImageGenerationExpired   = "image_generation_expired"
	EventAudioCreated             = "audio_created"
	EventZipReady                 = "zip_ready"
)

// eventRow is one row of the realtime events table. Clients subscribe to
// inserts on that table filtered by channel.
type eventRow struct {
	Channel   string         `json:"channel"`
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

type RealtimeClient struct {
	client *supabase.Client
	table  string
	logger *slog.Logger
}

func NewRealtimeClient(client *supabase.Client, table string, logger *slog.Logger) *RealtimeClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RealtimeClient{
		client: client,
		table:  table,
		logger: logger,
	}
}

// PublishEvent inserts the event into the events table. Supabase Realtime
// fans the insert out to subscribers.
func (r *RealtimeClient) PublishEvent(_ context.Context, channel, event string, payload map[string]any) error {
	row := eventRow{
		Channel:   channel,
		Event:     event,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if _, _, err := r.client.From(r.table).Insert(row, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("failed to publish %s on %s: %w", event, channel, err)
	}
	r.logger.Debug("realtime event published", "channel", channel, "event", event)
	return nil
}

func (r *RealtimeClient) PublishProjectEvent(ctx context.Context, projectID, event string, payload map[string]any) error {
	return r.PublishEvent(ctx, ProjectChannel(projectID), event, payload)
}

func ProjectChannel(projectID string) string {
	return fmt.Sprintf("project:%s", projectID)
}

// Event payloads
func ImageGenerationCompletedPayload(projectID, sceneID string, sceneIndex, imageCount int) map[string]any {
	return map[string]any{
		"project_id":  projectID,
		"scene_id":    sceneID,
		"scene_index": sceneIndex,
		"status":      "completed",
		"image_count": imageCount,
	}
}

func ImageGenerationRequestedPayload(projectID string, sceneIDs []string) map[string]any {
	return map[string]any{
		"project_id": projectID,
		"scene_ids":  sceneIDs,
		"status":     "requested",
	}
}

func ImageGenerationExpiredPayload(projectID, sceneID string) map[string]any {
	return map[string]any{
		"project_id": projectID,
		"scene_id":   sceneID,
		"status":     "pending",
	}
}

func AudioCreatedPayload(projectID, audioURL string) map[string]any {
	return map[string]any{
		"project_id": projectID,
		"audio_url":  audioURL,
	}
}

func ZipReadyPayload(projectID, zipURL string, fileCount int) map[string]any {
	return map[string]any{
		"project_id": projectID,
		"zip_url":    zipURL,
		"file_count": fileCount,
	}
}
