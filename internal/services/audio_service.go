package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ai-videos-backend/internal/elevenlabs"
	"ai-videos-backend/internal/logging"
	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/store"
	"ai-videos-backend/internal/supabase"
)

// SpeechSynthesizer renders text as mp3 audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, settings elevenlabs.VoiceSettings) ([]byte, error)
}

// DefaultVoiceSettings is the narration voice used when the request omits a setting.
var DefaultVoiceSettings = elevenlabs.VoiceSettings{
	Speed:           0.75,
	Stability:       0.5,
	SimilarityBoost: 0.75,
	Style:           0.9,
	UseSpeakerBoost: true,
}

// ResolveVoiceSettings overlays the supplied settings on the defaults.
func ResolveVoiceSettings(in *models.VoiceSettings) elevenlabs.VoiceSettings {
	out := DefaultVoiceSettings
	if in == nil {
		return out
	}
	if in.Speed != nil {
		out.Speed = *in.Speed
	}
	if in.Stability != nil {
		out.Stability = *in.Stability
	}
	if in.SimilarityBoost != nil {
		out.SimilarityBoost = *in.SimilarityBoost
	}
	if in.Style != nil {
		out.Style = *in.Style
	}
	if in.UseSpeakerBoost != nil {
		out.UseSpeakerBoost = *in.UseSpeakerBoost
	}
	return out
}

type AudioService struct {
	store     store.Store
	speech    SpeechSynthesizer
	storage   AssetStorage
	publisher EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

func NewAudioService(st store.Store, speech SpeechSynthesizer, storage AssetStorage, logger *slog.Logger) *AudioService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioService{
		store:   st,
		speech:  speech,
		storage: storage,
		now:     time.Now,
		logger:  logging.WithComponent(logger, "audio_service"),
	}
}

func (s *AudioService) WithPublisher(p EventPublisher) *AudioService {
	s.publisher = p
	return s
}

func (s *AudioService) WithClock(now func() time.Time) *AudioService {
	s.now = now
	return s
}

// CreateAudio narrates script, stores the mp3 and points the project at it.
// The project's script is replaced with the narrated one.
func (s *AudioService) CreateAudio(ctx context.Context, projectID string, req *models.CreateAudioRequest) (*models.Project, error) {
	if strings.TrimSpace(req.Script) == "" {
		return nil, fmt.Errorf("%w: script is required", models.ErrValidation)
	}
	if s.speech == nil || s.storage == nil {
		return nil, fmt.Errorf("audio generation: %w", ErrUnavailable)
	}

	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	logger := logging.WithProjectID(s.logger, projectID)

	audio, err := s.speech.Synthesize(ctx, req.Script, ResolveVoiceSettings(req.VoiceSettings))
	if err != nil {
		return nil, fmt.Errorf("failed to create audio: %w", err)
	}

	now := s.now().UTC()
	audioURL, err := s.storage.Upload(AssetPath(AudioFolder, projectID, now, "mp3"), audio, "audio/mpeg")
	if err != nil {
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}

	script := req.Script
	err = s.store.UpdateProject(ctx, projectID, models.ProjectUpdate{
		AudioURL:  &audioURL,
		Script:    &script,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("audio created", "bytes", len(audio), "url", audioURL)

	publish(ctx, s.publisher, s.logger, projectID, supabase.EventAudioCreated,
		supabase.AudioCreatedPayload(projectID, audioURL))

	return s.store.GetProject(ctx, projectID)
}
