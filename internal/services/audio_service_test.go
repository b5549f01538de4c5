package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/services"
	"ai-videos-backend/internal/store"
	"ai-videos-backend/internal/store/memory"
)

func TestResolveVoiceSettings(t *testing.T) {
	assert.Equal(t, services.DefaultVoiceSettings, services.ResolveVoiceSettings(nil))

	speed := 1.1
	boost := false
	got := services.ResolveVoiceSettings(&models.VoiceSettings{Speed: &speed, UseSpeakerBoost: &boost})
	assert.Equal(t, 1.1, got.Speed)
	assert.False(t, got.UseSpeakerBoost)
	assert.Equal(t, 0.5, got.Stability)
	assert.Equal(t, 0.75, got.SimilarityBoost)
	assert.Equal(t, 0.9, got.Style)
}

func TestAudioService_CreateAudio(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	p, err := services.NewProjectService(st, nil, nil).Create(ctx, createRequest("a"))
	require.NoError(t, err)

	speech := &fakeSpeech{}
	storage := newMemoryStorage()
	publisher := &fakePublisher{}
	at := time.UnixMilli(1700000000123).UTC()
	svc := services.NewAudioService(st, speech, storage, nil).
		WithPublisher(publisher).
		WithClock(func() time.Time { return at })

	updated, err := svc.CreateAudio(ctx, p.ID, &models.CreateAudioRequest{Script: "Narrated script"})
	require.NoError(t, err)

	path := "audio/" + p.ID + "_1700000000123.mp3"
	assert.Equal(t, publicPrefix+path, updated.AudioURL)
	assert.Equal(t, "Narrated script", updated.Script)
	assert.Equal(t, []byte("mp3:Narrated script"), storage.objects[path])
	assert.Equal(t, "audio/mpeg", storage.contentTypes[path])
	assert.Equal(t, services.DefaultVoiceSettings, speech.settings)
	assert.Equal(t, []string{"audio_created"}, publisher.events)
}

func TestAudioService_Errors(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	p, err := services.NewProjectService(st, nil, nil).Create(ctx, createRequest("a"))
	require.NoError(t, err)

	speech := &fakeSpeech{}
	svc := services.NewAudioService(st, speech, newMemoryStorage(), nil)

	_, err = svc.CreateAudio(ctx, p.ID, &models.CreateAudioRequest{Script: " "})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.CreateAudio(ctx, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", &models.CreateAudioRequest{Script: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, speech.calls)

	speech.err = errors.New("quota exceeded")
	_, err = svc.CreateAudio(ctx, p.ID, &models.CreateAudioRequest{Script: "x"})
	assert.ErrorContains(t, err, "quota exceeded")

	unconfigured := services.NewAudioService(st, nil, nil, nil)
	_, err = unconfigured.CreateAudio(ctx, p.ID, &models.CreateAudioRequest{Script: "x"})
	assert.ErrorIs(t, err, services.ErrUnavailable)
}
