package generation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-videos-backend/internal/generation"
	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/store"
	"ai-videos-backend/internal/store/memory"
)

func TestSweep_ResetsOnlyStaleRequestedScenes(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tracker := generation.NewTracker(st, &fakeProvider{}, nil).WithClock(clock)
	publisher := &fakePublisher{}
	sweeper := generation.NewSweeper(st, 15*time.Minute, time.Minute, nil).WithClock(clock).WithPublisher(publisher)

	p := newProject(t, st, "a", "b", "c")

	// Scene 0 is requested long ago, scene 1 recently, scene 2 stays pending.
	_, _, err := tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{ref(p.Scenes[0])})
	require.NoError(t, err)
	now = now.Add(30 * time.Minute)
	_, _, err = tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{ref(p.Scenes[1])})
	require.NoError(t, err)

	reset, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reset)

	got, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Scenes[0].ImageGenerationStatus)
	assert.Empty(t, got.Scenes[0].GenerationID)
	assert.Nil(t, got.Scenes[0].GenerationRequestedAt)
	assert.Equal(t, models.StatusRequested, got.Scenes[1].ImageGenerationStatus)
	assert.NotEmpty(t, got.Scenes[1].GenerationID)
	assert.Equal(t, models.StatusPending, got.Scenes[2].ImageGenerationStatus)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "image_generation_expired", publisher.events[0].event)
}

func TestSweep_LeavesCompletedScenes(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tracker := generation.NewTracker(st, &fakeProvider{}, nil).WithClock(clock)
	sweeper := generation.NewSweeper(st, 15*time.Minute, time.Minute, nil).WithClock(clock)

	p := newProject(t, st, "a")
	requested, _, err := tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{ref(p.Scenes[0])})
	require.NoError(t, err)
	scene := requested.Scenes[0]
	_, err = tracker.Complete(ctx, &scene, []models.Image{{URL: "https://cdn/1.png"}})
	require.NoError(t, err)

	now = now.Add(time.Hour)
	reset, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, reset)

	got, err := st.GetScene(ctx, scene.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.ImageGenerationStatus)
}

func TestSweeper_StartDisabledWithoutTimeout(t *testing.T) {
	sweeper := generation.NewSweeper(memory.New(), 0, 0, nil)
	assert.NoError(t, sweeper.Start(context.Background()))
	sweeper.Stop()
}

func TestSweeper_StartRejectsZeroInterval(t *testing.T) {
	sweeper := generation.NewSweeper(memory.New(), time.Minute, 0, nil)
	assert.Error(t, sweeper.Start(context.Background()))
}

func TestSweeper_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := generation.NewSweeper(memory.New(), time.Minute, time.Hour, nil)
	require.NoError(t, sweeper.Start(ctx))

	cancel()
	sweeper.Stop()
}

// completingStore completes the scene through the tracker right after the
// sweeper re-reads it, as a webhook landing mid-sweep would.
type completingStore struct {
	store.Store
	tracker *generation.Tracker
	done    bool
}

func (s *completingStore) GetScene(ctx context.Context, id string) (*models.Scene, error) {
	scene, err := s.Store.GetScene(ctx, id)
	if err != nil || s.done {
		return scene, err
	}
	s.done = true
	completed := *scene
	if _, err := s.tracker.Complete(ctx, &completed, []models.Image{{URL: "https://cdn/late.png"}}); err != nil {
		return nil, err
	}
	return scene, nil
}

func TestSweep_CompletionBetweenReadAndResetWins(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tracker := generation.NewTracker(inner, &fakeProvider{}, nil).WithClock(clock)
	st := &completingStore{Store: inner, tracker: tracker}
	publisher := &fakePublisher{}
	sweeper := generation.NewSweeper(st, 15*time.Minute, time.Minute, nil).WithClock(clock).WithPublisher(publisher)

	p := newProject(t, inner, "a")
	requested, _, err := tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{ref(p.Scenes[0])})
	require.NoError(t, err)
	genID := requested.Scenes[0].GenerationID

	now = now.Add(time.Hour)
	reset, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, reset)
	assert.True(t, st.done)

	got, err := inner.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Scenes[0].ImageGenerationStatus)
	assert.Equal(t, genID, got.Scenes[0].GenerationID)
	assert.Len(t, got.Scenes[0].Images, 1)
	for _, e := range publisher.events {
		assert.NotEqual(t, "image_generation_expired", e.event)
	}
}
