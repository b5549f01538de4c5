package generation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-videos-backend/internal/generation"
	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/store"
	"ai-videos-backend/internal/store/memory"
)

type fakeProvider struct {
	mu      sync.Mutex
	prompts []string
	fail    map[string]error
}

func (p *fakeProvider) SubmitImageGeneration(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[prompt]; err != nil {
		return "", err
	}
	p.prompts = append(p.prompts, prompt)
	return fmt.Sprintf("gen-%d", len(p.prompts)), nil
}

type recordedEvent struct {
	projectID string
	event     string
	payload   map[string]any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) PublishProjectEvent(_ context.Context, projectID, event string, payload map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{projectID, event, payload})
	return nil
}

func newProject(t *testing.T, st store.Store, prompts ...string) *models.Project {
	t.Helper()
	p := &models.Project{Title: "t", Description: "d", Script: "s"}
	for i, prompt := range prompts {
		p.Scenes = append(p.Scenes, models.Scene{
			Text:                  fmt.Sprintf("scene %d", i),
			ImagePrompt:           prompt,
			VideoPrompt:           "v",
			ImageGenerationStatus: models.StatusPending,
			VideoGenerationStatus: models.StatusPending,
		})
	}
	require.NoError(t, st.CreateProject(context.Background(), p))
	return p
}

func ref(s models.Scene) models.SceneGenerationRef {
	return models.SceneGenerationRef{ID: s.ID, Index: s.Index, ImagePrompt: s.ImagePrompt}
}

func TestRequestImages_TransitionsToRequested(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	provider := &fakeProvider{}
	publisher := &fakePublisher{}
	tracker := generation.NewTracker(st, provider, nil).WithPublisher(publisher)

	p := newProject(t, st, "a", "b", "c")

	updated, errs, err := tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{ref(p.Scenes[0]), ref(p.Scenes[2])})
	require.NoError(t, err)
	assert.Empty(t, errs)

	require.Len(t, updated.Scenes, 3)
	assert.Equal(t, models.StatusRequested, updated.Scenes[0].ImageGenerationStatus)
	assert.Equal(t, models.StatusPending, updated.Scenes[1].ImageGenerationStatus)
	assert.Equal(t, models.StatusRequested, updated.Scenes[2].ImageGenerationStatus)

	assert.NotEmpty(t, updated.Scenes[0].GenerationID)
	assert.NotEmpty(t, updated.Scenes[2].GenerationID)
	assert.NotEqual(t, updated.Scenes[0].GenerationID, updated.Scenes[2].GenerationID)
	assert.NotNil(t, updated.Scenes[0].GenerationRequestedAt)
	assert.Empty(t, updated.Scenes[1].GenerationID)

	assert.Equal(t, []string{"a", "c"}, provider.prompts)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "image_generation_requested", publisher.events[0].event)
}

func TestRequestImages_EmptyPromptIsPerSceneError(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	tracker := generation.NewTracker(st, &fakeProvider{}, nil)

	p := newProject(t, st, "a", "b", "c", "d")
	refs := []models.SceneGenerationRef{ref(p.Scenes[0]), ref(p.Scenes[1]), ref(p.Scenes[2]), ref(p.Scenes[3])}
	refs[2].ImagePrompt = "   "

	updated, errs, err := tracker.RequestImages(ctx, p.ID, refs)
	require.NoError(t, err)
	assert.Equal(t, []string{"Scene 2 has no image prompt"}, errs)

	requested := 0
	for _, s := range updated.Scenes {
		if s.ImageGenerationStatus == models.StatusRequested {
			requested++
		}
	}
	assert.Equal(t, 3, requested)
	assert.Equal(t, models.StatusPending, updated.Scenes[2].ImageGenerationStatus)
}

func TestRequestImages_ProviderFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	provider := &fakeProvider{fail: map[string]error{"b": errors.New("content moderated")}}
	tracker := generation.NewTracker(st, provider, nil)

	p := newProject(t, st, "a", "b", "c")

	updated, errs, err := tracker.RequestImages(ctx, p.ID,
		[]models.SceneGenerationRef{ref(p.Scenes[0]), ref(p.Scenes[1]), ref(p.Scenes[2])})
	require.NoError(t, err)
	assert.Equal(t, []string{"Error creating image/s for scene 1: content moderated"}, errs)
	assert.Equal(t, models.StatusRequested, updated.Scenes[0].ImageGenerationStatus)
	assert.Equal(t, models.StatusPending, updated.Scenes[1].ImageGenerationStatus)
	assert.Equal(t, models.StatusRequested, updated.Scenes[2].ImageGenerationStatus)
}

func TestRequestImages_UsesSubmittedPrompt(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	provider := &fakeProvider{}
	tracker := generation.NewTracker(st, provider, nil)

	p := newProject(t, st, "old prompt")
	r := ref(p.Scenes[0])
	r.ImagePrompt = "new prompt"

	updated, errs, err := tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{r})
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, "new prompt", updated.Scenes[0].ImagePrompt)
	assert.Equal(t, []string{"new prompt"}, provider.prompts)
}

func TestRequestImages_UnknownScene(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	tracker := generation.NewTracker(st, &fakeProvider{}, nil)

	p := newProject(t, st, "a")
	other := newProject(t, st, "x")

	_, errs, err := tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{
		{ID: other.Scenes[0].ID, Index: 7, ImagePrompt: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Scene 7 not found"}, errs)
}

func TestRequestImages_UnknownProject(t *testing.T) {
	tracker := generation.NewTracker(memory.New(), &fakeProvider{}, nil)

	_, _, err := tracker.RequestImages(context.Background(), "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, _, err = tracker.RequestImages(context.Background(), "not-an-id", nil)
	assert.ErrorIs(t, err, store.ErrInvalidID)
}

func TestRequestImages_RejectsInFlightUnlessStale(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tracker := generation.NewTracker(st, &fakeProvider{}, nil).WithTimeout(15 * time.Minute).WithClock(clock)

	p := newProject(t, st, "a")
	first, errs, err := tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{ref(p.Scenes[0])})
	require.NoError(t, err)
	require.Empty(t, errs)
	firstID := first.Scenes[0].GenerationID

	now = now.Add(5 * time.Minute)
	_, errs, err = tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{ref(p.Scenes[0])})
	require.NoError(t, err)
	assert.Equal(t, []string{"Scene 0 already has a generation in progress"}, errs)

	now = now.Add(20 * time.Minute)
	second, errs, err := tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{ref(p.Scenes[0])})
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.NotEqual(t, firstID, second.Scenes[0].GenerationID)
	assert.Equal(t, models.StatusRequested, second.Scenes[0].ImageGenerationStatus)
}

func TestComplete_AppendsImagesAndAllowsRegeneration(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	publisher := &fakePublisher{}
	tracker := generation.NewTracker(st, &fakeProvider{}, nil).WithPublisher(publisher)

	p := newProject(t, st, "a")
	requested, _, err := tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{ref(p.Scenes[0])})
	require.NoError(t, err)

	scene := requested.Scenes[0]
	stored, err := tracker.Complete(ctx, &scene, []models.Image{
		{URL: "https://cdn/1.png", ProviderID: "img-1"},
		{URL: "https://cdn/2.png", ProviderID: "img-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	got, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Scenes[0].ImageGenerationStatus)
	assert.Len(t, got.Scenes[0].Images, 2)

	// Regenerating a completed scene keeps its images.
	regen, errs, err := tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{ref(got.Scenes[0])})
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, models.StatusRequested, regen.Scenes[0].ImageGenerationStatus)
	assert.NotEqual(t, scene.GenerationID, regen.Scenes[0].GenerationID)
	assert.Len(t, regen.Scenes[0].Images, 2)

	var completed []recordedEvent
	for _, e := range publisher.events {
		if e.event == "image_generation_completed" {
			completed = append(completed, e)
		}
	}
	require.Len(t, completed, 1)
	assert.Equal(t, p.ID, completed[0].projectID)
	assert.Equal(t, 2, completed[0].payload["image_count"])
}

type flakyImageStore struct {
	store.Store
	failURL string
}

func (s *flakyImageStore) InsertImage(ctx context.Context, img *models.Image) error {
	if img.URL == s.failURL {
		return errors.New("write conflict")
	}
	return s.Store.InsertImage(ctx, img)
}

func TestComplete_SkipsFailedInserts(t *testing.T) {
	ctx := context.Background()
	st := &flakyImageStore{Store: memory.New(), failURL: "https://cdn/bad.png"}
	tracker := generation.NewTracker(st, &fakeProvider{}, nil)

	p := newProject(t, st, "a")
	scene := p.Scenes[0]

	stored, err := tracker.Complete(ctx, &scene, []models.Image{
		{URL: "https://cdn/ok.png"},
		{URL: "https://cdn/bad.png"},
		{URL: "https://cdn/ok2.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	got, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Scenes[0].ImageGenerationStatus)
	assert.Len(t, got.Scenes[0].Images, 2)
}

func TestIsStale(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-time.Hour)
	recent := now.Add(-time.Minute)

	assert.True(t, generation.IsStale(models.Scene{ImageGenerationStatus: models.StatusRequested, GenerationRequestedAt: &old}, 15*time.Minute, now))
	assert.True(t, generation.IsStale(models.Scene{ImageGenerationStatus: models.StatusRequested}, 15*time.Minute, now))
	assert.False(t, generation.IsStale(models.Scene{ImageGenerationStatus: models.StatusRequested, GenerationRequestedAt: &recent}, 15*time.Minute, now))
	assert.False(t, generation.IsStale(models.Scene{ImageGenerationStatus: models.StatusCompleted, GenerationRequestedAt: &old}, 15*time.Minute, now))
	assert.False(t, generation.IsStale(models.Scene{ImageGenerationStatus: models.StatusRequested, GenerationRequestedAt: &old}, 0, now))
}

func TestRequestImages_SceneRepeatedInBatchSubmitsOnce(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	provider := &fakeProvider{}
	tracker := generation.NewTracker(st, provider, nil).WithTimeout(15 * time.Minute)

	p := newProject(t, st, "a")
	r := ref(p.Scenes[0])
	updated, errs, err := tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{r, r})
	require.NoError(t, err)

	assert.Equal(t, []string{"Scene 0 already has a generation in progress"}, errs)
	assert.Equal(t, []string{"a"}, provider.prompts)
	assert.Equal(t, "gen-1", updated.Scenes[0].GenerationID)
	assert.Equal(t, models.StatusRequested, updated.Scenes[0].ImageGenerationStatus)
}

// racingStore moves the scene to a new generation just before the tracker
// records its own request, as a concurrent batch would.
type racingStore struct {
	store.Store
	raced bool
}

func (s *racingStore) UpdateScene(ctx context.Context, id string, u models.SceneUpdate) error {
	if !s.raced {
		s.raced = true
		status, other := models.StatusRequested, "gen-other"
		now := time.Now().UTC()
		if err := s.Store.UpdateScene(ctx, id, models.SceneUpdate{
			ImageGenerationStatus: &status,
			GenerationID:          &other,
			GenerationRequestedAt: &now,
		}); err != nil {
			return err
		}
	}
	return s.Store.UpdateScene(ctx, id, u)
}

func TestRequestImages_ConcurrentRequestKeepsFirstGeneration(t *testing.T) {
	ctx := context.Background()
	st := &racingStore{Store: memory.New()}
	tracker := generation.NewTracker(st, &fakeProvider{}, nil)

	p := newProject(t, st, "a")
	updated, errs, err := tracker.RequestImages(ctx, p.ID, []models.SceneGenerationRef{ref(p.Scenes[0])})
	require.NoError(t, err)

	assert.Equal(t, []string{"Scene 0 already has a generation in progress"}, errs)
	assert.Equal(t, "gen-other", updated.Scenes[0].GenerationID)
}
