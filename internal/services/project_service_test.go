package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/services"
	"ai-videos-backend/internal/store"
	"ai-videos-backend/internal/store/memory"
)

func TestProjectService_Create(t *testing.T) {
	ctx := context.Background()
	svc := services.NewProjectService(memory.New(), nil, nil)

	p, err := svc.Create(ctx, createRequest("a", "b", "c"))
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	require.Len(t, p.Scenes, 3)
	for i, s := range p.Scenes {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, models.StatusPending, s.ImageGenerationStatus)
		assert.Equal(t, models.StatusPending, s.VideoGenerationStatus)
		assert.Empty(t, s.Images)
		require.Len(t, s.Videos, 1)
		assert.Equal(t, s.VideoPrompt, s.Videos[0].Prompt)
		assert.Equal(t, models.StatusPending, s.Videos[0].Status)
	}
	assert.Equal(t, "a", p.Scenes[0].ImagePrompt)
	assert.Equal(t, "c", p.Scenes[2].ImagePrompt)
}

func TestProjectService_CreateValidation(t *testing.T) {
	svc := services.NewProjectService(memory.New(), nil, nil)

	req := createRequest("a")
	req.Project.Title = ""
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.ErrorContains(t, err, "missing required field: title")

	_, err = svc.Create(context.Background(), createRequest())
	assert.ErrorIs(t, err, models.ErrValidation)

	req = createRequest("a", "b")
	req.Project.Scenes[1].VideoPrompt = ""
	_, err = svc.Create(context.Background(), req)
	assert.ErrorContains(t, err, "scene 1 is missing required field: videoPrompt")
}

func TestProjectService_Update(t *testing.T) {
	ctx := context.Background()
	svc := services.NewProjectService(memory.New(), nil, nil)
	p, err := svc.Create(ctx, createRequest("a"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, p.ID, &models.UpdateProjectRequest{})
	assert.ErrorIs(t, err, models.ErrValidation)

	title := "New title"
	published := true
	yt := "for youtube"
	updated, err := svc.Update(ctx, p.ID, &models.UpdateProjectRequest{
		Title:              &title,
		IsPublished:        &published,
		YoutubeDescription: &yt,
	})
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.True(t, updated.IsPublished)
	assert.Equal(t, "for youtube", updated.YoutubeDescription)
	assert.Equal(t, "Description", updated.Description)
	assert.False(t, updated.UpdatedAt.Before(p.UpdatedAt))

	_, err = svc.Update(ctx, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", &models.UpdateProjectRequest{Title: &title})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProjectService_DeleteCascadesAndRemovesAssets(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	storage := newMemoryStorage()
	svc := services.NewProjectService(st, services.NewStorageService(storage, nil), nil)

	p, err := svc.Create(ctx, createRequest("a", "b"))
	require.NoError(t, err)
	other, err := svc.Create(ctx, createRequest("x"))
	require.NoError(t, err)

	_, err = storage.Upload("audio/"+p.ID+"_1.mp3", []byte("a"), "audio/mpeg")
	require.NoError(t, err)
	_, err = storage.Upload("zips/"+p.ID+"_2.zip", []byte("z"), "application/zip")
	require.NoError(t, err)
	_, err = storage.Upload("zips/"+other.ID+"_3.zip", []byte("z"), "application/zip")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))

	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetScene(ctx, p.Scenes[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	kept, err := svc.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, kept.Scenes, 1)
	assert.Equal(t, []string{"zips/" + other.ID + "_3.zip"}, storage.paths())

	assert.ErrorIs(t, svc.Delete(ctx, p.ID), store.ErrNotFound)
}

func TestProjectService_ListOrdersByRecentUpdate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	svc := services.NewProjectService(memory.New(), nil, nil).WithClock(clock)

	first, err := svc.Create(ctx, createRequest("a"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, createRequest("b"))
	require.NoError(t, err)

	title := "touched"
	_, err = svc.Update(ctx, first.ID, &models.UpdateProjectRequest{Title: &title})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}
