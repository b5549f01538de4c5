package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-videos-backend/internal/generation"
	"ai-videos-backend/internal/handlers"
	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/services"
	"ai-videos-backend/internal/store/memory"
	"ai-videos-backend/internal/webhook"
)

type fakeProvider struct {
	mu   sync.Mutex
	next int
	fail map[string]bool
}

func (p *fakeProvider) SubmitImageGeneration(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[prompt] {
		return "", fmt.Errorf("provider rejected prompt")
	}
	p.next++
	return fmt.Sprintf("gen-%d", p.next), nil
}

type testServer struct {
	router   *gin.Engine
	store    *memory.Store
	provider *fakeProvider
}

func newTestServer(t *testing.T, webhookSecret string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.New()
	provider := &fakeProvider{fail: map[string]bool{}}
	tracker := generation.NewTracker(st, provider, nil)
	projects := services.NewProjectService(st, nil, nil)

	projectsHandler := handlers.NewProjectsHandler(projects)
	imagesHandler := handlers.NewImagesHandler(tracker)
	audioHandler := handlers.NewAudioHandler(services.NewAudioService(st, nil, nil, nil))
	downloadHandler := handlers.NewDownloadHandler(services.NewDownloadService(st, nil, nil, nil))
	statusHandler := handlers.NewStatusHandler(projects)
	webhookHandler := handlers.NewWebhookHandler(webhook.NewIngestor(st, tracker, nil), webhookSecret, nil)

	router := gin.New()
	router.GET("/health", handlers.HealthHandler)
	router.GET("/projects", projectsHandler.ListProjects)
	router.POST("/project", projectsHandler.CreateProject)
	router.GET("/project/:id", projectsHandler.GetProject)
	router.PUT("/project/:id", projectsHandler.UpdateProject)
	router.DELETE("/project/:id", projectsHandler.DeleteProject)
	router.POST("/project/:id/images", imagesHandler.GenerateImages)
	router.POST("/project/:id/audio", audioHandler.CreateAudio)
	router.GET("/project/:id/download", downloadHandler.Download)
	router.GET("/project/:id/status", statusHandler.GetStatus)
	router.POST("/webhooks/leonardo", webhookHandler.HandleLeonardo)

	return &testServer{router: router, store: st, provider: provider}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createBody(prompts ...string) models.CreateProjectRequest {
	req := models.CreateProjectRequest{Project: models.NewProject{
		Title:       "Volcanoes",
		Description: "A short about volcanoes",
		Script:      "Volcanoes are openings in the crust.",
	}}
	for i, p := range prompts {
		req.Project.Scenes = append(req.Project.Scenes, models.NewScene{
			Text:        fmt.Sprintf("scene %d", i),
			ImagePrompt: p,
			VideoPrompt: "slow pan",
		})
	}
	return req
}

func (s *testServer) createProject(t *testing.T, prompts ...string) *models.Project {
	t.Helper()
	w := s.do(t, http.MethodPost, "/project", createBody(prompts...))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.ProjectResponse](t, w).Project
}

func refs(p *models.Project) []models.SceneGenerationRef {
	out := make([]models.SceneGenerationRef, 0, len(p.Scenes))
	for _, s := range p.Scenes {
		out = append(out, models.SceneGenerationRef{ID: s.ID, Index: s.Index, ImagePrompt: s.ImagePrompt})
	}
	return out
}

func completeBody(generationID string, urls ...string) string {
	images := make([]map[string]string, 0, len(urls))
	for i, u := range urls {
		images = append(images, map[string]string{"id": fmt.Sprintf("img-%d", i), "url": u})
	}
	body, _ := json.Marshal(map[string]any{
		"type": "image_generation.complete",
		"data": map[string]any{"object": map[string]any{"id": generationID, "images": images}},
	})
	return string(body)
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[models.HealthResponse](t, w).Status)
}

func TestCreateProject(t *testing.T) {
	s := newTestServer(t, "")

	p := s.createProject(t, "a red fox", "a blue lake")

	require.Len(t, p.Scenes, 2)
	for i, scene := range p.Scenes {
		assert.Equal(t, i, scene.Index)
		assert.Equal(t, models.StatusPending, scene.ImageGenerationStatus)
		assert.Equal(t, models.StatusPending, scene.VideoGenerationStatus)
		assert.NotNil(t, scene.Images)
		assert.Len(t, scene.Videos, 1)
	}
}

func TestCreateProject_Validation(t *testing.T) {
	s := newTestServer(t, "")

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", "{"},
		{"no scenes", createBody()},
		{"empty prompt", createBody("a red fox", " ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/project", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode[models.ErrorResponse](t, w).Message)
		})
	}

	w := s.do(t, http.MethodGet, "/projects", nil)
	assert.Empty(t, decode[[]models.Project](t, w))
}

func TestGetProject_Errors(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/project/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Project not found", decode[models.ErrorResponse](t, w).Message)

	w = s.do(t, http.MethodGet, "/project/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProject(t *testing.T) {
	s := newTestServer(t, "")
	p := s.createProject(t, "a red fox")

	w := s.do(t, http.MethodPut, "/project/"+p.ID, map[string]any{"title": "Lava", "isPublished": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.ProjectResponse](t, w).Project
	assert.Equal(t, "Lava", updated.Title)
	assert.True(t, updated.IsPublished)
	assert.Equal(t, p.Description, updated.Description)

	w = s.do(t, http.MethodPut, "/project/"+p.ID, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/project/"+uuid.NewString(), map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProject(t *testing.T) {
	s := newTestServer(t, "")
	p := s.createProject(t, "a red fox")

	w := s.do(t, http.MethodDelete, "/project/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, p.ID, decode[models.DeleteProjectResponse](t, w).ProjectID)

	w = s.do(t, http.MethodGet, "/project/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/project/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateImages(t *testing.T) {
	s := newTestServer(t, "")
	p := s.createProject(t, "a red fox", "a blue lake")

	w := s.do(t, http.MethodPost, "/project/"+p.ID+"/images", models.GenerateImagesRequest{Scenes: refs(p)})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.GenerateImagesResponse](t, w)
	assert.Equal(t, "Image/s creation requested successfully", resp.Message)
	assert.Empty(t, resp.Errors)
	for _, scene := range resp.Project.Scenes {
		assert.Equal(t, models.StatusRequested, scene.ImageGenerationStatus)
		assert.NotEmpty(t, scene.GenerationID)
	}
}

func TestGenerateImages_PartialFailure(t *testing.T) {
	s := newTestServer(t, "")
	p := s.createProject(t, "a red fox", "a blue lake")
	s.provider.fail["a blue lake"] = true

	w := s.do(t, http.MethodPost, "/project/"+p.ID+"/images", models.GenerateImagesRequest{Scenes: refs(p)})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.GenerateImagesResponse](t, w)
	assert.Equal(t, "Image/s creation requested with errors", resp.Message)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "scene 1")
	assert.Equal(t, models.StatusRequested, resp.Project.Scenes[0].ImageGenerationStatus)
	assert.Equal(t, models.StatusPending, resp.Project.Scenes[1].ImageGenerationStatus)
}

func TestGenerateImages_BadRequests(t *testing.T) {
	s := newTestServer(t, "")
	p := s.createProject(t, "a red fox")

	w := s.do(t, http.MethodPost, "/project/"+p.ID+"/images", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/project/"+uuid.NewString()+"/images", models.GenerateImagesRequest{Scenes: refs(p)})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookCompletesScene(t *testing.T) {
	s := newTestServer(t, "")
	p := s.createProject(t, "a red fox", "a blue lake", "a green hill")
	w := s.do(t, http.MethodPost, "/project/"+p.ID+"/images", models.GenerateImagesRequest{Scenes: refs(p)})
	requested := decode[models.GenerateImagesResponse](t, w).Project

	w = s.do(t, http.MethodPost, "/webhooks/leonardo",
		completeBody(requested.Scenes[1].GenerationID, "https://cdn.example/1.png", "https://cdn.example/2.png"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ack := decode[models.WebhookResponse](t, w)
	assert.Equal(t, "Webhook received successfully", ack.Message)
	assert.Equal(t, requested.Scenes[1].ID, ack.SceneID)
	assert.Equal(t, 2, ack.Images)

	w = s.do(t, http.MethodGet, "/project/"+p.ID+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[models.StatusResponse](t, w)
	assert.True(t, status.InProgress)
	assert.Equal(t, 2, status.Requested)
	assert.Equal(t, 1, status.Completed)
	assert.Equal(t, 2, status.Scenes[1].Images)
}

func TestWebhookRejections(t *testing.T) {
	s := newTestServer(t, "")
	p := s.createProject(t, "a red fox")
	w := s.do(t, http.MethodPost, "/project/"+p.ID+"/images", models.GenerateImagesRequest{Scenes: refs(p)})
	genID := decode[models.GenerateImagesResponse](t, w).Project.Scenes[0].GenerationID

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", "{not json", http.StatusBadRequest},
		{"wrong type", `{"type":"post_processing.complete","data":{"object":{"id":"` + genID + `","images":[{"id":"a","url":"u"}]}}}`, http.StatusBadRequest},
		{"no images", completeBody(genID), http.StatusBadRequest},
		{"unknown generation", completeBody("gen-unknown", "https://cdn.example/1.png"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/webhooks/leonardo", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w = s.do(t, http.MethodGet, "/project/"+p.ID, nil)
	scene := decode[models.ProjectResponse](t, w).Project.Scenes[0]
	assert.Equal(t, models.StatusRequested, scene.ImageGenerationStatus)
	assert.Empty(t, scene.Images)
}

func TestWebhookSecret(t *testing.T) {
	s := newTestServer(t, "s3cret")

	w := s.do(t, http.MethodPost, "/webhooks/leonardo", completeBody("gen-1", "u"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/webhooks/leonardo", completeBody("gen-1", "u"), "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct secret, with or without the Bearer prefix, reaches correlation.
	w = s.do(t, http.MethodPost, "/webhooks/leonardo", completeBody("gen-1", "u"), "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, "/webhooks/leonardo", completeBody("gen-1", "u"), "Authorization", "s3cret")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAudioAndDownload_Unconfigured(t *testing.T) {
	s := newTestServer(t, "")
	p := s.createProject(t, "a red fox")

	w := s.do(t, http.MethodPost, "/project/"+p.ID+"/audio", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/project/"+p.ID+"/audio", map[string]any{"script": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(t, http.MethodGet, "/project/"+p.ID+"/download", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
