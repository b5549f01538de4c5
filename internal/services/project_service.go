package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ai-videos-backend/internal/logging"
	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/store"
)

type ProjectService struct {
	store   store.Store
	storage *StorageService
	now     func() time.Time
	logger  *slog.Logger
}

func NewProjectService(st store.Store, storage *StorageService, logger *slog.Logger) *ProjectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectService{
		store:   st,
		storage: storage,
		now:     time.Now,
		logger:  logging.WithComponent(logger, "project_service"),
	}
}

func (s *ProjectService) WithClock(now func() time.Time) *ProjectService {
	s.now = now
	return s
}

// NewProjectFromRequest builds the project rows for a validated create
// request: scenes indexed in order with both statuses pending and one
// placeholder video each.
func NewProjectFromRequest(req *models.CreateProjectRequest, now time.Time) *models.Project {
	p := &models.Project{
		Title:       req.Project.Title,
		Description: req.Project.Description,
		Script:      req.Project.Script,
		Scenes:      make([]models.Scene, 0, len(req.Project.Scenes)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, s := range req.Project.Scenes {
		p.Scenes = append(p.Scenes, models.Scene{
			Index:                 i,
			Text:                  s.Text,
			ImagePrompt:           s.ImagePrompt,
			VideoPrompt:           s.VideoPrompt,
			ImageGenerationStatus: models.StatusPending,
			VideoGenerationStatus: models.StatusPending,
			Videos: []models.Video{{
				Prompt:    s.VideoPrompt,
				Status:    models.StatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}},
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return p
}

func (s *ProjectService) Create(ctx context.Context, req *models.CreateProjectRequest) (*models.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := NewProjectFromRequest(req, s.now().UTC())
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	logging.WithProjectID(s.logger, p.ID).Info("project created", "scenes", len(p.Scenes))

	return s.store.GetProject(ctx, p.ID)
}

func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	return s.store.GetProject(ctx, id)
}

func (s *ProjectService) List(ctx context.Context) ([]models.Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *ProjectService) Update(ctx context.Context, id string, req *models.UpdateProjectRequest) (*models.Project, error) {
	if req.Empty() {
		return nil, fmt.Errorf("%w: no fields provided for update", models.ErrValidation)
	}

	err := s.store.UpdateProject(ctx, id, models.ProjectUpdate{
		Title:                req.Title,
		Description:          req.Description,
		Script:               req.Script,
		FacebookDescription:  req.FacebookDescription,
		InstagramDescription: req.InstagramDescription,
		TiktokDescription:    req.TiktokDescription,
		YoutubeDescription:   req.YoutubeDescription,
		IsPublished:          req.IsPublished,
		UpdatedAt:            s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return s.store.GetProject(ctx, id)
}

// Delete removes the project with its scenes, images and videos, then its
// stored assets.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	logging.WithProjectID(s.logger, id).Info("project deleted")

	if s.storage != nil {
		s.storage.DeleteProjectFiles(id)
	}
	return nil
}
