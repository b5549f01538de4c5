// Package store defines the entity store shared by the project API, the
// generation tracker and the webhook ingestor. Implementations live in the
// mongo, postgres and memory subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"ai-videos-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrInvalidID = errors.New("invalid id")
	// ErrConflict means a conditional write found the row in another state.
	ErrConflict = errors.New("conflict")
)

const (
	ProjectsCollection = "projects"
	ScenesCollection   = "scenes"
	ImagesCollection   = "images"
	VideosCollection   = "videos"
)

// Store is the persistence boundary. Every write touches a single document;
// multi-entity operations (create, cascade delete) are sequences of
// independent writes.
type Store interface {
	// CreateProject inserts the project, its scenes and one placeholder video
	// per scene, assigning ids in place.
	CreateProject(ctx context.Context, p *models.Project) error
	// GetProject returns the aggregated project.
	GetProject(ctx context.Context, id string) (*models.Project, error)
	// ListProjects returns every aggregated project, most recently updated first.
	ListProjects(ctx context.Context) ([]models.Project, error)
	UpdateProject(ctx context.Context, id string, u models.ProjectUpdate) error
	// DeleteProject removes the project and cascades to scenes, images and videos.
	DeleteProject(ctx context.Context, id string) error

	GetScene(ctx context.Context, id string) (*models.Scene, error)
	FindSceneByGenerationID(ctx context.Context, generationID string) (*models.Scene, error)
	// UpdateScene applies u atomically. Expected-state guards in u are checked
	// in the same write.
	UpdateScene(ctx context.Context, id string, u models.SceneUpdate) error
	// ListStaleScenes returns scenes still requested whose request predates before.
	ListStaleScenes(ctx context.Context, before time.Time) ([]models.Scene, error)

	InsertImage(ctx context.Context, img *models.Image) error

	Close(ctx context.Context) error
}
