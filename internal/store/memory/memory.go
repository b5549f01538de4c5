// Package memory is an in-process Store used for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/store"
)

// Store keeps the four collections in maps guarded by a single RWMutex.
type Store struct {
	mu       sync.RWMutex
	projects map[string]models.Project
	scenes   map[string]models.Scene
	images   map[string]models.Image
	videos   map[string]models.Video

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		projects: make(map[string]models.Project),
		scenes:   make(map[string]models.Scene),
		images:   make(map[string]models.Image),
		videos:   make(map[string]models.Video),
		now:      time.Now,
	}
}

func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", store.ErrInvalidID, id)
	}
	return parsed.String(), nil
}

func (s *Store) CreateProject(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	p.ID = uuid.NewString()

	row := *p
	row.Scenes = nil
	s.projects[p.ID] = row

	for i := range p.Scenes {
		scene := &p.Scenes[i]
		scene.ID = uuid.NewString()
		scene.ProjectID = p.ID
		scene.Index = i
		if scene.CreatedAt.IsZero() {
			scene.CreatedAt = p.CreatedAt
			scene.UpdatedAt = p.CreatedAt
		}
		for j := range scene.Videos {
			video := &scene.Videos[j]
			video.ID = uuid.NewString()
			video.SceneID = scene.ID
			s.videos[video.ID] = *video
		}
		sceneRow := *scene
		sceneRow.Images = nil
		sceneRow.Videos = nil
		s.scenes[scene.ID] = sceneRow
	}
	return nil
}

func (s *Store) GetProject(_ context.Context, id string) (*models.Project, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[key]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	aggregated := s.assembleLocked(p)
	return &aggregated, nil
}

func (s *Store) ListProjects(_ context.Context) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, s.assembleLocked(p))
	}
	store.SortProjects(out)
	return out, nil
}

func (s *Store) assembleLocked(p models.Project) models.Project {
	var (
		scenes []models.Scene
		images []models.Image
		videos []models.Video
	)
	sceneIDs := make(map[string]struct{})
	for _, sc := range s.scenes {
		if sc.ProjectID == p.ID {
			scenes = append(scenes, sc)
			sceneIDs[sc.ID] = struct{}{}
		}
	}
	for _, img := range s.images {
		if _, ok := sceneIDs[img.SceneID]; ok {
			images = append(images, img)
		}
	}
	for _, v := range s.videos {
		if _, ok := sceneIDs[v.SceneID]; ok {
			videos = append(videos, v)
		}
	}
	return store.Assemble(p, scenes, images, videos)
}

func (s *Store) UpdateProject(_ context.Context, id string, u models.ProjectUpdate) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[key]
	if !ok {
		return fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	applyProjectUpdate(&p, u)
	s.projects[key] = p
	return nil
}

func applyProjectUpdate(p *models.Project, u models.ProjectUpdate) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&p.Title, u.Title)
	setString(&p.Description, u.Description)
	setString(&p.Script, u.Script)
	setString(&p.AudioURL, u.AudioURL)
	setString(&p.FacebookDescription, u.FacebookDescription)
	setString(&p.InstagramDescription, u.InstagramDescription)
	setString(&p.TiktokDescription, u.TiktokDescription)
	setString(&p.YoutubeDescription, u.YoutubeDescription)
	if u.IsPublished != nil {
		p.IsPublished = *u.IsPublished
	}
	if !u.UpdatedAt.IsZero() {
		p.UpdatedAt = u.UpdatedAt
	}
}

func (s *Store) DeleteProject(_ context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for sceneID, sc := range s.scenes {
		if sc.ProjectID != key {
			continue
		}
		for vid, v := range s.videos {
			if v.SceneID == sceneID {
				delete(s.videos, vid)
			}
		}
		for iid, img := range s.images {
			if img.SceneID == sceneID {
				delete(s.images, iid)
			}
		}
		delete(s.scenes, sceneID)
	}

	if _, ok := s.projects[key]; !ok {
		return fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	delete(s.projects, key)
	return nil
}

func (s *Store) GetScene(_ context.Context, id string) (*models.Scene, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenes[key]
	if !ok {
		return nil, fmt.Errorf("scene %s: %w", id, store.ErrNotFound)
	}
	return &sc, nil
}

func (s *Store) FindSceneByGenerationID(_ context.Context, generationID string) (*models.Scene, error) {
	if generationID == "" {
		return nil, fmt.Errorf("generation id: %w", store.ErrInvalidID)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sc := range s.scenes {
		if sc.GenerationID == generationID {
			found := sc
			return &found, nil
		}
	}
	return nil, fmt.Errorf("scene for generation %s: %w", generationID, store.ErrNotFound)
}

func (s *Store) UpdateScene(_ context.Context, id string, u models.SceneUpdate) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scenes[key]
	if !ok {
		return fmt.Errorf("scene %s: %w", id, store.ErrNotFound)
	}
	if u.ExpectStatus != nil && sc.ImageGenerationStatus != *u.ExpectStatus {
		return fmt.Errorf("scene %s is %s: %w", id, sc.ImageGenerationStatus, store.ErrConflict)
	}
	if u.ExpectGenerationID != nil && sc.GenerationID != *u.ExpectGenerationID {
		return fmt.Errorf("scene %s generation changed: %w", id, store.ErrConflict)
	}
	if u.ImagePrompt != nil {
		sc.ImagePrompt = *u.ImagePrompt
	}
	if u.ImageGenerationStatus != nil {
		sc.ImageGenerationStatus = *u.ImageGenerationStatus
	}
	if u.GenerationID != nil {
		sc.GenerationID = *u.GenerationID
	}
	if u.GenerationRequestedAt != nil {
		at := *u.GenerationRequestedAt
		sc.GenerationRequestedAt = &at
	}
	if u.ClearGenerationID {
		sc.GenerationID = ""
		sc.GenerationRequestedAt = nil
	}
	if !u.UpdatedAt.IsZero() {
		sc.UpdatedAt = u.UpdatedAt
	}
	s.scenes[key] = sc
	return nil
}

func (s *Store) ListStaleScenes(_ context.Context, before time.Time) ([]models.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Scene
	for _, sc := range s.scenes {
		if sc.ImageGenerationStatus != models.StatusRequested {
			continue
		}
		if sc.GenerationRequestedAt == nil || sc.GenerationRequestedAt.Before(before) {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *Store) InsertImage(_ context.Context, img *models.Image) error {
	sceneKey, err := parseID(img.SceneID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scenes[sceneKey]; !ok {
		return fmt.Errorf("scene %s: %w", img.SceneID, store.ErrNotFound)
	}
	img.ID = uuid.NewString()
	if img.CreatedAt.IsZero() {
		img.CreatedAt = s.now().UTC()
	}
	s.images[img.ID] = *img
	return nil
}

func (s *Store) Close(context.Context) error { return nil }
