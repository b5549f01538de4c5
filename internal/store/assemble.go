package store

import (
	"sort"

	"ai-videos-backend/internal/models"
)

// Assemble builds the aggregated project from normalized rows. Scenes that do
// not belong to the project and children of unknown scenes are ignored.
// Scenes are ordered by index; images and videos by creation time, then id.
func Assemble(p models.Project, scenes []models.Scene, images []models.Image, videos []models.Video) models.Project {
	imagesByScene := make(map[string][]models.Image)
	for _, img := range images {
		imagesByScene[img.SceneID] = append(imagesByScene[img.SceneID], img)
	}
	videosByScene := make(map[string][]models.Video)
	for _, v := range videos {
		videosByScene[v.SceneID] = append(videosByScene[v.SceneID], v)
	}

	out := p
	out.Scenes = make([]models.Scene, 0, len(scenes))
	for _, s := range scenes {
		if s.ProjectID != p.ID {
			continue
		}
		scene := s
		scene.Images = append([]models.Image{}, imagesByScene[s.ID]...)
		sort.SliceStable(scene.Images, func(i, j int) bool {
			a, b := scene.Images[i], scene.Images[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
		scene.Videos = append([]models.Video{}, videosByScene[s.ID]...)
		sort.SliceStable(scene.Videos, func(i, j int) bool {
			a, b := scene.Videos[i], scene.Videos[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
		out.Scenes = append(out.Scenes, scene)
	}
	sort.SliceStable(out.Scenes, func(i, j int) bool {
		return out.Scenes[i].Index < out.Scenes[j].Index
	})
	return out
}

// SortProjects orders projects most recently updated first, then most recently
// created, then by id for a stable listing.
func SortProjects(projects []models.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		a, b := projects[i], projects[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
