package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ai-videos-backend/internal/models"
)

type projectDocument struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	Title                string             `bson:"title"`
	Description          string             `bson:"description"`
	Script               string             `bson:"script"`
	AudioURL             string             `bson:"audioUrl,omitempty"`
	FacebookDescription  string             `bson:"facebookDescription,omitempty"`
	InstagramDescription string             `bson:"instagramDescription,omitempty"`
	TiktokDescription    string             `bson:"tiktokDescription,omitempty"`
	YoutubeDescription   string             `bson:"youtubeDescription,omitempty"`
	IsPublished          bool               `bson:"isPublished"`
	Scenes               []sceneDocument    `bson:"scenes,omitempty"`
	CreatedAt            time.Time          `bson:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt"`
}

type sceneDocument struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	ProjectID             primitive.ObjectID `bson:"projectId"`
	Index                 int                `bson:"index"`
	Text                  string             `bson:"text"`
	ImagePrompt           string             `bson:"imagePrompt,omitempty"`
	VideoPrompt           string             `bson:"videoPrompt,omitempty"`
	ImageGenerationStatus string             `bson:"imageGenerationStatus,omitempty"`
	VideoGenerationStatus string             `bson:"videoGenerationStatus,omitempty"`
	GenerationID          string             `bson:"generationId,omitempty"`
	GenerationRequestedAt *time.Time         `bson:"generationRequestedAt,omitempty"`
	Images                []imageDocument    `bson:"images,omitempty"`
	Videos                []videoDocument    `bson:"videos,omitempty"`
	CreatedAt             time.Time          `bson:"createdAt"`
	UpdatedAt             time.Time          `bson:"updatedAt"`
}

type imageDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	SceneID    primitive.ObjectID `bson:"sceneId"`
	URL        string             `bson:"url"`
	ProviderID string             `bson:"id,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

type videoDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SceneID   primitive.ObjectID `bson:"sceneId"`
	Prompt    string             `bson:"prompt"`
	Status    string             `bson:"status"`
	URL       string             `bson:"url"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// statusOrPending reads a status field defensively: rows written before the
// status fields existed count as pending.
func statusOrPending(s string) models.GenerationStatus {
	status := models.GenerationStatus(s)
	if !status.Valid() {
		return models.StatusPending
	}
	return status
}

func (d projectDocument) toModel() models.Project {
	p := models.Project{
		ID:                   d.ID.Hex(),
		Title:                d.Title,
		Description:          d.Description,
		Script:               d.Script,
		AudioURL:             d.AudioURL,
		FacebookDescription:  d.FacebookDescription,
		InstagramDescription: d.InstagramDescription,
		TiktokDescription:    d.TiktokDescription,
		YoutubeDescription:   d.YoutubeDescription,
		IsPublished:          d.IsPublished,
		Scenes:               make([]models.Scene, 0, len(d.Scenes)),
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
	for _, s := range d.Scenes {
		p.Scenes = append(p.Scenes, s.toModel())
	}
	return p
}

func (d sceneDocument) toModel() models.Scene {
	s := models.Scene{
		ID:                    d.ID.Hex(),
		ProjectID:             d.ProjectID.Hex(),
		Index:                 d.Index,
		Text:                  d.Text,
		ImagePrompt:           d.ImagePrompt,
		VideoPrompt:           d.VideoPrompt,
		ImageGenerationStatus: statusOrPending(d.ImageGenerationStatus),
		VideoGenerationStatus: statusOrPending(d.VideoGenerationStatus),
		GenerationID:          d.GenerationID,
		GenerationRequestedAt: d.GenerationRequestedAt,
		Images:                make([]models.Image, 0, len(d.Images)),
		Videos:                make([]models.Video, 0, len(d.Videos)),
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
	for _, img := range d.Images {
		s.Images = append(s.Images, models.Image{
			ID:         img.ID.Hex(),
			SceneID:    img.SceneID.Hex(),
			URL:        img.URL,
			ProviderID: img.ProviderID,
			CreatedAt:  img.CreatedAt,
		})
	}
	for _, v := range d.Videos {
		s.Videos = append(s.Videos, models.Video{
			ID:        v.ID.Hex(),
			SceneID:   v.SceneID.Hex(),
			Prompt:    v.Prompt,
			Status:    statusOrPending(v.Status),
			URL:       v.URL,
			CreatedAt: v.CreatedAt,
			UpdatedAt: v.UpdatedAt,
		})
	}
	return s
}
