package models

import "time"

// GenerationStatus tracks a scene's per-asset generation pipeline.
type GenerationStatus string

const (
	StatusPending   GenerationStatus = "pending"
	StatusRequested GenerationStatus = "requested"
	StatusCompleted GenerationStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s GenerationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRequested, StatusCompleted:
		return true
	}
	return false
}

// Project is the aggregated view of a video project: the project row with its
// scenes embedded in index order.
type Project struct {
	ID                   string    `json:"_id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Script               string    `json:"script"`
	AudioURL             string    `json:"audioUrl,omitempty"`
	FacebookDescription  string    `json:"facebookDescription,omitempty"`
	InstagramDescription string    `json:"instagramDescription,omitempty"`
	TiktokDescription    string    `json:"tiktokDescription,omitempty"`
	YoutubeDescription   string    `json:"youtubeDescription,omitempty"`
	IsPublished          bool      `json:"isPublished"`
	Scenes               []Scene   `json:"scenes"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// HasRequestedScenes reports whether any scene still waits on the image provider.
func (p *Project) HasRequestedScenes() bool {
	if p == nil {
		return false
	}
	for _, s := range p.Scenes {
		if s.ImageGenerationStatus == StatusRequested {
			return true
		}
	}
	return false
}

type Scene struct {
	ID                    string           `json:"_id"`
	ProjectID             string           `json:"projectId"`
	Index                 int              `json:"index"`
	Text                  string           `json:"text"`
	ImagePrompt           string           `json:"imagePrompt"`
	VideoPrompt           string           `json:"videoPrompt"`
	ImageGenerationStatus GenerationStatus `json:"imageGenerationStatus"`
	VideoGenerationStatus GenerationStatus `json:"videoGenerationStatus"`
	GenerationID          string           `json:"generationId,omitempty"`
	GenerationRequestedAt *time.Time       `json:"generationRequestedAt,omitempty"`
	Images                []Image          `json:"images"`
	Videos                []Video          `json:"videos"`
	CreatedAt             time.Time        `json:"createdAt"`
	UpdatedAt             time.Time        `json:"updatedAt"`
}

// Image is one generated candidate for a scene. ProviderID is the id the
// image provider assigned to the asset.
type Image struct {
	ID         string    `json:"_id"`
	SceneID    string    `json:"sceneId"`
	URL        string    `json:"url"`
	ProviderID string    `json:"id,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Video struct {
	ID        string           `json:"_id"`
	SceneID   string           `json:"sceneId"`
	Prompt    string           `json:"prompt"`
	Status    GenerationStatus `json:"status"`
	URL       string           `json:"url"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// ProjectUpdate is a partial update of the editable project fields. Nil
// fields are left untouched.
type ProjectUpdate struct {
	Title                *string
	Description          *string
	Script               *string
	AudioURL             *string
	FacebookDescription  *string
	InstagramDescription *string
	TiktokDescription    *string
	YoutubeDescription   *string
	IsPublished          *bool
	UpdatedAt            time.Time
}

// SceneUpdate is a partial update of a scene row. ClearGenerationID removes
// the correlation id and the request timestamp. When ExpectStatus or
// ExpectGenerationID is set the update applies only if the stored scene still
// matches, and a miss is reported as store.ErrConflict.
type SceneUpdate struct {
	ImagePrompt           *string
	ImageGenerationStatus *GenerationStatus
	GenerationID          *string
	GenerationRequestedAt *time.Time
	ClearGenerationID     bool
	UpdatedAt             time.Time

	ExpectStatus       *GenerationStatus
	ExpectGenerationID *string
}

// Conditional reports whether the update carries an expected-state guard.
func (u SceneUpdate) Conditional() bool {
	return u.ExpectStatus != nil || u.ExpectGenerationID != nil
}
