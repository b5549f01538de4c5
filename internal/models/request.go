package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrValidation = errors.New("validation failed")

type CreateProjectRequest struct {
	Project NewProject `json:"project"`
}

type NewProject struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Script      string     `json:"script"`
	Scenes      []NewScene `json:"scenes"`
}

type NewScene struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"imagePrompt"`
	VideoPrompt string `json:"videoPrompt"`
}

// Validate checks the required project and scene fields. The returned error
// wraps ErrValidation.
func (r *CreateProjectRequest) Validate() error {
	p := r.Project
	required := []struct {
		name  string
		value string
	}{
		{"title", p.Title},
		{"description", p.Description},
		{"script", p.Script},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: missing required field: %s", ErrValidation, f.name)
		}
	}
	if len(p.Scenes) == 0 {
		return fmt.Errorf("%w: scenes must be a non-empty array", ErrValidation)
	}
	for i, s := range p.Scenes {
		sceneFields := []struct {
			name  string
			value string
		}{
			{"text", s.Text},
			{"imagePrompt", s.ImagePrompt},
			{"videoPrompt", s.VideoPrompt},
		}
		for _, f := range sceneFields {
			if strings.TrimSpace(f.value) == "" {
				return fmt.Errorf("%w: scene %d is missing required field: %s", ErrValidation, i, f.name)
			}
		}
	}
	return nil
}

// UpdateProjectRequest carries the whitelisted editable fields.
type UpdateProjectRequest struct {
	Title                *string `json:"title,omitempty"`
	Description          *string `json:"description,omitempty"`
	Script               *string `json:"script,omitempty"`
	FacebookDescription  *string `json:"facebookDescription,omitempty"`
	InstagramDescription *string `json:"instagramDescription,omitempty"`
	TiktokDescription    *string `json:"tiktokDescription,omitempty"`
	YoutubeDescription   *string `json:"youtubeDescription,omitempty"`
	IsPublished          *bool   `json:"isPublished,omitempty"`
}

// Empty reports whether no editable field was supplied.
func (r *UpdateProjectRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Script == nil &&
		r.FacebookDescription == nil && r.InstagramDescription == nil &&
		r.TiktokDescription == nil && r.YoutubeDescription == nil && r.IsPublished == nil
}

// GenerateImagesRequest is the batch image-generation request. Scenes are
// processed in the order given.
type GenerateImagesRequest struct {
	Scenes []SceneGenerationRef `json:"scenes"`
}

type SceneGenerationRef struct {
	ID          string `json:"_id"`
	Index       int    `json:"index"`
	ImagePrompt string `json:"imagePrompt"`
}

type VoiceSettings struct {
	Speed           *float64 `json:"speed,omitempty"`
	Stability       *float64 `json:"stability,omitempty"`
	SimilarityBoost *float64 `json:"similarityBoost,omitempty"`
	Style           *float64 `json:"style,omitempty"`
	UseSpeakerBoost *bool    `json:"useSpeakerBoost,omitempty"`
}

type CreateAudioRequest struct {
	Script        string         `json:"script"`
	VoiceSettings *VoiceSettings `json:"voiceSettings,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
