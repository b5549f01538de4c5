package models

type ProjectResponse struct {
	Message string   `json:"message"`
	Project *Project `json:"project"`
}

type GenerateImagesResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Project *Project `json:"project"`
}

type DeleteProjectResponse struct {
	Message   string `json:"message"`
	ProjectID string `json:"projectId"`
}

type DownloadResponse struct {
	Message string `json:"message"`
	ZipURL  string `json:"zipUrl"`
}

type WebhookResponse struct {
	Message string `json:"message"`
	SceneID string `json:"sceneId,omitempty"`
	Images  int    `json:"images,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type SceneStatus struct {
	ID                    string           `json:"_id"`
	Index                 int              `json:"index"`
	ImageGenerationStatus GenerationStatus `json:"imageGenerationStatus"`
	GenerationID          string           `json:"generationId,omitempty"`
	Images                int              `json:"images"`
}

type StatusResponse struct {
	ProjectID  string        `json:"projectId"`
	InProgress bool          `json:"inProgress"`
	Pending    int           `json:"pending"`
	Requested  int           `json:"requested"`
	Completed  int           `json:"completed"`
	Scenes     []SceneStatus `json:"scenes"`
}

// NewStatusResponse summarizes the image generation state of p.
func NewStatusResponse(p *Project) StatusResponse {
	resp := StatusResponse{
		ProjectID:  p.ID,
		InProgress: p.HasRequestedScenes(),
		Scenes:     make([]SceneStatus, 0, len(p.Scenes)),
	}
	for _, s := range p.Scenes {
		switch s.ImageGenerationStatus {
		case StatusPending:
			resp.Pending++
		case StatusRequested:
			resp.Requested++
		case StatusCompleted:
			resp.Completed++
		}
		resp.Scenes = append(resp.Scenes, SceneStatus{
			ID:                    s.ID,
			Index:                 s.Index,
			ImageGenerationStatus: s.ImageGenerationStatus,
			GenerationID:          s.GenerationID,
			Images:                len(s.Images),
		})
	}
	return resp
}
