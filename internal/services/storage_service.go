package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrUnavailable marks an operation whose backing service is not configured.
var ErrUnavailable = errors.New("service not configured")

const (
	AudioFolder = "audio"
	ZipFolder   = "zips"
)

// AssetStorage is the object store holding generated audio and zip packages.
type AssetStorage interface {
	Upload(storagePath string, data []byte, contentType string) (string, error)
	Download(storagePath string) ([]byte, error)
	DeleteByPrefix(folder, namePrefix string) ([]string, error)
	PathFromPublicURL(publicURL string) (string, bool)
}

type EventPublisher interface {
	PublishProjectEvent(ctx context.Context, projectID, event string, payload map[string]any) error
}

// AssetPrefix is the name prefix shared by every stored asset of a project.
func AssetPrefix(projectID string) string {
	return projectID + "_"
}

// AssetPath builds "<folder>/<projectId>_<unixmillis>.<ext>".
func AssetPath(folder, projectID string, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%s%d.%s", folder, AssetPrefix(projectID), at.UnixMilli(), ext)
}

// StorageService removes and fetches project assets. Objects in our bucket
// are read through the storage API; anything else is fetched over HTTP.
type StorageService struct {
	storage    AssetStorage
	httpClient *http.Client
	logger     *slog.Logger
}

func NewStorageService(storage AssetStorage, logger *slog.Logger) *StorageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageService{
		storage: storage,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (s *StorageService) WithHTTPClient(hc *http.Client) *StorageService {
	s.httpClient = hc
	return s
}

// Fetch returns the bytes behind url.
func (s *StorageService) Fetch(ctx context.Context, url string) ([]byte, error) {
	if s.storage != nil {
		if storagePath, ok := s.storage.PathFromPublicURL(url); ok {
			return s.storage.Download(storagePath)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// DeleteProjectFiles removes every stored audio file and zip of a project.
// Failures are logged only.
func (s *StorageService) DeleteProjectFiles(projectID string) {
	if s.storage == nil {
		return
	}
	for _, folder := range []string{AudioFolder, ZipFolder} {
		removed, err := s.storage.DeleteByPrefix(folder, AssetPrefix(projectID))
		if err != nil {
			s.logger.Warn("failed to delete project files", "project_id", projectID, "folder", folder, "error", err)
			continue
		}
		if len(removed) > 0 {
			s.logger.Info("deleted project files", "project_id", projectID, "files", removed)
		}
	}
}

func publish(ctx context.Context, p EventPublisher, logger *slog.Logger, projectID, event string, payload map[string]any) {
	if p == nil {
		return
	}
	if err := p.PublishProjectEvent(ctx, projectID, event, payload); err != nil {
		logger.Warn("failed to publish realtime event", "event", event, "project_id", projectID, "error", err)
	}
}
