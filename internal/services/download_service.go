package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"ai-videos-backend/internal/logging"
	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/store"
	"ai-videos-backend/internal/supabase"
)

// ArchiveEntry is one file of a project download: its name inside the zip
// and where to fetch it from.
type ArchiveEntry struct {
	Name string
	URL  string
}

// ArchiveEntries lists the files of a project download: the narration as
// audio.mp3, then every scene image named after the scene's position,
// "Escena 1.png" or "Escena 1 - opt 2.png" when a scene has several.
func ArchiveEntries(p *models.Project) []ArchiveEntry {
	var entries []ArchiveEntry
	if p.AudioURL != "" {
		entries = append(entries, ArchiveEntry{Name: "audio.mp3", URL: p.AudioURL})
	}
	for i, scene := range p.Scenes {
		for j, img := range scene.Images {
			if img.URL == "" {
				continue
			}
			name := fmt.Sprintf("Escena %d.png", i+1)
			if len(scene.Images) > 1 {
				name = fmt.Sprintf("Escena %d - opt %d.png", i+1, j+1)
			}
			entries = append(entries, ArchiveEntry{Name: name, URL: img.URL})
		}
	}
	return entries
}

// FetchFunc returns the content behind url.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// BuildArchive zips entries, skipping those that cannot be fetched, and
// returns the archive with the number of files written.
func BuildArchive(ctx context.Context, entries []ArchiveEntry, fetch FetchFunc, logger *slog.Logger) ([]byte, int, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	written := 0
	for _, entry := range entries {
		data, err := fetch(ctx, entry.URL)
		if err != nil {
			logger.Warn("failed to download asset, skipping", "file", entry.Name, "url", entry.URL, "error", err)
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: time.Now(),
		})
		if err != nil {
			return nil, 0, fmt.Errorf("failed to add %s: %w", entry.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, 0, fmt.Errorf("failed to write %s: %w", entry.Name, err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return buf.Bytes(), written, nil
}

type DownloadService struct {
	store     store.Store
	storage   AssetStorage
	assets    *StorageService
	publisher EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

func NewDownloadService(st store.Store, storage AssetStorage, assets *StorageService, logger *slog.Logger) *DownloadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadService{
		store:   st,
		storage: storage,
		assets:  assets,
		now:     time.Now,
		logger:  logging.WithComponent(logger, "download_service"),
	}
}

func (s *DownloadService) WithPublisher(p EventPublisher) *DownloadService {
	s.publisher = p
	return s
}

func (s *DownloadService) WithClock(now func() time.Time) *DownloadService {
	s.now = now
	return s
}

// CreateZip packages the project's audio and images, replaces any previous
// package and returns the new package's public URL.
func (s *DownloadService) CreateZip(ctx context.Context, projectID string) (string, error) {
	if s.storage == nil || s.assets == nil {
		return "", fmt.Errorf("project download: %w", ErrUnavailable)
	}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	logger := logging.WithProjectID(s.logger, project.ID)

	archive, files, err := BuildArchive(ctx, ArchiveEntries(project), s.assets.Fetch, logger)
	if err != nil {
		return "", err
	}

	if removed, err := s.storage.DeleteByPrefix(ZipFolder, AssetPrefix(project.ID)); err != nil {
		logger.Warn("failed to delete old zip files", "error", err)
	} else if len(removed) > 0 {
		logger.Info("deleted old zip files", "files", removed)
	}

	zipURL, err := s.storage.Upload(AssetPath(ZipFolder, project.ID, s.now().UTC(), "zip"), archive, "application/zip")
	if err != nil {
		return "", fmt.Errorf("failed to store zip: %w", err)
	}
	logger.Info("project zip created", "files", files, "bytes", len(archive), "url", zipURL)

	publish(ctx, s.publisher, s.logger, project.ID, supabase.EventZipReady,
		supabase.ZipReadyPayload(project.ID, zipURL, files))

	return zipURL, nil
}
