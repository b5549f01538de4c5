package supabase

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey, bucket string) (*StorageClient, error) {
	if supabaseURL == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

// Upload stores data at storagePath, replacing any existing object, and
// returns its public URL.
func (s *StorageClient) Upload(storagePath string, data []byte, contentType string) (string, error) {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", storagePath, err)
	}

	return s.PublicURL(storagePath), nil
}

func (s *StorageClient) PublicURL(storagePath string) string {
	return PublicObjectURL(s.baseURL, s.bucket, storagePath)
}

// PublicObjectURL is the public URL of an object in a public bucket.
func PublicObjectURL(baseURL, bucket, storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		strings.TrimSuffix(baseURL, "/"), bucket, strings.TrimPrefix(storagePath, "/"))
}

func (s *StorageClient) Download(storagePath string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", storagePath, err)
	}
	return data, nil
}

// DeleteByPrefix removes every object directly under folder whose name starts
// with namePrefix and returns the removed paths.
func (s *StorageClient) DeleteByPrefix(folder, namePrefix string) ([]string, error) {
	files, err := s.client.ListFiles(s.bucket, folder, storage.FileSearchOptions{
		Limit: 1000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", folder, err)
	}

	paths := MatchingPaths(folder, namePrefix, fileNames(files))
	if len(paths) == 0 {
		return nil, nil
	}

	if _, err := s.client.RemoveFile(s.bucket, paths); err != nil {
		return nil, fmt.Errorf("failed to delete files: %w", err)
	}
	return paths, nil
}

func fileNames(files []storage.FileObject) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}

// MatchingPaths joins folder with each name that starts with namePrefix.
func MatchingPaths(folder, namePrefix string, names []string) []string {
	var paths []string
	for _, name := range names {
		if name == "" || !strings.HasPrefix(name, namePrefix) {
			continue
		}
		paths = append(paths, path.Join(folder, name))
	}
	return paths
}

// PathFromPublicURL returns the object path of a public URL in this bucket.
func (s *StorageClient) PathFromPublicURL(publicURL string) (string, bool) {
	prefix := PublicObjectURL(s.baseURL, s.bucket, "")
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	p := strings.TrimPrefix(publicURL, prefix)
	return p, p != ""
}
