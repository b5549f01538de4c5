package services_test

import (
	"context"
	"strings"
	"sync"

	"ai-videos-backend/internal/elevenlabs"
	"ai-videos-backend/internal/models"
)

const publicPrefix = "https://x.supabase.co/storage/v1/object/public/assets/"

// memoryStorage is an AssetStorage backed by a map.
type memoryStorage struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	deleted      []string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memoryStorage) Upload(storagePath string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[storagePath] = data
	m.contentTypes[storagePath] = contentType
	return publicPrefix + storagePath, nil
}

func (m *memoryStorage) Download(storagePath string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[storagePath]
	if !ok {
		return nil, errNotStored
	}
	return data, nil
}

func (m *memoryStorage) DeleteByPrefix(folder, namePrefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for p := range m.objects {
		if strings.HasPrefix(p, folder+"/"+namePrefix) {
			removed = append(removed, p)
			delete(m.objects, p)
		}
	}
	m.deleted = append(m.deleted, folder+"/"+namePrefix)
	return removed, nil
}

func (m *memoryStorage) PathFromPublicURL(publicURL string) (string, bool) {
	if !strings.HasPrefix(publicURL, publicPrefix) {
		return "", false
	}
	return strings.TrimPrefix(publicURL, publicPrefix), true
}

func (m *memoryStorage) paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for p := range m.objects {
		out = append(out, p)
	}
	return out
}

type storageError string

func (e storageError) Error() string { return string(e) }

const errNotStored = storageError("object not found")

type fakeSpeech struct {
	calls    int
	text     string
	settings elevenlabs.VoiceSettings
	err      error
}

func (f *fakeSpeech) Synthesize(_ context.Context, text string, settings elevenlabs.VoiceSettings) ([]byte, error) {
	f.calls++
	f.text = text
	f.settings = settings
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3:" + text), nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePublisher) PublishProjectEvent(_ context.Context, _ string, event string, _ map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func createRequest(prompts ...string) *models.CreateProjectRequest {
	req := &models.CreateProjectRequest{Project: models.NewProject{
		Title:       "Title",
		Description: "Description",
		Script:      "Script",
	}}
	for _, p := range prompts {
		req.Project.Scenes = append(req.Project.Scenes, models.NewScene{
			Text:        "text " + p,
			ImagePrompt: p,
			VideoPrompt: "video " + p,
		})
	}
	return req
}

