package supabase

import (
	"fmt"
	"log/slog"

	"github.com/supabase-community/supabase-go"

	"ai-videos-backend/internal/config"
)

// Client bundles the Supabase services the backend uses: object storage for
// generated assets and the realtime events table.
type Client struct {
	Supabase *supabase.Client
	Storage  *StorageClient
	Realtime *RealtimeClient
}

func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	storageClient, err := NewStorageClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	if err != nil {
		return nil, err
	}

	return &Client{
		Supabase: client,
		Storage:  storageClient,
		Realtime: NewRealtimeClient(client, cfg.RealtimeEventsTable, logger),
	}, nil
}
