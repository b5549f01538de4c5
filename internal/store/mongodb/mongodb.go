// Package mongodb implements the entity store on MongoDB: four collections
// joined at read time with an aggregation pipeline.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/store"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Connect opens a client, verifies it with a ping and ensures indexes. The
// caller owns the returned store and must Close it.
func Connect(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := New(client, database, logger)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func New(client *mongo.Client, database string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client: client,
		db:     client.Database(database),
		logger: logger,
	}
}

// EnsureIndexes creates the lookup and uniqueness indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		store.ScenesCollection: {
			{
				Keys:    bson.D{{Key: "projectId", Value: 1}, {Key: "index", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("idx_project_index_unique"),
			},
			{
				Keys:    bson.D{{Key: "generationId", Value: 1}},
				Options: options.Index().SetName("idx_generation_id"),
			},
			{
				Keys:    bson.D{{Key: "imageGenerationStatus", Value: 1}, {Key: "generationRequestedAt", Value: 1}},
				Options: options.Index().SetName("idx_status_requested_at"),
			},
		},
		store.ImagesCollection: {
			{
				Keys:    bson.D{{Key: "sceneId", Value: 1}},
				Options: options.Index().SetName("idx_scene_id"),
			},
		},
		store.VideosCollection: {
			{
				Keys:    bson.D{{Key: "sceneId", Value: 1}},
				Options: options.Index().SetName("idx_scene_id"),
			},
		},
		store.ProjectsCollection: {
			{
				Keys:    bson.D{{Key: "updatedAt", Value: -1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("idx_updated_created"),
			},
		},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", store.ErrInvalidID, id)
	}
	return oid, nil
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	doc := projectDocument{
		Title:                p.Title,
		Description:          p.Description,
		Script:               p.Script,
		AudioURL:             p.AudioURL,
		FacebookDescription:  p.FacebookDescription,
		InstagramDescription: p.InstagramDescription,
		TiktokDescription:    p.TiktokDescription,
		YoutubeDescription:   p.YoutubeDescription,
		IsPublished:          p.IsPublished,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	res, err := s.db.Collection(store.ProjectsCollection).InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	projectID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected project id type %T", res.InsertedID)
	}
	p.ID = projectID.Hex()

	for i := range p.Scenes {
		scene := &p.Scenes[i]
		if scene.CreatedAt.IsZero() {
			scene.CreatedAt = p.CreatedAt
			scene.UpdatedAt = p.CreatedAt
		}
		sceneRes, err := s.db.Collection(store.ScenesCollection).InsertOne(ctx, sceneDocument{
			ProjectID:             projectID,
			Index:                 scene.Index,
			Text:                  scene.Text,
			ImagePrompt:           scene.ImagePrompt,
			VideoPrompt:           scene.VideoPrompt,
			ImageGenerationStatus: string(scene.ImageGenerationStatus),
			VideoGenerationStatus: string(scene.VideoGenerationStatus),
			CreatedAt:             scene.CreatedAt,
			UpdatedAt:             scene.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to insert scene %d: %w", scene.Index, err)
		}
		sceneID := sceneRes.InsertedID.(primitive.ObjectID)
		scene.ID = sceneID.Hex()
		scene.ProjectID = p.ID

		for j := range scene.Videos {
			video := &scene.Videos[j]
			videoRes, err := s.db.Collection(store.VideosCollection).InsertOne(ctx, videoDocument{
				SceneID:   sceneID,
				Prompt:    video.Prompt,
				Status:    string(video.Status),
				URL:       video.URL,
				CreatedAt: video.CreatedAt,
				UpdatedAt: video.UpdatedAt,
			})
			if err != nil {
				return fmt.Errorf("failed to insert video for scene %d: %w", scene.Index, err)
			}
			video.ID = videoRes.InsertedID.(primitive.ObjectID).Hex()
			video.SceneID = scene.ID
		}
	}

	s.logger.Info("project created", "project_id", p.ID, "scenes", len(p.Scenes))
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	cursor, err := s.db.Collection(store.ProjectsCollection).Aggregate(ctx, projectPipeline(bson.D{{Key: "_id", Value: oid}}))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate project: %w", err)
	}
	var docs []projectDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	p := docs[0].toModel()
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	cursor, err := s.db.Collection(store.ProjectsCollection).Aggregate(ctx, listPipeline())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate projects: %w", err)
	}
	var docs []projectDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	projects := make([]models.Project, 0, len(docs))
	for _, d := range docs {
		projects = append(projects, d.toModel())
	}
	return projects, nil
}

func projectSet(u models.ProjectUpdate) bson.D {
	set := bson.D{}
	add := func(key string, v *string) {
		if v != nil {
			set = append(set, bson.E{Key: key, Value: *v})
		}
	}
	add("title", u.Title)
	add("description", u.Description)
	add("script", u.Script)
	add("audioUrl", u.AudioURL)
	add("facebookDescription", u.FacebookDescription)
	add("instagramDescription", u.InstagramDescription)
	add("tiktokDescription", u.TiktokDescription)
	add("youtubeDescription", u.YoutubeDescription)
	if u.IsPublished != nil {
		set = append(set, bson.E{Key: "isPublished", Value: *u.IsPublished})
	}
	if !u.UpdatedAt.IsZero() {
		set = append(set, bson.E{Key: "updatedAt", Value: u.UpdatedAt})
	}
	return set
}

func (s *Store) UpdateProject(ctx context.Context, id string, u models.ProjectUpdate) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.db.Collection(store.ProjectsCollection).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: projectSet(u)}},
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	cursor, err := s.db.Collection(store.ScenesCollection).Find(ctx,
		bson.D{{Key: "projectId", Value: oid}},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return fmt.Errorf("failed to find scenes: %w", err)
	}
	var scenes []sceneDocument
	if err := cursor.All(ctx, &scenes); err != nil {
		return fmt.Errorf("failed to decode scenes: %w", err)
	}

	sceneIDs := make(bson.A, 0, len(scenes))
	for _, sc := range scenes {
		sceneIDs = append(sceneIDs, sc.ID)
	}
	if len(sceneIDs) > 0 {
		byScene := bson.D{{Key: "sceneId", Value: bson.D{{Key: "$in", Value: sceneIDs}}}}
		if _, err := s.db.Collection(store.VideosCollection).DeleteMany(ctx, byScene); err != nil {
			return fmt.Errorf("failed to delete videos: %w", err)
		}
		if _, err := s.db.Collection(store.ImagesCollection).DeleteMany(ctx, byScene); err != nil {
			return fmt.Errorf("failed to delete images: %w", err)
		}
		if _, err := s.db.Collection(store.ScenesCollection).DeleteMany(ctx, bson.D{{Key: "projectId", Value: oid}}); err != nil {
			return fmt.Errorf("failed to delete scenes: %w", err)
		}
	}

	res, err := s.db.Collection(store.ProjectsCollection).DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	s.logger.Info("project deleted", "project_id", id, "scenes", len(scenes))
	return nil
}

func (s *Store) findScene(ctx context.Context, filter bson.D, label string) (*models.Scene, error) {
	var doc sceneDocument
	err := s.db.Collection(store.ScenesCollection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", label, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", label, err)
	}
	scene := doc.toModel()
	return &scene, nil
}

func (s *Store) GetScene(ctx context.Context, id string) (*models.Scene, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findScene(ctx, bson.D{{Key: "_id", Value: oid}}, "scene "+id)
}

func (s *Store) FindSceneByGenerationID(ctx context.Context, generationID string) (*models.Scene, error) {
	if generationID == "" {
		return nil, fmt.Errorf("generation id: %w", store.ErrInvalidID)
	}
	return s.findScene(ctx, bson.D{{Key: "generationId", Value: generationID}}, "scene for generation "+generationID)
}

func sceneChanges(u models.SceneUpdate) bson.D {
	set := bson.D{}
	if u.ImagePrompt != nil {
		set = append(set, bson.E{Key: "imagePrompt", Value: *u.ImagePrompt})
	}
	if u.ImageGenerationStatus != nil {
		set = append(set, bson.E{Key: "imageGenerationStatus", Value: string(*u.ImageGenerationStatus)})
	}
	if u.GenerationID != nil && !u.ClearGenerationID {
		set = append(set, bson.E{Key: "generationId", Value: *u.GenerationID})
	}
	if u.GenerationRequestedAt != nil && !u.ClearGenerationID {
		set = append(set, bson.E{Key: "generationRequestedAt", Value: *u.GenerationRequestedAt})
	}
	if !u.UpdatedAt.IsZero() {
		set = append(set, bson.E{Key: "updatedAt", Value: u.UpdatedAt})
	}

	update := bson.D{}
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	if u.ClearGenerationID {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{
			{Key: "generationId", Value: ""},
			{Key: "generationRequestedAt", Value: ""},
		}})
	}
	return update
}

func (s *Store) UpdateScene(ctx context.Context, id string, u models.SceneUpdate) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	update := sceneChanges(u)
	if len(update) == 0 {
		return nil
	}
	res, err := s.db.Collection(store.ScenesCollection).UpdateOne(ctx, sceneFilter(oid, u), update)
	if err != nil {
		return fmt.Errorf("failed to update scene: %w", err)
	}
	if res.MatchedCount == 0 {
		if u.Conditional() {
			return fmt.Errorf("scene %s: %w", id, store.ErrConflict)
		}
		return fmt.Errorf("scene %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// sceneFilter matches the scene by id plus any expected state in u.
func sceneFilter(oid primitive.ObjectID, u models.SceneUpdate) bson.D {
	filter := bson.D{{Key: "_id", Value: oid}}
	if u.ExpectStatus != nil {
		filter = append(filter, bson.E{Key: "imageGenerationStatus", Value: string(*u.ExpectStatus)})
	}
	if u.ExpectGenerationID != nil {
		if *u.ExpectGenerationID == "" {
			filter = append(filter, bson.E{Key: "generationId", Value: bson.D{{Key: "$in", Value: bson.A{nil, ""}}}})
		} else {
			filter = append(filter, bson.E{Key: "generationId", Value: *u.ExpectGenerationID})
		}
	}
	return filter
}

func (s *Store) ListStaleScenes(ctx context.Context, before time.Time) ([]models.Scene, error) {
	filter := bson.D{
		{Key: "imageGenerationStatus", Value: string(models.StatusRequested)},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "generationRequestedAt", Value: bson.D{{Key: "$lt", Value: before}}}},
			bson.D{{Key: "generationRequestedAt", Value: bson.D{{Key: "$exists", Value: false}}}},
		}},
	}
	cursor, err := s.db.Collection(store.ScenesCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale scenes: %w", err)
	}
	var docs []sceneDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode stale scenes: %w", err)
	}
	scenes := make([]models.Scene, 0, len(docs))
	for _, d := range docs {
		scenes = append(scenes, d.toModel())
	}
	return scenes, nil
}

func (s *Store) InsertImage(ctx context.Context, img *models.Image) error {
	sceneID, err := parseID(img.SceneID)
	if err != nil {
		return err
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Collection(store.ImagesCollection).InsertOne(ctx, imageDocument{
		SceneID:    sceneID,
		URL:        img.URL,
		ProviderID: img.ProviderID,
		CreatedAt:  img.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert image: %w", err)
	}
	img.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
