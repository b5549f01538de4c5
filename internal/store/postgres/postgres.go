// Package postgres stores projects in normalized Postgres tables and
// assembles the aggregated view in Go.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/store"
)

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn, applies pending migrations and returns the store.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := NewMigrator(db, logger).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return New(db, logger), nil
}

func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", store.ErrInvalidID, id)
	}
	return parsed, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	p.ID = uuid.NewString()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, title, description, script, audio_url,
			facebook_description, instagram_description, tiktok_description, youtube_description,
			is_published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.Title, p.Description, p.Script, nullString(p.AudioURL),
		nullString(p.FacebookDescription), nullString(p.InstagramDescription),
		nullString(p.TiktokDescription), nullString(p.YoutubeDescription),
		p.IsPublished, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	for i := range p.Scenes {
		scene := &p.Scenes[i]
		scene.ID = uuid.NewString()
		scene.ProjectID = p.ID
		scene.Index = i
		if scene.CreatedAt.IsZero() {
			scene.CreatedAt = p.CreatedAt
			scene.UpdatedAt = p.CreatedAt
		}
		if !scene.ImageGenerationStatus.Valid() {
			scene.ImageGenerationStatus = models.StatusPending
		}
		if !scene.VideoGenerationStatus.Valid() {
			scene.VideoGenerationStatus = models.StatusPending
		}

		_, err := s.db.ExecContext(ctx, `
			INSERT INTO scenes (id, project_id, idx, text, image_prompt, video_prompt,
				image_generation_status, video_generation_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, scene.ID, scene.ProjectID, scene.Index, scene.Text, scene.ImagePrompt, scene.VideoPrompt,
			string(scene.ImageGenerationStatus), string(scene.VideoGenerationStatus),
			scene.CreatedAt, scene.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert scene %d: %w", i, err)
		}

		for j := range scene.Videos {
			video := &scene.Videos[j]
			video.ID = uuid.NewString()
			video.SceneID = scene.ID
			if !video.Status.Valid() {
				video.Status = models.StatusPending
			}
			_, err := s.db.ExecContext(ctx, `
				INSERT INTO videos (id, scene_id, prompt, status, url, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, video.ID, video.SceneID, video.Prompt, string(video.Status), video.URL,
				video.CreatedAt, video.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert video for scene %d: %w", i, err)
			}
		}
	}

	return nil
}

const projectColumns = `id, title, description, script, audio_url,
	facebook_description, instagram_description, tiktok_description, youtube_description,
	is_published, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (models.Project, error) {
	var p models.Project
	var audio, facebook, instagram, tiktok, yt sql.NullString
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Script, &audio,
		&facebook, &instagram, &tiktok, &yt,
		&p.IsPublished, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.AudioURL = audio.String
	p.FacebookDescription = facebook.String
	p.InstagramDescription = instagram.String
	p.TiktokDescription = tiktok.String
	p.YoutubeDescription = yt.String
	return p, nil
}

const sceneColumns = `id, project_id, idx, text, image_prompt, video_prompt,
	image_generation_status, video_generation_status, generation_id, generation_requested_at,
	created_at, updated_at`

func scanScene(row rowScanner) (models.Scene, error) {
	var (
		sc                       models.Scene
		imageStatus, videoStatus string
		generationID             sql.NullString
		requestedAt              sql.NullTime
	)
	err := row.Scan(&sc.ID, &sc.ProjectID, &sc.Index, &sc.Text, &sc.ImagePrompt, &sc.VideoPrompt,
		&imageStatus, &videoStatus, &generationID, &requestedAt,
		&sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return sc, err
	}
	sc.ImageGenerationStatus = models.GenerationStatus(imageStatus)
	sc.VideoGenerationStatus = models.GenerationStatus(videoStatus)
	sc.GenerationID = generationID.String
	if requestedAt.Valid {
		at := requestedAt.Time
		sc.GenerationRequestedAt = &at
	}
	return sc, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}

	p, err := scanProject(s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	aggregated, err := s.assemble(ctx, []models.Project{p})
	if err != nil {
		return nil, err
	}
	return &aggregated[0], nil
}

func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+` FROM projects
		ORDER BY updated_at DESC, created_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	out, err := s.assemble(ctx, projects)
	if err != nil {
		return nil, err
	}
	store.SortProjects(out)
	return out, nil
}

// assemble loads the children of projects with three queries and nests them.
func (s *Store) assemble(ctx context.Context, projects []models.Project) ([]models.Project, error) {
	if len(projects) == 0 {
		return projects, nil
	}
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}

	sceneRows, err := s.db.QueryContext(ctx,
		`SELECT `+sceneColumns+` FROM scenes WHERE project_id = ANY($1::uuid[]) ORDER BY idx`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load scenes: %w", err)
	}
	var (
		scenes   []models.Scene
		sceneIDs []string
	)
	for sceneRows.Next() {
		sc, err := scanScene(sceneRows)
		if err != nil {
			sceneRows.Close()
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		scenes = append(scenes, sc)
		sceneIDs = append(sceneIDs, sc.ID)
	}
	sceneRows.Close()
	if err := sceneRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load scenes: %w", err)
	}

	var (
		images []models.Image
		videos []models.Video
	)
	if len(sceneIDs) > 0 {
		if images, err = s.loadImages(ctx, sceneIDs); err != nil {
			return nil, err
		}
		if videos, err = s.loadVideos(ctx, sceneIDs); err != nil {
			return nil, err
		}
	}

	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, store.Assemble(p, scenes, images, videos))
	}
	return out, nil
}

func (s *Store) loadImages(ctx context.Context, sceneIDs []string) ([]models.Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scene_id, url, provider_id, created_at FROM images
		WHERE scene_id = ANY($1::uuid[])
	`, pq.Array(sceneIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		var (
			img        models.Image
			providerID sql.NullString
		)
		if err := rows.Scan(&img.ID, &img.SceneID, &img.URL, &providerID, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		img.ProviderID = providerID.String
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *Store) loadVideos(ctx context.Context, sceneIDs []string) ([]models.Video, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scene_id, prompt, status, url, created_at, updated_at FROM videos
		WHERE scene_id = ANY($1::uuid[])
	`, pq.Array(sceneIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var (
			v      models.Video
			status string
		)
		if err := rows.Scan(&v.ID, &v.SceneID, &v.Prompt, &status, &v.URL, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		v.Status = models.GenerationStatus(status)
		if !v.Status.Valid() {
			v.Status = models.StatusPending
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// setClause accumulates "column = $n" assignments for a partial UPDATE, plus
// optional guards ANDed into its WHERE clause.
type setClause struct {
	parts  []string
	guards []string
	args   []any
}

func (c *setClause) add(column string, value any) {
	c.args = append(c.args, value)
	c.parts = append(c.parts, fmt.Sprintf("%s = $%d", column, len(c.args)))
}

func (c *setClause) addRaw(expr string) {
	c.parts = append(c.parts, expr)
}

func (c *setClause) guard(column string, value any) {
	c.args = append(c.args, value)
	c.guards = append(c.guards, fmt.Sprintf("%s = $%d", column, len(c.args)))
}

func (c *setClause) guardRaw(expr string) {
	c.guards = append(c.guards, expr)
}

// where renders the WHERE clause for the row whose id is bound at idArg.
func (c *setClause) where(idArg int) string {
	conds := append([]string{fmt.Sprintf("id = $%d", idArg)}, c.guards...)
	return strings.Join(conds, " AND ")
}

// execUpdate runs the UPDATE against the row with id and maps zero affected rows
// to ErrNotFound.
func (s *Store) execUpdate(ctx context.Context, table string, id uuid.UUID, c *setClause) error {
	if len(c.parts) == 0 {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", table, err)
		}
		if !exists {
			return store.ErrNotFound
		}
		return nil
	}

	args := append(c.args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(c.parts, ", "), c.where(len(args)))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, u models.ProjectUpdate) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	var c setClause
	if u.Title != nil {
		c.add("title", *u.Title)
	}
	if u.Description != nil {
		c.add("description", *u.Description)
	}
	if u.Script != nil {
		c.add("script", *u.Script)
	}
	if u.AudioURL != nil {
		c.add("audio_url", nullString(*u.AudioURL))
	}
	if u.FacebookDescription != nil {
		c.add("facebook_description", nullString(*u.FacebookDescription))
	}
	if u.InstagramDescription != nil {
		c.add("instagram_description", nullString(*u.InstagramDescription))
	}
	if u.TiktokDescription != nil {
		c.add("tiktok_description", nullString(*u.TiktokDescription))
	}
	if u.YoutubeDescription != nil {
		c.add("youtube_description", nullString(*u.YoutubeDescription))
	}
	if u.IsPublished != nil {
		c.add("is_published", *u.IsPublished)
	}
	if !u.UpdatedAt.IsZero() {
		c.add("updated_at", u.UpdatedAt)
	}

	if err := s.execUpdate(ctx, "projects", key, &c); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("project %s: %w", id, err)
		}
		return err
	}
	return nil
}

// DeleteProject removes children explicitly before the project row so the
// cascade does not depend on the schema's foreign keys.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	steps := []struct {
		what  string
		query string
	}{
		{"videos", `DELETE FROM videos WHERE scene_id IN (SELECT id FROM scenes WHERE project_id = $1)`},
		{"images", `DELETE FROM images WHERE scene_id IN (SELECT id FROM scenes WHERE project_id = $1)`},
		{"scenes", `DELETE FROM scenes WHERE project_id = $1`},
	}
	for _, step := range steps {
		if _, err := s.db.ExecContext(ctx, step.query, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", step.what, err)
		}
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) GetScene(ctx context.Context, id string) (*models.Scene, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}

	sc, err := scanScene(s.db.QueryRowContext(ctx,
		`SELECT `+sceneColumns+` FROM scenes WHERE id = $1`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scene %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scene: %w", err)
	}
	return &sc, nil
}

func (s *Store) FindSceneByGenerationID(ctx context.Context, generationID string) (*models.Scene, error) {
	if generationID == "" {
		return nil, fmt.Errorf("generation id: %w", store.ErrInvalidID)
	}

	sc, err := scanScene(s.db.QueryRowContext(ctx,
		`SELECT `+sceneColumns+` FROM scenes WHERE generation_id = $1 LIMIT 1`, generationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scene for generation %s: %w", generationID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find scene: %w", err)
	}
	return &sc, nil
}

func (s *Store) UpdateScene(ctx context.Context, id string, u models.SceneUpdate) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	var c setClause
	if u.ImagePrompt != nil {
		c.add("image_prompt", *u.ImagePrompt)
	}
	if u.ImageGenerationStatus != nil {
		c.add("image_generation_status", string(*u.ImageGenerationStatus))
	}
	switch {
	case u.ClearGenerationID:
		c.addRaw("generation_id = NULL")
		c.addRaw("generation_requested_at = NULL")
	default:
		if u.GenerationID != nil {
			c.add("generation_id", nullString(*u.GenerationID))
		}
		if u.GenerationRequestedAt != nil {
			c.add("generation_requested_at", *u.GenerationRequestedAt)
		}
	}
	if !u.UpdatedAt.IsZero() {
		c.add("updated_at", u.UpdatedAt)
	}
	if u.ExpectStatus != nil {
		c.guard("image_generation_status", string(*u.ExpectStatus))
	}
	if u.ExpectGenerationID != nil {
		if *u.ExpectGenerationID == "" {
			c.guardRaw("generation_id IS NULL")
		} else {
			c.guard("generation_id", *u.ExpectGenerationID)
		}
	}

	if err := s.execUpdate(ctx, "scenes", key, &c); err != nil {
		if errors.Is(err, store.ErrNotFound) && u.Conditional() {
			return fmt.Errorf("scene %s: %w", id, store.ErrConflict)
		}
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("scene %s: %w", id, err)
		}
		return err
	}
	return nil
}

func (s *Store) ListStaleScenes(ctx context.Context, before time.Time) ([]models.Scene, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sceneColumns+` FROM scenes
		WHERE image_generation_status = $1
		  AND (generation_requested_at IS NULL OR generation_requested_at < $2)
	`, string(models.StatusRequested), before)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale scenes: %w", err)
	}
	defer rows.Close()

	var scenes []models.Scene
	for rows.Next() {
		sc, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		scenes = append(scenes, sc)
	}
	return scenes, rows.Err()
}

func (s *Store) InsertImage(ctx context.Context, img *models.Image) error {
	sceneKey, err := parseID(img.SceneID)
	if err != nil {
		return err
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	id := uuid.New()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO images (id, scene_id, url, provider_id, created_at)
		SELECT $1, id, $3, $4, $5 FROM scenes WHERE id = $2
	`, id, sceneKey, img.URL, nullString(img.ProviderID), img.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert image: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert image: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("scene %s: %w", img.SceneID, store.ErrNotFound)
	}
	img.ID = id.String()
	return nil
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}
