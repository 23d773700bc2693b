package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var ErrSceneNotFound = errors.New("persist: scene not found")

// SceneInfo is a saved snapshot's header.
type SceneInfo struct {
	ID          uuid.UUID
	Name        string
	TakenAt     time.Time
	EntityCount int
}

// entityBody is what goes into scene_entities.body.
type entityBody struct {
	Tags       []Value `json:"tags,omitempty"`
	Components []Value `json:"components,omitempty"`
}

type SceneRepo struct {
	db *DB
}

func NewSceneRepo(db *DB) *SceneRepo {
	return &SceneRepo{db: db}
}

// Save writes the snapshot header and all entity rows in one transaction.
func (r *SceneRepo) Save(ctx context.Context, s *Snapshot) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("scene save begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO scenes (id, name, taken_at, checksum, entity_count)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID.String(), s.Name, s.TakenAt, s.Checksum, len(s.Entities),
	); err != nil {
		return fmt.Errorf("scene insert: %w", err)
	}

	batch := &pgx.Batch{}
	for _, e := range s.Entities {
		body, err := json.Marshal(entityBody{Tags: e.Tags, Components: e.Components})
		if err != nil {
			return fmt.Errorf("scene entity %d: %w", e.Ref, err)
		}
		batch.Queue(
			`INSERT INTO scene_entities (scene_id, ref, parent_ref, body) VALUES ($1, $2, $3, $4)`,
			s.ID.String(), e.Ref, e.Parent, body,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("scene entities insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("scene save commit: %w", err)
	}
	r.db.log.Info("scene saved",
		zap.String("id", s.ID.String()),
		zap.String("name", s.Name),
		zap.Int("entities", len(s.Entities)),
	)
	return nil
}

// Load reads a snapshot and verifies its checksum.
func (r *SceneRepo) Load(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	s := &Snapshot{ID: id}
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, taken_at, checksum, entity_count FROM scenes WHERE id = $1`, id.String(),
	).Scan(&s.Name, &s.TakenAt, &s.Checksum, &count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("scene %s: %w", id, ErrSceneNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scene load: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT ref, parent_ref, body FROM scene_entities WHERE scene_id = $1 ORDER BY ref`, id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("scene entities load: %w", err)
	}
	defer rows.Close()

	s.Entities = make([]EntityRecord, 0, count)
	for rows.Next() {
		var rec EntityRecord
		var raw []byte
		if err := rows.Scan(&rec.Ref, &rec.Parent, &raw); err != nil {
			return nil, fmt.Errorf("scene entities scan: %w", err)
		}
		var body entityBody
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("scene entity %d: %w", rec.Ref, err)
		}
		rec.Tags, rec.Components = body.Tags, body.Components
		s.Entities = append(s.Entities, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scene entities load: %w", err)
	}

	if err := s.Verify(); err != nil {
		return nil, err
	}
	return s, nil
}

// Latest returns the most recent snapshot saved under name.
func (r *SceneRepo) Latest(ctx context.Context, name string) (*Snapshot, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id FROM scenes WHERE name = $1 ORDER BY taken_at DESC LIMIT 1`, name,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("scene %q: %w", name, ErrSceneNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scene latest: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("scene latest: %w", err)
	}
	return r.Load(ctx, parsed)
}

// List returns snapshot headers, newest first.
func (r *SceneRepo) List(ctx context.Context) ([]SceneInfo, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, taken_at, entity_count FROM scenes ORDER BY taken_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("scene list: %w", err)
	}
	defer rows.Close()

	var out []SceneInfo
	for rows.Next() {
		var info SceneInfo
		var id string
		if err := rows.Scan(&id, &info.Name, &info.TakenAt, &info.EntityCount); err != nil {
			return nil, fmt.Errorf("scene list scan: %w", err)
		}
		if info.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scene list: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (r *SceneRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM scenes WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("scene delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scene %s: %w", id, ErrSceneNotFound)
	}
	return nil
}
