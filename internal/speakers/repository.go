package speakers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
)

// Repository handles speaker persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a speaker repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, name, designation, topic, bio, photo, image_url, social_links, created_at`

func scan(row pgx.Row) (*models.Speaker, error) {
	var s models.Speaker
	err := row.Scan(&s.ID, &s.Name, &s.Designation, &s.Topic, &s.Bio, &s.Photo, &s.ImageURL, &s.SocialLinks, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collect(rows pgx.Rows) ([]models.Speaker, error) {
	defer rows.Close()
	list := make([]models.Speaker, 0)
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// List returns all speakers, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Speaker, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM speakers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByIDs returns speakers in the order of ids, skipping unknown ids.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Speaker, error) {
	const q = `SELECT s.id, s.name, s.designation, s.topic, s.bio, s.photo, s.image_url, s.social_links, s.created_at
		FROM unnest($1::uuid[]) WITH ORDINALITY AS ref(id, ord)
		JOIN speakers s ON s.id = ref.id
		ORDER BY ref.ord`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// GetByID returns a speaker by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Speaker, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM speakers WHERE id = $1`, id))
}

// Create inserts s and fills its generated fields.
func (r *Repository) Create(ctx context.Context, s *models.Speaker) error {
	const q = `INSERT INTO speakers (name, designation, topic, bio, photo, image_url, social_links)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, s.Name, s.Designation, s.Topic, s.Bio, s.Photo, s.ImageURL, s.SocialLinks).
		Scan(&s.ID, &s.CreatedAt)
}

// Update overwrites every editable column of s.
func (r *Repository) Update(ctx context.Context, s *models.Speaker) error {
	const q = `UPDATE speakers SET name = $2, designation = $3, topic = $4, bio = $5, photo = $6,
			image_url = $7, social_links = $8
		WHERE id = $1
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, q, s.ID, s.Name, s.Designation, s.Topic, s.Bio, s.Photo, s.ImageURL, s.SocialLinks).
		Scan(&s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNoRows
	}
	return err
}

// Delete removes a speaker and drops it from every event's speaker set.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.Speaker, error) {
	var deleted *models.Speaker
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE events SET speaker_ids = array_remove(speaker_ids, $1::uuid), updated_at = NOW()
			WHERE $1::uuid = ANY(speaker_ids)`, id); err != nil {
			return err
		}
		s, err := scan(tx.QueryRow(ctx, `DELETE FROM speakers WHERE id = $1 RETURNING `+columns, id))
		deleted = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
