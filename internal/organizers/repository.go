package organizers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
)

// Repository handles organizer persistence.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, name, role, linkedin, twitter, photo, bio, created_at`

func scan(row pgx.Row) (*models.Organizer, error) {
	var o models.Organizer
	err := row.Scan(&o.ID, &o.Name, &o.Role, &o.LinkedIn, &o.Twitter, &o.Photo, &o.Bio, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collect(rows pgx.Rows) ([]models.Organizer, error) {
	defer rows.Close()
	list := make([]models.Organizer, 0)
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}
	return list, rows.Err()
}

// List returns organizers in insertion order.
func (r *Repository) List(ctx context.Context) ([]models.Organizer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM organizers ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByIDs keeps the order of ids.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Organizer, error) {
	const q = `SELECT o.id, o.name, o.role, o.linkedin, o.twitter, o.photo, o.bio, o.created_at
		FROM unnest($1::uuid[]) WITH ORDINALITY AS ref(id, ord)
		JOIN organizers o ON o.id = ref.id
		ORDER BY ref.ord`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organizer, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM organizers WHERE id = $1`, id))
}

func (r *Repository) Create(ctx context.Context, o *models.Organizer) error {
	const q = `INSERT INTO organizers (name, role, linkedin, twitter, photo, bio)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, o.Name, o.Role, o.LinkedIn, o.Twitter, o.Photo, o.Bio).Scan(&o.ID, &o.CreatedAt)
}

func (r *Repository) Update(ctx context.Context, o *models.Organizer) error {
	const q = `UPDATE organizers SET name = $2, role = $3, linkedin = $4, twitter = $5, photo = $6, bio = $7
		WHERE id = $1
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, q, o.ID, o.Name, o.Role, o.LinkedIn, o.Twitter, o.Photo, o.Bio).Scan(&o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNoRows
	}
	return err
}

// Delete removes an organizer and unlinks it from events.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.Organizer, error) {
	var deleted *models.Organizer
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE events SET organizer_ids = array_remove(organizer_ids, $1::uuid), updated_at = NOW()
			WHERE $1::uuid = ANY(organizer_ids)`, id); err != nil {
			return err
		}
		o, err := scan(tx.QueryRow(ctx, `DELETE FROM organizers WHERE id = $1 RETURNING `+columns, id))
		deleted = o
		return err
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
