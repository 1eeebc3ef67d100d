package sponsors

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
)

// Repository handles sponsor persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sponsor repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, name, website, description, logo, logo_url, created_at`

func scan(row pgx.Row) (*models.Sponsor, error) {
	var s models.Sponsor
	err := row.Scan(&s.ID, &s.Name, &s.Website, &s.Description, &s.Logo, &s.LogoURL, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collect(rows pgx.Rows) ([]models.Sponsor, error) {
	defer rows.Close()
	list := make([]models.Sponsor, 0)
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// List returns all sponsors, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Sponsor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM sponsors ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByIDs returns sponsors in the order of ids. Unknown ids are skipped.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Sponsor, error) {
	const q = `SELECT s.id, s.name, s.website, s.description, s.logo, s.logo_url, s.created_at
		FROM unnest($1::uuid[]) WITH ORDINALITY AS ref(id, ord)
		JOIN sponsors s ON s.id = ref.id
		ORDER BY ref.ord`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Sponsor, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM sponsors WHERE id = $1`, id))
}

func (r *Repository) Create(ctx context.Context, s *models.Sponsor) error {
	const q = `INSERT INTO sponsors (name, website, description, logo, logo_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, s.Name, s.Website, s.Description, s.Logo, s.LogoURL).Scan(&s.ID, &s.CreatedAt)
}

func (r *Repository) Update(ctx context.Context, s *models.Sponsor) error {
	const q = `UPDATE sponsors SET name = $2, website = $3, description = $4, logo = $5, logo_url = $6
		WHERE id = $1
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, q, s.ID, s.Name, s.Website, s.Description, s.Logo, s.LogoURL).Scan(&s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNoRows
	}
	return err
}

// Delete removes a sponsor and unlinks it from events in the same transaction.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.Sponsor, error) {
	var deleted *models.Sponsor
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE events SET sponsor_ids = array_remove(sponsor_ids, $1::uuid), updated_at = NOW()
			WHERE $1::uuid = ANY(sponsor_ids)`, id); err != nil {
			return err
		}
		s, err := scan(tx.QueryRow(ctx, `DELETE FROM sponsors WHERE id = $1 RETURNING `+columns, id))
		deleted = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
