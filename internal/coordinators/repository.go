package coordinators

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
)

// Repository handles faculty coordinator persistence.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, name, department, contact, photo, bio, created_at`

func scan(row pgx.Row) (*models.Coordinator, error) {
	var c models.Coordinator
	err := row.Scan(&c.ID, &c.Name, &c.Department, &c.Contact, &c.Photo, &c.Bio, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collect(rows pgx.Rows) ([]models.Coordinator, error) {
	defer rows.Close()
	list := make([]models.Coordinator, 0)
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

func (r *Repository) List(ctx context.Context) ([]models.Coordinator, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM coordinators ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByIDs keeps the order of ids and skips ids with no row.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Coordinator, error) {
	const q = `SELECT c.id, c.name, c.department, c.contact, c.photo, c.bio, c.created_at
		FROM unnest($1::uuid[]) WITH ORDINALITY AS ref(id, ord)
		JOIN coordinators c ON c.id = ref.id
		ORDER BY ref.ord`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Coordinator, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM coordinators WHERE id = $1`, id))
}

func (r *Repository) Create(ctx context.Context, c *models.Coordinator) error {
	const q = `INSERT INTO coordinators (name, department, contact, photo, bio)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, c.Name, c.Department, c.Contact, c.Photo, c.Bio).Scan(&c.ID, &c.CreatedAt)
}

func (r *Repository) Update(ctx context.Context, c *models.Coordinator) error {
	const q = `UPDATE coordinators SET name = $2, department = $3, contact = $4, photo = $5, bio = $6
		WHERE id = $1
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, q, c.ID, c.Name, c.Department, c.Contact, c.Photo, c.Bio).Scan(&c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNoRows
	}
	return err
}

// Delete removes a coordinator and unlinks it from events.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.Coordinator, error) {
	var deleted *models.Coordinator
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE events SET coordinator_ids = array_remove(coordinator_ids, $1::uuid), updated_at = NOW()
			WHERE $1::uuid = ANY(coordinator_ids)`, id); err != nil {
			return err
		}
		c, err := scan(tx.QueryRow(ctx, `DELETE FROM coordinators WHERE id = $1 RETURNING `+columns, id))
		deleted = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
