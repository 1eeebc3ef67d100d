package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
)

// Repository handles media persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a media repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const mediaColumns = `id, type, title, description, url, created_by, created_at, updated_at`

func scanMedia(row pgx.Row) (*models.Media, error) {
	var m models.Media
	err := row.Scan(&m.ID, &m.Type, &m.Title, &m.Description, &m.URL, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collect(rows pgx.Rows) ([]models.Media, error) {
	defer rows.Close()
	list := make([]models.Media, 0)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// GetByID returns a media record by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	return scanMedia(r.pool.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))
}

// Create inserts m and fills its generated fields.
func (r *Repository) Create(ctx context.Context, m *models.Media) error {
	const q = `INSERT INTO media (type, title, description, url, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, string(m.Type), m.Title, m.Description, m.URL, m.CreatedBy).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

// UpdateFields holds the optional columns of a media update. Nil leaves the column unchanged.
type UpdateFields struct {
	Title       *string
	Description *string
	URL         *string
}

// Update applies f and returns the updated record.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Media, error) {
	const q = `UPDATE media SET title = COALESCE($2, title), description = COALESCE($3, description),
		url = COALESCE($4, url), updated_at = NOW()
		WHERE id = $1 RETURNING ` + mediaColumns
	return scanMedia(r.pool.QueryRow(ctx, q, id, f.Title, f.Description, f.URL))
}

// Delete removes the record and drops its id from every event's media set in one transaction.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	var deleted *models.Media
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const unmap = `UPDATE events SET media_ids = array_remove(media_ids, $1::uuid), updated_at = NOW()
			WHERE $1::uuid = ANY(media_ids)`
		if _, err := tx.Exec(ctx, unmap, id); err != nil {
			return fmt.Errorf("unmap from events: %w", err)
		}
		m, err := scanMedia(tx.QueryRow(ctx, `DELETE FROM media WHERE id = $1 RETURNING `+mediaColumns, id))
		if err != nil {
			return err
		}
		deleted = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ListByIDs returns the records for ids in the order given. Ids without a record are skipped.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Media, error) {
	if len(ids) == 0 {
		return []models.Media{}, nil
	}
	const q = `SELECT m.id, m.type, m.title, m.description, m.url, m.created_by, m.created_at, m.updated_at
		FROM unnest($1::uuid[]) WITH ORDINALITY AS ref(id, ord)
		JOIN media m ON m.id = ref.id
		ORDER BY ref.ord`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListFilter selects one page of media, newest first.
type ListFilter struct {
	Type   models.MediaType // empty means any
	Query  string           // case-insensitive substring of title or description
	Limit  int
	Offset int
}

// List returns the page selected by f and the total number of matching records.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Media, int, error) {
	var conds []string
	var args []interface{}
	if f.Type != "" {
		args = append(args, string(f.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+escapeLike(f.Query)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var (
		total int
		items []models.Media
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM media`+where, args...).Scan(&total)
	})
	g.Go(func() error {
		pageArgs := append(append([]interface{}{}, args...), f.Limit, f.Offset)
		q := fmt.Sprintf(`SELECT %s FROM media%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
			mediaColumns, where, len(args)+1, len(args)+2)
		rows, err := r.pool.Query(gctx, q, pageArgs...)
		if err != nil {
			return err
		}
		items, err = collect(rows)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// SwapURL sets url to next only if it still equals prev. It reports whether a row changed.
func (r *Repository) SwapURL(ctx context.Context, id uuid.UUID, prev, next string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE media SET url = $3, updated_at = NOW() WHERE id = $1 AND url = $2`, id, prev, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
