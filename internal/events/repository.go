package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, name, slug, description, date, location, is_upcoming, banner_url, price, currency,
	speaker_ids, sponsor_ids, organizer_ids, coordinator_ids, media_ids, created_at, updated_at`

const uniqueViolation = "23505"

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Name, &e.Slug, &e.Description, &e.Date, &e.Location, &e.IsUpcoming, &e.BannerURL,
		&e.Price, &e.Currency, &e.SpeakerIDs, &e.SponsorIDs, &e.OrganizerIDs, &e.CoordinatorIDs, &e.MediaIDs,
		&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func slugTaken(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Create inserts the scalar fields of e. Reference sets start empty.
func (r *Repository) Create(ctx context.Context, e *models.Event) (*models.Event, error) {
	const q = `INSERT INTO events (name, slug, description, date, location, is_upcoming, banner_url, price, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + eventColumns
	created, err := scanEvent(r.pool.QueryRow(ctx, q, e.Name, e.Slug, e.Description, e.Date, e.Location,
		e.IsUpcoming, e.BannerURL, e.Price, e.Currency))
	if slugTaken(err) {
		return nil, apperr.Conflict("Slug already exists")
	}
	return created, err
}

// Fields holds the editable scalar columns of an event. Nil leaves the column unchanged.
// Reference sets are not editable here.
type Fields struct {
	Name        *string
	Slug        *string
	Description *string
	Date        *time.Time
	Location    *string
	IsUpcoming  *bool
	BannerURL   *string
	Price       *float64
	Currency    *string
}

// Update applies f and returns the updated event.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, f Fields) (*models.Event, error) {
	const q = `UPDATE events SET
			name = COALESCE($2, name),
			slug = COALESCE($3, slug),
			description = COALESCE($4, description),
			date = COALESCE($5, date),
			location = COALESCE($6, location),
			is_upcoming = COALESCE($7, is_upcoming),
			banner_url = COALESCE($8, banner_url),
			price = COALESCE($9, price),
			currency = COALESCE($10, currency),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + eventColumns
	e, err := scanEvent(r.pool.QueryRow(ctx, q, id, f.Name, f.Slug, f.Description, f.Date, f.Location,
		f.IsUpcoming, f.BannerURL, f.Price, f.Currency))
	if slugTaken(err) {
		return nil, apperr.Conflict("Slug already exists")
	}
	return e, err
}

// Delete removes an event. Referenced media and people are kept.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `DELETE FROM events WHERE id = $1 RETURNING `+eventColumns, id))
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// GetBySlug returns an event by slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug))
}

// List returns events by date, newest first, optionally filtered by is_upcoming.
func (r *Repository) List(ctx context.Context, upcoming *bool) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	var args []interface{}
	if upcoming != nil {
		q += ` WHERE is_upcoming = $1`
		args = append(args, *upcoming)
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY date DESC NULLS LAST, created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// AddMedia appends mediaID to the event's media set unless already present.
// The single UPDATE holds the row lock, so concurrent adds can neither lose an id nor duplicate one.
func (r *Repository) AddMedia(ctx context.Context, eventID, mediaID uuid.UUID) (*models.Event, error) {
	const q = `UPDATE events SET
			media_ids = CASE WHEN $2::uuid = ANY(media_ids) THEN media_ids ELSE array_append(media_ids, $2::uuid) END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + eventColumns
	return scanEvent(r.pool.QueryRow(ctx, q, eventID, mediaID))
}

// RemoveMedia drops every occurrence of mediaID from the event's media set.
func (r *Repository) RemoveMedia(ctx context.Context, eventID, mediaID uuid.UUID) (*models.Event, error) {
	const q = `UPDATE events SET media_ids = array_remove(media_ids, $2::uuid), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + eventColumns
	return scanEvent(r.pool.QueryRow(ctx, q, eventID, mediaID))
}

// MediaIDs returns the event's media set in mapping order.
func (r *Repository) MediaIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT media_ids FROM events WHERE id = $1`, eventID).Scan(&ids)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNoRows
	}
	return ids, err
}

// References are the non-media reference sets replaced by the admin mapping screen.
type References struct {
	Speakers     []uuid.UUID
	Sponsors     []uuid.UUID
	Organizers   []uuid.UUID
	Coordinators []uuid.UUID
}

// SetReferences replaces the four people sets. The media set is untouched.
func (r *Repository) SetReferences(ctx context.Context, eventID uuid.UUID, refs References) (*models.Event, error) {
	const q = `UPDATE events SET speaker_ids = $2, sponsor_ids = $3, organizer_ids = $4, coordinator_ids = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + eventColumns
	return scanEvent(r.pool.QueryRow(ctx, q, eventID, nonNil(refs.Speakers), nonNil(refs.Sponsors),
		nonNil(refs.Organizers), nonNil(refs.Coordinators)))
}

// nonNil keeps NOT NULL array columns from receiving SQL NULL.
func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
