package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/staymatch/backend/internal/storage/models"
)

// ReservationRepository provides data access for reservations.
type ReservationRepository struct {
	BaseRepository
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *DB) *ReservationRepository {
	return &ReservationRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const reservationColumns = `id, username, property_id, start_date, end_date, status, source, created_at, updated_at`

// Create inserts a reservation outside any transaction.
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	return r.CreateTx(ctx, r.DB(), res)
}

// CreateTx inserts a reservation inside the caller's transaction.
// An empty ID is filled with a new UUID.
func (r *ReservationRepository) CreateTx(ctx context.Context, q Queryable, res *models.Reservation) error {
	if res.ID == "" {
		res.ID = GenerateID()
	}
	if res.Source == "" {
		res.Source = models.SourceDirect
	}
	res.CreatedAt = r.Now()
	res.UpdatedAt = res.CreatedAt

	_, err := q.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.ID, res.Username, res.PropertyID, res.Start, res.End,
		res.Status, res.Source, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}
	return nil
}

// UpdateStatusTx changes a reservation's status inside the caller's transaction.
func (r *ReservationRepository) UpdateStatusTx(ctx context.Context, q Queryable, id, status string) error {
	result, err := q.ExecContext(ctx, `
		UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?
	`, status, r.Now(), id)
	if err != nil {
		return fmt.Errorf("updating reservation status: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetByID retrieves a reservation by its ID.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	row := r.DB().QueryRowContext(ctx, "SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id)

	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying reservation: %w", err)
	}
	return res, nil
}

// ListByUser retrieves all reservations owned by a user, oldest first.
func (r *ReservationRepository) ListByUser(ctx context.Context, username string) ([]models.Reservation, error) {
	return r.list(ctx, "SELECT "+reservationColumns+" FROM reservations WHERE username = ? ORDER BY start_date, created_at", username)
}

// ListByProperty retrieves the committed reservations of a property.
func (r *ReservationRepository) ListByProperty(ctx context.Context, propertyID int) ([]models.Reservation, error) {
	return r.list(ctx, "SELECT "+reservationColumns+" FROM reservations WHERE property_id = ? AND status = ? ORDER BY start_date",
		propertyID, models.ReservationCommitted)
}

func (r *ReservationRepository) list(ctx context.Context, query string, args ...any) ([]models.Reservation, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reservations: %w", err)
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var res models.Reservation
	var start, end string
	if err := row.Scan(
		&res.ID, &res.Username, &res.PropertyID, &start, &end,
		&res.Status, &res.Source, &res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		return nil, err
	}

	startDay, err := time.Parse(models.DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	endDay, err := time.Parse(models.DateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	res.SetDates(startDay, endDay)
	return &res, nil
}
