package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/staymatch/backend/internal/storage/models"
)

// ErrUserExists is returned when creating a profile whose username is taken.
var ErrUserExists = errors.New("username already exists")

// UserRepository provides data access for user profiles.
type UserRepository struct {
	BaseRepository
	reservations *ReservationRepository
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository(db),
		reservations:   NewReservationRepository(db),
	}
}

// Create inserts a new user profile.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return errors.New("username is required")
	}
	user.CreatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO users (username, name, email, created_at) VALUES (?, ?, ?, ?)
	`, user.Username, user.Name, user.Email, user.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%s: %w", user.Username, ErrUserExists)
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	user.Reservations = []models.Reservation{}
	return nil
}

// GetByUsername retrieves a profile together with its reservations.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := r.DB().QueryRowContext(ctx, `
		SELECT username, name, email, created_at FROM users WHERE username = ?
	`, username).Scan(&user.Username, &user.Name, &user.Email, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	user.Reservations, err = r.reservations.ListByUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.Reservations == nil {
		user.Reservations = []models.Reservation{}
	}
	return user, nil
}

// Exists reports whether a profile with the given username exists.
func (r *UserRepository) Exists(ctx context.Context, username string) (bool, error) {
	var n int
	if err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&n); err != nil {
		return false, fmt.Errorf("querying user: %w", err)
	}
	return n > 0, nil
}

// List returns every profile without its reservations, ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB().QueryContext(ctx, "SELECT username, name, email, created_at FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.Username, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
