package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/staymatch/backend/internal/storage/models"
)

// PropertyRepository provides data access for the property catalog.
type PropertyRepository struct {
	BaseRepository
}

// NewPropertyRepository creates a new property repository.
func NewPropertyRepository(db *DB) *PropertyRepository {
	return &PropertyRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// LoadAll reads the whole catalog, ordered by property ID.
func (r *PropertyRepository) LoadAll(ctx context.Context) ([]models.Property, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, location, type, price, capacity, environment
		FROM properties ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}

	var properties []models.Property
	index := make(map[int]int)
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(&p.ID, &p.Location, &p.Type, &p.Price, &p.Capacity, &p.Environment); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		index[p.ID] = len(properties)
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating properties: %w", err)
	}
	rows.Close()

	err = r.eachPair(ctx, "SELECT property_id, feature FROM property_features ORDER BY property_id, feature",
		func(id int, v string) {
			if i, ok := index[id]; ok {
				properties[i].Features = append(properties[i].Features, v)
			}
		})
	if err != nil {
		return nil, fmt.Errorf("loading features: %w", err)
	}

	err = r.eachPair(ctx, "SELECT property_id, tag FROM property_tags ORDER BY property_id, tag",
		func(id int, v string) {
			if i, ok := index[id]; ok {
				properties[i].Tags = append(properties[i].Tags, v)
			}
		})
	if err != nil {
		return nil, fmt.Errorf("loading tags: %w", err)
	}

	var badDay error
	err = r.eachPair(ctx, "SELECT property_id, day FROM property_booked_dates ORDER BY property_id, day",
		func(id int, v string) {
			day, perr := time.Parse(models.DateLayout, v)
			if perr != nil {
				badDay = fmt.Errorf("property %d: invalid booked day %q: %w", id, v, perr)
				return
			}
			if i, ok := index[id]; ok {
				properties[i].Booked = append(properties[i].Booked, day)
			}
		})
	if err != nil {
		return nil, fmt.Errorf("loading booked days: %w", err)
	}
	if badDay != nil {
		return nil, badDay
	}

	return properties, nil
}

// GetByID retrieves a single property with its features, tags and booked days.
func (r *PropertyRepository) GetByID(ctx context.Context, id int) (*models.Property, error) {
	p := &models.Property{}
	err := r.DB().QueryRowContext(ctx, `
		SELECT id, location, type, price, capacity, environment
		FROM properties WHERE id = ?
	`, id).Scan(&p.ID, &p.Location, &p.Type, &p.Price, &p.Capacity, &p.Environment)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("property %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying property: %w", err)
	}

	if p.Features, err = r.column(ctx, "SELECT feature FROM property_features WHERE property_id = ? ORDER BY feature", id); err != nil {
		return nil, fmt.Errorf("loading features: %w", err)
	}
	if p.Tags, err = r.column(ctx, "SELECT tag FROM property_tags WHERE property_id = ? ORDER BY tag", id); err != nil {
		return nil, fmt.Errorf("loading tags: %w", err)
	}
	days, err := r.column(ctx, "SELECT day FROM property_booked_dates WHERE property_id = ? ORDER BY day", id)
	if err != nil {
		return nil, fmt.Errorf("loading booked days: %w", err)
	}
	for _, d := range days {
		day, err := time.Parse(models.DateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("property %d: invalid booked day %q: %w", id, d, err)
		}
		p.Booked = append(p.Booked, day)
	}

	return p, nil
}

// SaveAll replaces the stored catalog with the given properties.
// Properties missing from the slice are deleted.
func (r *PropertyRepository) SaveAll(ctx context.Context, properties []models.Property) error {
	return r.Transaction(func(tx *sql.Tx) error {
		keep := make(map[int]bool, len(properties))
		for _, p := range properties {
			if keep[p.ID] {
				return fmt.Errorf("duplicate property id %d", p.ID)
			}
			keep[p.ID] = true

			if err := upsertProperty(ctx, tx, p); err != nil {
				return err
			}
		}

		existing, err := queryIDs(ctx, tx, "SELECT id FROM properties")
		if err != nil {
			return fmt.Errorf("listing stored properties: %w", err)
		}
		for _, id := range existing {
			if keep[id] {
				continue
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id); err != nil {
				return fmt.Errorf("deleting property %d: %w", id, err)
			}
		}
		return nil
	})
}

// SetBookedTx replaces a property's booked days inside the caller's transaction.
func (r *PropertyRepository) SetBookedTx(ctx context.Context, q Queryable, propertyID int, days []time.Time) error {
	return setBookedDays(ctx, q, propertyID, days)
}

func setBookedDays(ctx context.Context, q Queryable, propertyID int, days []time.Time) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM property_booked_dates WHERE property_id = ?", propertyID); err != nil {
		return fmt.Errorf("clearing booked days: %w", err)
	}
	for _, d := range models.NormalizeDays(days) {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO property_booked_dates (property_id, day) VALUES (?, ?)
		`, propertyID, d.Format(models.DateLayout)); err != nil {
			return fmt.Errorf("inserting booked day: %w", err)
		}
	}
	return nil
}

func upsertProperty(ctx context.Context, tx *sql.Tx, p models.Property) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO properties (id, location, type, price, capacity, environment)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			location = excluded.location, type = excluded.type, price = excluded.price,
			capacity = excluded.capacity, environment = excluded.environment
	`, p.ID, p.Location, p.Type, p.Price, p.Capacity, p.Environment)
	if err != nil {
		return fmt.Errorf("upserting property %d: %w", p.ID, err)
	}

	if err := replaceValues(ctx, tx, "property_features", "feature", p.ID, p.Features); err != nil {
		return err
	}
	if err := replaceValues(ctx, tx, "property_tags", "tag", p.ID, p.Tags); err != nil {
		return err
	}

	return setBookedDays(ctx, tx, p.ID, p.Booked)
}

// replaceValues rewrites one of the (property_id, value) side tables.
func replaceValues(ctx context.Context, tx *sql.Tx, table, column string, propertyID int, values []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE property_id = ?", propertyID); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	for _, v := range values {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO "+table+" (property_id, "+column+") VALUES (?, ?)", propertyID, v,
		); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	return nil
}

func (r *PropertyRepository) eachPair(ctx context.Context, query string, fn func(id int, value string)) error {
	rows, err := r.DB().QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var value string
		if err := rows.Scan(&id, &value); err != nil {
			return err
		}
		fn(id, value)
	}
	return rows.Err()
}

func (r *PropertyRepository) column(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func queryIDs(ctx context.Context, q Queryable, query string) ([]int, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
