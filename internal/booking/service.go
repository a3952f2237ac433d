package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/staymatch/backend/internal/calendar"
	"github.com/staymatch/backend/internal/metrics"
	"github.com/staymatch/backend/internal/storage"
	"github.com/staymatch/backend/internal/storage/models"
)

var (
	// ErrInvalidTransition is returned for any status change other than
	// proposed -> committed -> cancelled.
	ErrInvalidTransition = errors.New("invalid reservation transition")

	// ErrUnknownUser is returned when a reservation names a missing profile.
	ErrUnknownUser = errors.New("unknown user")
)

// Catalog is the in-memory property set the service books against.
type Catalog interface {
	Get(id int) (models.Property, error)
	Update(ctx context.Context, id int, fn func(ctx context.Context, p *models.Property) error) (models.Property, error)
}

// Notifier receives reservation lifecycle events.
type Notifier interface {
	BroadcastReservationCommitted(res models.Reservation, added []time.Time)
	BroadcastReservationCancelled(res models.Reservation, released []time.Time)
	BroadcastCalendarImported(result models.CalendarImportResult)
}

// Service drives reservations through their lifecycle and keeps the
// catalog's booked days and the database in step.
type Service struct {
	db           *storage.DB
	properties   *storage.PropertyRepository
	reservations *storage.ReservationRepository
	users        *storage.UserRepository
	catalog      Catalog
	conflicts    *ConflictChecker
	notifier     Notifier
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewService creates a booking service. notifier and m may be nil.
func NewService(db *storage.DB, catalog Catalog, notifier Notifier, m *metrics.Metrics) *Service {
	reservations := storage.NewReservationRepository(db)
	return &Service{
		db:           db,
		properties:   storage.NewPropertyRepository(db),
		reservations: reservations,
		users:        storage.NewUserRepository(db),
		catalog:      catalog,
		conflicts:    NewConflictChecker(reservations.ListByProperty),
		notifier:     notifier,
		metrics:      m,
		now:          time.Now,
	}
}

// Propose validates a stay and returns an unsaved proposed reservation.
func (s *Service) Propose(ctx context.Context, username string, propertyID int, start, end time.Time) (*models.Reservation, error) {
	r, err := calendar.NewRange(start, end)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.Get(propertyID); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, username)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", username, ErrUnknownUser)
	}

	res := &models.Reservation{
		ID:         storage.GenerateID(),
		Username:   username,
		PropertyID: propertyID,
		Status:     models.ReservationProposed,
		Source:     models.SourceDirect,
	}
	res.SetDates(r.Start, r.End)
	return res, nil
}

// Commit books a proposed reservation. Dates already taken by another
// booking fail with a *ConflictError and leave everything unchanged.
// On success res is updated in place and the newly booked days are returned.
func (s *Service) Commit(ctx context.Context, res *models.Reservation) ([]time.Time, error) {
	if !res.CanTransition(models.ReservationCommitted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, res.Status, models.ReservationCommitted)
	}

	committed := *res
	committed.Status = models.ReservationCommitted
	var added []time.Time

	_, err := s.catalog.Update(ctx, res.PropertyID, func(ctx context.Context, p *models.Property) error {
		conflicts, err := s.conflicts.CheckConflicts(ctx, *p, res.StartDate, res.EndDate)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{PropertyID: p.ID, Conflicts: conflicts}
		}

		added, _, err = Commit(p, res.StartDate, res.EndDate)
		if err != nil {
			return err
		}

		return s.db.Transaction(func(tx *sql.Tx) error {
			if err := s.properties.SetBookedTx(ctx, tx, p.ID, p.Booked); err != nil {
				return err
			}
			return s.reservations.CreateTx(ctx, tx, &committed)
		})
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			s.metrics.Reservation(metrics.ActionConflict)
		}
		return nil, err
	}

	*res = committed
	s.metrics.Reservation(metrics.ActionCommitted)
	log.Printf("Committed reservation %s on property %d (%s..%s)", res.ID, res.PropertyID, res.Start, res.End)
	if s.notifier != nil {
		s.notifier.BroadcastReservationCommitted(*res, added)
	}
	return added, nil
}

// Book proposes and commits a stay in one step.
func (s *Service) Book(ctx context.Context, username string, propertyID int, start, end time.Time) (*models.Reservation, error) {
	res, err := s.Propose(ctx, username, propertyID, start, end)
	if err != nil {
		return nil, err
	}
	if _, err := s.Commit(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Cancel releases a committed reservation's days and marks it cancelled.
func (s *Service) Cancel(ctx context.Context, id string) (*models.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.CanTransition(models.ReservationCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, res.Status, models.ReservationCancelled)
	}

	var released []time.Time
	_, err = s.catalog.Update(ctx, res.PropertyID, func(ctx context.Context, p *models.Property) error {
		released, err = Release(p, res.StartDate, res.EndDate)
		if err != nil {
			return err
		}

		return s.db.Transaction(func(tx *sql.Tx) error {
			if err := s.properties.SetBookedTx(ctx, tx, p.ID, p.Booked); err != nil {
				return err
			}
			return s.reservations.UpdateStatusTx(ctx, tx, res.ID, models.ReservationCancelled)
		})
	})
	if err != nil {
		return nil, err
	}

	res.Status = models.ReservationCancelled
	s.metrics.Reservation(metrics.ActionCancelled)
	log.Printf("Cancelled reservation %s on property %d, released %d days", res.ID, res.PropertyID, len(released))
	if s.notifier != nil {
		s.notifier.BroadcastReservationCancelled(*res, released)
	}
	return res, nil
}

// Get retrieves a stored reservation.
func (s *Service) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

// Import books external calendar events on a property as reservations owned
// by the channel profile. Events that are malformed or overlap existing
// bookings are skipped and listed in the result.
func (s *Service) Import(ctx context.Context, propertyID int, events []models.CalendarEvent) (*models.CalendarImportResult, error) {
	if _, err := s.catalog.Get(propertyID); err != nil {
		return nil, err
	}

	result := &models.CalendarImportResult{
		PropertyID:    propertyID,
		EventsFound:   len(events),
		Reservations:  []string{},
		SkippedEvents: []string{},
	}

	for _, e := range events {
		r, err := calendar.EventRange(e)
		if err != nil {
			result.SkippedEvents = append(result.SkippedEvents, eventLabel(e)+": "+err.Error())
			continue
		}

		res, err := s.Propose(ctx, models.ChannelUsername, propertyID, r.Start, r.End)
		if err != nil {
			return nil, fmt.Errorf("importing event %s: %w", eventLabel(e), err)
		}
		res.Source = models.SourceChannel

		added, err := s.Commit(ctx, res)
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			result.SkippedEvents = append(result.SkippedEvents, eventLabel(e)+": "+conflict.Error())
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("importing event %s: %w", eventLabel(e), err)
		}

		result.Reservations = append(result.Reservations, res.ID)
		result.DaysBooked += len(added)
		s.metrics.Reservation(metrics.ActionImported)
	}

	result.ImportedAt = s.now().UTC()
	log.Printf("Imported calendar for property %d: %d events, %d booked, %d skipped",
		propertyID, result.EventsFound, len(result.Reservations), len(result.SkippedEvents))
	if s.notifier != nil {
		s.notifier.BroadcastCalendarImported(*result)
	}
	return result, nil
}

func eventLabel(e models.CalendarEvent) string {
	if e.UID != "" {
		return e.UID
	}
	return e.Summary
}
