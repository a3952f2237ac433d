package booking

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/staymatch/backend/internal/calendar"
	"github.com/staymatch/backend/internal/catalog"
	"github.com/staymatch/backend/internal/metrics"
	"github.com/staymatch/backend/internal/storage"
	"github.com/staymatch/backend/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func days(ss ...string) []time.Time {
	out := make([]time.Time, 0, len(ss))
	for _, s := range ss {
		out = append(out, day(s))
	}
	return out
}

type recordingNotifier struct {
	mu        sync.Mutex
	committed []models.Reservation
	cancelled []models.Reservation
	imports   []models.CalendarImportResult
}

func (n *recordingNotifier) BroadcastReservationCommitted(res models.Reservation, _ []time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.committed = append(n.committed, res)
}

func (n *recordingNotifier) BroadcastReservationCancelled(res models.Reservation, _ []time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, res)
}

func (n *recordingNotifier) BroadcastCalendarImported(result models.CalendarImportResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.imports = append(n.imports, result)
}

type fixture struct {
	db       *storage.DB
	store    *catalog.Store
	service  *Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "booking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db))

	repo := storage.NewPropertyRepository(db)
	require.NoError(t, repo.SaveAll(ctx, []models.Property{
		{ID: 1, Location: "Halifax", Type: "Cottage", Price: 150, Capacity: 6, Environment: "beach",
			Booked: days("2025-08-10")},
		{ID: 2, Location: "Banff", Type: "Cabin", Price: 220, Capacity: 4, Environment: "mountain"},
	}))
	require.NoError(t, storage.NewUserRepository(db).Create(ctx, &models.User{Username: "alice"}))

	store := catalog.NewStore(repo)
	require.NoError(t, store.Reload(ctx))

	notifier := &recordingNotifier{}
	return &fixture{
		db:       db,
		store:    store,
		service:  NewService(db, store, notifier, metrics.New()),
		notifier: notifier,
	}
}

func (f *fixture) booked(t *testing.T, id int) []time.Time {
	t.Helper()
	p, err := f.store.Get(id)
	require.NoError(t, err)
	return p.Booked
}

func (f *fixture) persisted(t *testing.T, id int) []time.Time {
	t.Helper()
	fresh := catalog.NewStore(storage.NewPropertyRepository(f.db))
	require.NoError(t, fresh.Reload(context.Background()))
	p, err := fresh.Get(id)
	require.NoError(t, err)
	return p.Booked
}

func TestCommit_AddsOnlyMissingDays(t *testing.T) {
	p := &models.Property{ID: 1, Booked: days("2025-08-02")}

	added, present, err := Commit(p, day("2025-08-01"), day("2025-08-03"))
	require.NoError(t, err)
	assert.Equal(t, days("2025-08-01", "2025-08-03"), added)
	assert.Equal(t, days("2025-08-02"), present)
	assert.Equal(t, days("2025-08-01", "2025-08-02", "2025-08-03"), p.Booked)
}

func TestCommit_SingleDay(t *testing.T) {
	p := &models.Property{ID: 1}

	added, present, err := Commit(p, day("2025-08-01"), day("2025-08-01"))
	require.NoError(t, err)
	assert.Equal(t, days("2025-08-01"), added)
	assert.Empty(t, present)
}

func TestCommit_MalformedRange(t *testing.T) {
	p := &models.Property{ID: 1, Booked: days("2025-08-02")}

	_, _, err := Commit(p, day("2025-08-05"), day("2025-08-01"))
	assert.ErrorIs(t, err, calendar.ErrMalformedRange)
	assert.Equal(t, days("2025-08-02"), p.Booked)
}

func TestRelease_RemovesOnlyBookedDays(t *testing.T) {
	p := &models.Property{ID: 1, Booked: days("2025-07-30", "2025-08-02", "2025-08-04")}

	removed, err := Release(p, day("2025-08-01"), day("2025-08-03"))
	require.NoError(t, err)
	assert.Equal(t, days("2025-08-02"), removed)
	assert.Equal(t, days("2025-07-30", "2025-08-04"), p.Booked)
}

func TestCommitRelease_RoundTrip(t *testing.T) {
	original := days("2025-07-30", "2025-08-09")
	p := &models.Property{ID: 1, Booked: append([]time.Time(nil), original...)}

	added, _, err := Commit(p, day("2025-08-01"), day("2025-08-05"))
	require.NoError(t, err)
	assert.Len(t, added, 5)

	removed, err := Release(p, day("2025-08-01"), day("2025-08-05"))
	require.NoError(t, err)
	assert.Equal(t, added, removed)
	assert.Equal(t, original, p.Booked)
}

func TestConflictChecker(t *testing.T) {
	existing := []models.Reservation{{ID: "r1", PropertyID: 1}}
	existing[0].SetDates(day("2025-08-01"), day("2025-08-03"))

	checker := NewConflictChecker(func(ctx context.Context, propertyID int) ([]models.Reservation, error) {
		return existing, nil
	})
	p := models.Property{ID: 1, Booked: days("2025-08-01", "2025-08-02", "2025-08-03", "2025-08-10")}
	ctx := context.Background()

	t.Run("overlap with a reservation", func(t *testing.T) {
		conflicts, err := checker.CheckConflicts(ctx, p, day("2025-08-03"), day("2025-08-05"))
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
		assert.Equal(t, "r1", conflicts[0].ReservationID)
		assert.Equal(t, day("2025-08-03"), conflicts[0].OverlapStart)
		assert.Equal(t, day("2025-08-03"), conflicts[0].OverlapEnd)
		assert.Equal(t, 1, conflicts[0].Days)
	})

	t.Run("booked day without a reservation", func(t *testing.T) {
		conflicts, err := checker.CheckConflicts(ctx, p, day("2025-08-09"), day("2025-08-11"))
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
		assert.Empty(t, conflicts[0].ReservationID)
		assert.Equal(t, day("2025-08-10"), conflicts[0].OverlapStart)
	})

	t.Run("free dates", func(t *testing.T) {
		has, err := checker.HasConflict(ctx, p, day("2025-08-04"), day("2025-08-09"))
		require.NoError(t, err)
		assert.False(t, has)
	})
}

func TestService_BookCommitsAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Book(ctx, "alice", 2, day("2025-08-01"), day("2025-08-03"))
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCommitted, res.Status)
	assert.Equal(t, "2025-08-01", res.Start)
	assert.Equal(t, "2025-08-03", res.End)

	want := days("2025-08-01", "2025-08-02", "2025-08-03")
	assert.Equal(t, want, f.booked(t, 2))
	assert.Equal(t, want, f.persisted(t, 2))

	stored, err := f.service.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCommitted, stored.Status)
	assert.Equal(t, "alice", stored.Username)

	require.Len(t, f.notifier.committed, 1)
	assert.Equal(t, res.ID, f.notifier.committed[0].ID)
}

func TestService_ProposeValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Propose(ctx, "alice", 1, day("2025-08-05"), day("2025-08-01"))
	assert.ErrorIs(t, err, calendar.ErrMalformedRange)

	_, err = f.service.Propose(ctx, "alice", 99, day("2025-08-01"), day("2025-08-02"))
	assert.ErrorIs(t, err, catalog.ErrPropertyNotFound)

	_, err = f.service.Propose(ctx, "bob", 1, day("2025-08-01"), day("2025-08-02"))
	assert.ErrorIs(t, err, ErrUnknownUser)

	res, err := f.service.Propose(ctx, "alice", 1, day("2025-08-01"), day("2025-08-02"))
	require.NoError(t, err)
	assert.Equal(t, models.ReservationProposed, res.Status)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, days("2025-08-10"), f.booked(t, 1), "a proposal books nothing")
}

func TestService_CommitRefusesOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Book(ctx, "alice", 2, day("2025-08-01"), day("2025-08-03"))
	require.NoError(t, err)

	_, err = f.service.Book(ctx, "alice", 2, day("2025-08-03"), day("2025-08-05"))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, first.ID, conflict.Conflicts[0].ReservationID)

	assert.Equal(t, days("2025-08-01", "2025-08-02", "2025-08-03"), f.booked(t, 2))
	assert.Equal(t, days("2025-08-01", "2025-08-02", "2025-08-03"), f.persisted(t, 2))

	reservations, err := storage.NewReservationRepository(f.db).ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, reservations, 1)
}

func TestService_CommitRefusesSeededDay(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Book(context.Background(), "alice", 1, day("2025-08-09"), day("2025-08-11"))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, conflict.PropertyID)
	assert.Equal(t, days("2025-08-10"), f.booked(t, 1))
}

func TestService_Transitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Book(ctx, "alice", 2, day("2025-08-01"), day("2025-08-02"))
	require.NoError(t, err)

	_, err = f.service.Commit(ctx, res)
	assert.ErrorIs(t, err, ErrInvalidTransition, "committed cannot be committed again")

	cancelled, err := f.service.Cancel(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, cancelled.Status)
	assert.Empty(t, f.booked(t, 2))
	assert.Empty(t, f.persisted(t, 2))
	require.Len(t, f.notifier.cancelled, 1)

	_, err = f.service.Cancel(ctx, res.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "cancelled is terminal")

	_, err = f.service.Cancel(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	again, err := f.service.Book(ctx, "alice", 2, day("2025-08-01"), day("2025-08-02"))
	require.NoError(t, err, "released days can be booked again")
	assert.NotEqual(t, res.ID, again.ID)
}

func TestService_CancelKeepsOtherBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Book(ctx, "alice", 1, day("2025-08-08"), day("2025-08-09"))
	require.NoError(t, err)
	assert.Equal(t, days("2025-08-08", "2025-08-09", "2025-08-10"), f.booked(t, 1))

	_, err = f.service.Cancel(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, days("2025-08-10"), f.booked(t, 1))
}

func TestService_Import(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Book(ctx, "alice", 2, day("2025-08-01"), day("2025-08-03"))
	require.NoError(t, err)

	events := []models.CalendarEvent{
		{UID: "stay-1", Start: day("2025-08-20"), End: day("2025-08-23")},
		{UID: "stay-2", Start: day("2025-08-02"), End: day("2025-08-04")},
		{UID: "stay-3", Start: day("2025-09-05"), End: day("2025-09-01")},
	}

	result, err := f.service.Import(ctx, 2, events)
	require.NoError(t, err)
	assert.Equal(t, 3, result.EventsFound)
	require.Len(t, result.Reservations, 1)
	assert.Len(t, result.SkippedEvents, 2)
	assert.Equal(t, 3, result.DaysBooked)
	assert.False(t, result.ImportedAt.IsZero())

	imported, err := f.service.Get(ctx, result.Reservations[0])
	require.NoError(t, err)
	assert.Equal(t, models.ChannelUsername, imported.Username)
	assert.Equal(t, models.SourceChannel, imported.Source)
	assert.Equal(t, "2025-08-20", imported.Start)
	assert.Equal(t, "2025-08-22", imported.End)

	require.Len(t, f.notifier.imports, 1)
	assert.Equal(t, 2, f.notifier.imports[0].PropertyID)

	_, err = f.service.Import(ctx, 99, events)
	assert.ErrorIs(t, err, catalog.ErrPropertyNotFound)
}
