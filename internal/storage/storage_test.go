package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/staymatch/backend/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, RunMigrations(db))
	return db
}

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func testCatalog() []models.Property {
	return []models.Property{
		{
			ID: 1, Location: "Halifax", Type: "Cottage", Price: 150, Capacity: 6,
			Environment: "beach", Features: []string{"hot tub", "wifi"}, Tags: []string{"family"},
			Booked: []time.Time{day("2025-08-02")},
		},
		{
			ID: 2, Location: "Halifax", Type: "Condo", Price: 400, Capacity: 4,
			Environment: "urban", Features: []string{"gym"},
		},
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, RunMigrations(db))

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestPropertyRepository_SaveAllLoadAll(t *testing.T) {
	db := newTestDB(t)
	repo := NewPropertyRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveAll(ctx, testCatalog()))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "Halifax", loaded[0].Location)
	assert.Equal(t, []string{"hot tub", "wifi"}, loaded[0].Features)
	assert.Equal(t, []string{"family"}, loaded[0].Tags)
	require.Len(t, loaded[0].Booked, 1)
	assert.True(t, loaded[0].Booked[0].Equal(day("2025-08-02")))
	assert.Empty(t, loaded[1].Booked)

	// A second snapshot drops property 2.
	require.NoError(t, repo.SaveAll(ctx, testCatalog()[:1]))
	loaded, err = repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestPropertyRepository_SaveAllRejectsDuplicateIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewPropertyRepository(db)

	catalog := testCatalog()
	catalog[1].ID = 1
	assert.Error(t, repo.SaveAll(context.Background(), catalog))
}

func TestPropertyRepository_GetByID(t *testing.T) {
	db := newTestDB(t)
	repo := NewPropertyRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.SaveAll(ctx, testCatalog()))

	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, p.Capacity)
	assert.Len(t, p.Booked, 1)

	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPropertyRepository_SetBookedTxDeduplicates(t *testing.T) {
	db := newTestDB(t)
	repo := NewPropertyRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.SaveAll(ctx, testCatalog()))

	days := []time.Time{day("2025-08-03"), day("2025-08-01"), day("2025-08-03")}
	require.NoError(t, repo.SetBookedTx(ctx, db, 2, days))

	p, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	require.Len(t, p.Booked, 2)
	assert.True(t, p.Booked[0].Equal(day("2025-08-01")))
	assert.True(t, p.Booked[1].Equal(day("2025-08-03")))
}

func TestUserAndReservationRepositories(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, NewPropertyRepository(db).SaveAll(ctx, testCatalog()))

	users := NewUserRepository(db)
	reservations := NewReservationRepository(db)

	require.NoError(t, users.Create(ctx, &models.User{Username: "alice", Name: "Alice"}))
	assert.ErrorIs(t, users.Create(ctx, &models.User{Username: "alice"}), ErrUserExists)

	res := &models.Reservation{Username: "alice", PropertyID: 1, Status: models.ReservationCommitted}
	res.SetDates(day("2025-08-05"), day("2025-08-07"))
	require.NoError(t, reservations.CreateTx(ctx, db, res))
	assert.NotEmpty(t, res.ID)

	user, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, user.Reservations, 1)
	assert.Equal(t, "2025-08-05", user.Reservations[0].Start)
	assert.Equal(t, "2025-08-07", user.Reservations[0].End)

	require.NoError(t, reservations.UpdateStatusTx(ctx, db, res.ID, models.ReservationCancelled))
	got, err := reservations.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, got.Status)

	committed, err := reservations.ListByProperty(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, committed)

	_, err = users.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := users.Exists(ctx, models.ChannelUsername)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCatalogFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, WriteCatalogFile(path, testCatalog()))

	loaded, err := ReadCatalogFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "beach", loaded[0].Environment)
	require.Len(t, loaded[0].Booked, 1)
	assert.Equal(t, "2025-08-02", loaded[0].Booked[0].Format(models.DateLayout))
}
