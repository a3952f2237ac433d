// Package catalog holds the in-memory property catalog and the vocabulary
// derived from it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/staymatch/backend/internal/storage/models"
)

// ErrPropertyNotFound is returned when a property id is not in the catalog.
var ErrPropertyNotFound = errors.New("property not found")

// Source loads the full persisted catalog.
type Source interface {
	LoadAll(ctx context.Context) ([]models.Property, error)
}

// Store holds the current catalog snapshot and its vocabulary.
type Store struct {
	source Source

	mu          sync.RWMutex
	properties  []models.Property
	index       map[int]int
	vocabulary  *Vocabulary
	maxCapacity int
	minPrice    float64
	maxPrice    float64
}

// NewStore creates an empty store backed by source. Call Reload to populate it.
func NewStore(source Source) *Store {
	return &Store{
		source:     source,
		index:      make(map[int]int),
		vocabulary: BuildVocabulary(nil),
	}
}

// Reload replaces the catalog with the source's current records and rebuilds
// the vocabulary. On error the previous snapshot is kept.
func (s *Store) Reload(ctx context.Context) error {
	properties, err := s.source.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.replace(properties); err != nil {
		return err
	}

	log.Printf("Catalog loaded: %d properties, %d locations", len(s.properties), len(s.vocabulary.Locations))
	return nil
}

func (s *Store) replace(properties []models.Property) error {
	index := make(map[int]int, len(properties))
	snapshot := make([]models.Property, 0, len(properties))
	for _, p := range properties {
		if _, dup := index[p.ID]; dup {
			return fmt.Errorf("duplicate property id %d", p.ID)
		}
		p = p.Clone()
		p.Booked = models.NormalizeDays(p.Booked)
		index[p.ID] = len(snapshot)
		snapshot = append(snapshot, p)
	}

	s.properties = snapshot
	s.index = index
	s.vocabulary = BuildVocabulary(snapshot)
	s.recomputeBounds()
	return nil
}

func (s *Store) recomputeBounds() {
	s.maxCapacity, s.minPrice, s.maxPrice = 0, 0, 0
	for i, p := range s.properties {
		if p.Capacity > s.maxCapacity {
			s.maxCapacity = p.Capacity
		}
		if i == 0 || p.Price < s.minPrice {
			s.minPrice = p.Price
		}
		if i == 0 || p.Price > s.maxPrice {
			s.maxPrice = p.Price
		}
	}
}

// All returns deep copies of every property, in catalog order.
func (s *Store) All() []models.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Property, len(s.properties))
	for i, p := range s.properties {
		out[i] = p.Clone()
	}
	return out
}

// Get returns a copy of the property with the given id.
func (s *Store) Get(id int) (models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return models.Property{}, fmt.Errorf("property %d: %w", id, ErrPropertyNotFound)
	}
	return s.properties[i].Clone(), nil
}

// Len returns the number of properties in the catalog.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.properties)
}

// Vocabulary returns the vocabulary of the current snapshot.
func (s *Store) Vocabulary() *Vocabulary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vocabulary
}

// MaxCapacity returns the largest capacity in the catalog, or 0 when empty.
func (s *Store) MaxCapacity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxCapacity
}

// PriceRange returns the lowest and highest nightly price in the catalog.
func (s *Store) PriceRange() (min, max float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minPrice, s.maxPrice
}

// Update applies fn to a copy of one property while holding the write lock.
// The copy replaces the stored property only if fn returns nil, so a failed
// persist inside fn leaves the catalog untouched. Identity cannot change.
func (s *Store) Update(ctx context.Context, id int, fn func(ctx context.Context, p *models.Property) error) (models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return models.Property{}, fmt.Errorf("property %d: %w", id, ErrPropertyNotFound)
	}

	working := s.properties[i].Clone()
	if err := fn(ctx, &working); err != nil {
		return models.Property{}, err
	}
	working.ID = id
	working.Booked = models.NormalizeDays(working.Booked)

	s.properties[i] = working
	s.recomputeBounds()
	return working.Clone(), nil
}
